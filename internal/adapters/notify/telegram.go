package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pickup-request-service/internal/platform/obs"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAnnouncer posts staff announcements to a single chat.
type TelegramAnnouncer struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramAnnouncer authorizes the bot token against the Bot API.
func NewTelegramAnnouncer(token string, chatID int64) (*TelegramAnnouncer, error) {
	return newTelegramAnnouncer(token, chatID, tgbotapi.APIEndpoint)
}

func newTelegramAnnouncer(token string, chatID int64, endpoint string) (*TelegramAnnouncer, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram announcer: chat id is required")
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram announcer: create bot: %w", err)
	}

	return &TelegramAnnouncer{api: api, chatID: chatID}, nil
}

func (a *TelegramAnnouncer) Announce(ctx context.Context, message string) (err error) {
	defer obs.Time(ctx, "telegram.Announce")(&err)

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(a.chatID, message)
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("telegram announce: %w", err)
	}
	return nil
}
