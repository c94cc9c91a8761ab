package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pickup-request-service/internal/platform/httpx"
	"pickup-request-service/internal/platform/obs"
)

// SMSGateway sends text messages through an HTTP gateway that accepts
// POST {base}/messages with a bearer token.
type SMSGateway struct {
	baseURL string
	client  *httpx.Client
}

type smsMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func NewSMSGateway(baseURL, token string) (*SMSGateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sms gateway: base url is required")
	}

	auth := ""
	if token != "" {
		auth = "Bearer " + token
	}
	return &SMSGateway{
		baseURL: baseURL,
		client:  httpx.New(auth, 10*time.Second),
	}, nil
}

func (g *SMSGateway) Send(ctx context.Context, phone, message string) (err error) {
	defer obs.Time(ctx, "sms.Send")(&err)

	if strings.TrimSpace(phone) == "" {
		return errors.New("sms send: phone is empty")
	}

	body, err := json.Marshal(smsMessage{To: phone, Message: message})
	if err != nil {
		return fmt.Errorf("sms send: encode: %w", err)
	}

	resp, err := g.client.DoWithRetry(ctx, func() (*http.Request, error) {
		return g.client.NewRequest(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	})
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	resp.Body.Close()
	return nil
}
