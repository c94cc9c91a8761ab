package notify

import (
	"context"

	"pickup-request-service/internal/platform/obs"

	"go.uber.org/zap"
)

// LogNotifier stands in for the SMS gateway and the staff channel when
// they are not configured. Messages are only logged.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) logger() *zap.Logger {
	if n.Logger == nil {
		return zap.L()
	}
	return n.Logger
}

func (n LogNotifier) Send(ctx context.Context, phone, message string) error {
	n.logger().Info("notification (not sent)",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("phone", maskPhone(phone)),
		zap.String("message", message),
	)
	return nil
}

func (n LogNotifier) Announce(ctx context.Context, message string) error {
	n.logger().Info("announcement (not sent)",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("message", message),
	)
	return nil
}

// maskPhone keeps the last four digits.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(phone)-4:], phone[len(phone)-4:])
	return string(masked)
}
