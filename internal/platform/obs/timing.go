package obs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// RequestID returns the id the HTTP layer attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs the duration of an operation. Use as
//
//	defer obs.Time(ctx, "requests.Assign")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		fields := []zap.Field{
			zap.String("req_id", reqID),
			zap.String("op", name),
			zap.Duration("dur", time.Since(start)),
		}

		if errp != nil && *errp != nil {
			zap.L().Warn("op failed", append(fields, zap.Error(*errp))...)
			return
		}
		zap.L().Debug("op", fields...)
	}
}
