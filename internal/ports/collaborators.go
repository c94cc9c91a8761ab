package ports

import (
	"context"
	"pickup-request-service/internal/domain"
)

// Notifier delivers a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// Announcer posts operational messages to the staff channel.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// TrackingProvider resolves a tracking code that is unknown locally.
// It returns domain.ErrNotFound when the backend has no such shipment.
type TrackingProvider interface {
	Lookup(ctx context.Context, code string) (*domain.TrackingView, error)
}

// LoginThrottle counts failed logins per key within a window.
type LoginThrottle interface {
	// Check returns domain.ErrRateLimited once the key is over its limit.
	Check(ctx context.Context, key string) error
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// SessionCodec turns a resolved identity into a bearer token and back.
type SessionCodec interface {
	Issue(c domain.Caller) (string, error)
	Parse(token string) (domain.Caller, error)
}

// Geocoder resolves a free-text address to a point. It returns
// domain.ErrNotFound when there is no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
