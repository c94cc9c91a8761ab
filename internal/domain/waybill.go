package domain

import (
	"strings"
	"time"
)

// Represents a tracking record (guía) attached to at most one request.
// Only Status changes after creation; it echoes the request status.
type Waybill struct {
	ID             int64     `db:"id"`
	TrackingNumber string    `db:"tracking_number"`
	Carrier        string    `db:"carrier"`
	Description    string    `db:"description"`
	DeclaredValue  float64   `db:"declared_value"`
	WeightKg       float64   `db:"weight_kg"`
	Status         Status    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

type NewWaybill struct {
	Carrier       string
	Description   string
	DeclaredValue float64
	WeightKg      float64
}

func (w *NewWaybill) Validate() error {
	w.Carrier = strings.TrimSpace(w.Carrier)
	w.Description = strings.TrimSpace(w.Description)

	if w.Carrier == "" {
		return Invalid("carrier", "is required")
	}
	if w.DeclaredValue < 0 {
		return Invalid("declared_value", "must not be negative")
	}
	if w.WeightKg < 0 {
		return Invalid("weight_kg", "must not be negative")
	}
	return nil
}
