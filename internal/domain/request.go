package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a requested pickup date.
const DateLayout = "2006-01-02"

// TimeWindow is the pickup slot within the requested date.
type TimeWindow string

const (
	WindowMorning   TimeWindow = "MORNING"
	WindowAfternoon TimeWindow = "AFTERNOON"
	WindowEvening   TimeWindow = "EVENING"
)

var windowAliases = map[string]TimeWindow{
	"MANANA": WindowMorning,
	"MAÑANA": WindowMorning,
	"TARDE":  WindowAfternoon,
	"NOCHE":  WindowEvening,
}

func ParseTimeWindow(s string) (TimeWindow, error) {
	n := normalizeLabel(s)
	switch TimeWindow(n) {
	case WindowMorning, WindowAfternoon, WindowEvening:
		return TimeWindow(n), nil
	}
	if w, ok := windowAliases[n]; ok {
		return w, nil
	}
	return "", Invalid("time_window", fmt.Sprintf("unknown value %q", s))
}

// Represents a pickup address. It is created together with its request and
// never mutated.
type Address struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	FullAddress string    `db:"full_address"`
	City        string    `db:"city"`
	Lat         *float64  `db:"lat"`
	Lon         *float64  `db:"lon"`
	CreatedAt   time.Time `db:"created_at"`
}

// Coordinates returns the geocoded point, if any.
func (a Address) Coordinates() (Coordinates, bool) {
	if a.Lat == nil || a.Lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lon: *a.Lon, Lat: *a.Lat}, true
}

// Represents a single pickup-and-delivery order (solicitud).
//
// CollectorID is nil while PENDING (and for requests cancelled before
// assignment). Each transition timestamp is written once, by the transition
// that owns it. FullAddress and City are read from the owned address.
type Request struct {
	ID               int64      `db:"id"`
	TrackingCode     string     `db:"tracking_code"`
	UserID           int64      `db:"user_id"`
	CollectorID      *int64     `db:"collector_id"`
	AddressID        int64      `db:"address_id"`
	WaybillID        *int64     `db:"waybill_id"`
	RequestedDate    string     `db:"requested_date"`
	TimeWindow       TimeWindow `db:"time_window"`
	Notes            string     `db:"notes"`
	Zone             string     `db:"zone"`
	Status           Status     `db:"status"`
	ConfirmationCode *string    `db:"confirmation_code"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	AssignedAt       *time.Time `db:"assigned_at"`
	InTransitAt      *time.Time `db:"in_transit_at"`
	DeliveredAt      *time.Time `db:"delivered_at"`
	ConfirmedAt      *time.Time `db:"confirmed_at"`
	CancelledAt      *time.Time `db:"cancelled_at"`
	FullAddress      string     `db:"full_address"`
	City             string     `db:"city"`
}

// HasCollector reports whether the request is held by collectorID.
func (r *Request) HasCollector(collectorID int64) bool {
	return r.CollectorID != nil && *r.CollectorID == collectorID
}

// NewRequest is the input of request creation.
type NewRequest struct {
	UserID        int64
	Address       Address
	RequestedDate string
	TimeWindow    TimeWindow
	Notes         string
	Zone          string
}

// Normalize trims free text and canonicalizes the time window in place.
func (n *NewRequest) Normalize() error {
	n.Address.FullAddress = strings.Join(strings.Fields(n.Address.FullAddress), " ")
	n.Address.City = strings.TrimSpace(n.Address.City)
	n.RequestedDate = strings.TrimSpace(n.RequestedDate)
	n.Notes = strings.TrimSpace(n.Notes)
	n.Zone = strings.TrimSpace(n.Zone)

	w, err := ParseTimeWindow(string(n.TimeWindow))
	if err != nil {
		return err
	}
	n.TimeWindow = w
	return nil
}

// Validate checks the shape of the input. Call Normalize first.
func (n NewRequest) Validate() error {
	if n.UserID <= 0 {
		return Invalid("user_id", "is required")
	}
	if n.Address.FullAddress == "" {
		return Invalid("address", "is required")
	}
	if n.Address.Lat != nil || n.Address.Lon != nil {
		c, ok := n.Address.Coordinates()
		if !ok {
			return Invalid("address", "latitude and longitude must be set together")
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if _, err := time.Parse(DateLayout, n.RequestedDate); err != nil {
		return Invalid("date", "must be YYYY-MM-DD")
	}
	if n.Zone == "" {
		return Invalid("zone", "is required")
	}
	return nil
}

// TrackingView is what a public lookup may reveal about a request.
type TrackingView struct {
	TrackingCode  string
	Status        Status
	Zone          string
	RequestedDate string
	TimeWindow    TimeWindow
	City          string
	UpdatedAt     time.Time
	Source        string
}

// TrackingFor projects r for the public lookup.
func TrackingFor(r *Request) *TrackingView {
	return &TrackingView{
		TrackingCode:  r.TrackingCode,
		Status:        r.Status,
		Zone:          r.Zone,
		RequestedDate: r.RequestedDate,
		TimeWindow:    r.TimeWindow,
		City:          r.City,
		UpdatedAt:     r.UpdatedAt,
		Source:        "local",
	}
}

// StatusCount is one row of a per-zone status summary.
type StatusCount struct {
	Status Status `db:"status"`
	Count  int    `db:"n"`
}
