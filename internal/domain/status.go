package domain

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
)

// Status is the workflow state of a pickup request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAssigned  Status = "ASSIGNED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []Status{
	StatusPending,
	StatusAssigned,
	StatusInTransit,
	StatusDelivered,
	StatusConfirmed,
	StatusCancelled,
}

// Older rows and clients used Spanish labels with mixed casing and spacing.
var statusAliases = map[string]Status{
	"PENDIENTE":  StatusPending,
	"ASIGNADA":   StatusAssigned,
	"EN_CAMINO":  StatusInTransit,
	"EN_RUTA":    StatusInTransit,
	"ENTREGADA":  StatusDelivered,
	"COMPLETADA": StatusDelivered,
	"CONFIRMADA": StatusConfirmed,
	"CANCELADA":  StatusCancelled,
}

func normalizeLabel(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// ParseStatus normalizes casing and legacy labels. Unknown values are a
// validation error.
func ParseStatus(s string) (Status, error) {
	n := normalizeLabel(s)
	for _, st := range AllStatuses {
		if string(st) == n {
			return st, nil
		}
	}
	if st, ok := statusAliases[n]; ok {
		return st, nil
	}
	return "", Invalid("status", fmt.Sprintf("unknown value %q", s))
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

func (s Status) Value() (driver.Value, error) {
	if _, err := ParseStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan status: unsupported type %T", src)
	}

	st, err := ParseStatus(raw)
	if err != nil {
		return fmt.Errorf("scan status: %w", err)
	}
	*s = st
	return nil
}

// Transition names an edge of the request state machine.
type Transition string

const (
	TransitionAssign       Transition = "assign"
	TransitionCancel       Transition = "cancel"
	TransitionStartTransit Transition = "start_transit"
	TransitionDeliver      Transition = "deliver"
	TransitionConfirm      Transition = "confirm"
)

type edge struct {
	from []Status
	to   Status
}

var transitions = map[Transition]edge{
	TransitionAssign:       {from: []Status{StatusPending}, to: StatusAssigned},
	TransitionCancel:       {from: []Status{StatusPending}, to: StatusCancelled},
	TransitionStartTransit: {from: []Status{StatusPending, StatusAssigned}, to: StatusInTransit},
	TransitionDeliver:      {from: []Status{StatusAssigned, StatusInTransit}, to: StatusDelivered},
	TransitionConfirm:      {from: []Status{StatusDelivered}, to: StatusConfirmed},
}

// From returns the statuses the transition may fire from. The slice is a
// copy and safe to use as a query argument.
func (t Transition) From() []Status {
	return slices.Clone(transitions[t].from)
}

// To returns the status the transition moves into.
func (t Transition) To() Status {
	return transitions[t].to
}

// AllowedFrom reports whether t may fire while the request is in s.
func (t Transition) AllowedFrom(s Status) bool {
	e, ok := transitions[t]
	return ok && slices.Contains(e.from, s)
}

// NextStatuses returns every status reachable from s in one step.
func NextStatuses(s Status) []Status {
	var out []Status
	for _, e := range transitions {
		if slices.Contains(e.from, s) && !slices.Contains(out, e.to) {
			out = append(out, e.to)
		}
	}
	slices.SortFunc(out, func(a, b Status) int {
		return slices.Index(AllStatuses, a) - slices.Index(AllStatuses, b)
	})
	return out
}
