package domain

import (
	"errors"
	"testing"
)

func validNewRequest() NewRequest {
	return NewRequest{
		UserID:        42,
		Address:       Address{FullAddress: "Calle  5 #10-20 ", City: " Bogotá "},
		RequestedDate: "2026-11-03",
		TimeWindow:    "mañana",
		Notes:         " porch ",
		Zone:          " Centro ",
	}
}

func TestNewRequestNormalizeAndValidate(t *testing.T) {
	n := validNewRequest()
	if err := n.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := n.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if n.Address.FullAddress != "Calle 5 #10-20" {
		t.Fatalf("address not collapsed: %q", n.Address.FullAddress)
	}
	if n.TimeWindow != WindowMorning {
		t.Fatalf("expected MORNING, got %s", n.TimeWindow)
	}
	if n.Zone != "Centro" || n.Address.City != "Bogotá" || n.Notes != "porch" {
		t.Fatalf("unexpected trim result %+v", n)
	}
}

func TestNewRequestValidateRejects(t *testing.T) {
	lat := 100.0
	lon := 10.0
	cases := map[string]func(*NewRequest){
		"no user":       func(n *NewRequest) { n.UserID = 0 },
		"no address":    func(n *NewRequest) { n.Address.FullAddress = "" },
		"bad date":      func(n *NewRequest) { n.RequestedDate = "03/11/2026" },
		"no zone":       func(n *NewRequest) { n.Zone = "" },
		"half geocoded": func(n *NewRequest) { n.Address.Lon = &lon },
		"bad latitude": func(n *NewRequest) {
			n.Address.Lat = &lat
			n.Address.Lon = &lon
		},
	}
	for name, mutate := range cases {
		n := validNewRequest()
		if err := n.Normalize(); err != nil {
			t.Fatalf("%s: normalize: %v", name, err)
		}
		mutate(&n)
		if err := n.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestParseTimeWindowRejectsUnknown(t *testing.T) {
	if _, err := ParseTimeWindow("midnight"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
