package services

import (
	"strings"
	"testing"
)

func TestNewConfirmationCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := NewConfirmationCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 4 {
			t.Fatalf("expected 4 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 50 {
		t.Fatalf("codes look predictable: %d distinct of 200", len(seen))
	}
}

func TestTrackingAndWaybillNumbers(t *testing.T) {
	a, b := NewTrackingCode(), NewTrackingCode()
	if a == b || len(a) != 36 {
		t.Fatalf("unexpected tracking codes %q %q", a, b)
	}

	wb := NewWaybillNumber()
	if !strings.HasPrefix(wb, "WB-") || len(wb) != 15 {
		t.Fatalf("unexpected waybill number %q", wb)
	}
}
