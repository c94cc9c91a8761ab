package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const confirmationCodeLength = 4

// NewConfirmationCode returns a uniformly random decimal code of fixed
// length. Leading zeros are kept.
func NewConfirmationCode() (string, error) {
	var b strings.Builder
	for i := 0; i < confirmationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("confirmation code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NewTrackingCode returns the public, non-guessable lookup code of a request.
func NewTrackingCode() string {
	return uuid.NewString()
}

// NewWaybillNumber returns a short printable tracking number.
func NewWaybillNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "WB-" + id[:12]
}
