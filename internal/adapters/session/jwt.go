package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"pickup-request-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// JWTCodec issues and verifies HS256 bearer tokens carrying a Caller.
type JWTCodec struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewJWTCodec(signingKey string, ttl time.Duration) *JWTCodec {
	return &JWTCodec{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		now:        time.Now,
	}
}

type claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	Zone     string `json:"zone,omitempty"`
	BranchID int64  `json:"branch_id,omitempty"`
}

func (c *JWTCodec) Issue(caller domain.Caller) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(caller.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Role:     string(caller.Role),
		Zone:     caller.Zone,
		BranchID: caller.BranchID,
	})

	s, err := tok.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return s, nil
}

// Parse verifies the token and returns its identity. Any failure is
// domain.ErrUnauthorized.
func (c *JWTCodec) Parse(token string) (domain.Caller, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.signingKey, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return domain.Caller{}, fmt.Errorf("parse session: %v: %w", err, domain.ErrUnauthorized)
	}

	cl, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return domain.Caller{}, fmt.Errorf("parse session: invalid token: %w", domain.ErrUnauthorized)
	}

	id, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Caller{}, fmt.Errorf("parse session: bad subject: %w", domain.ErrUnauthorized)
	}
	role, err := domain.ParseRole(cl.Role)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("parse session: %v: %w", err, domain.ErrUnauthorized)
	}

	return domain.Caller{UserID: id, Role: role, Zone: cl.Zone, BranchID: cl.BranchID}, nil
}
