package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Represents a registered account. PasswordHash is a bcrypt hash and never
// leaves the service layer.
type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	DisplayName  string    `db:"display_name"`
	Phone        *string   `db:"phone"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	Zone         *string   `db:"zone"`
	BranchID     *int64    `db:"branch_id"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
}

// CollectorOption is a compact row used to populate assignment choices.
type CollectorOption struct {
	ID          int64  `db:"id"`
	DisplayName string `db:"display_name"`
}

// Caller is the identity an operation runs on behalf of. It is resolved once
// at the boundary and passed explicitly; services never read ambient session
// state.
type Caller struct {
	UserID   int64
	Role     Role
	Zone     string
	BranchID int64
}

// CallerFor builds the identity carried by a session for u.
func CallerFor(u *User) Caller {
	c := Caller{UserID: u.ID, Role: u.Role}
	if u.Zone != nil {
		c.Zone = *u.Zone
	}
	if u.BranchID != nil {
		c.BranchID = *u.BranchID
	}
	return c
}

// NormalizeEmail lower-cases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address only ("name@host"), no display name.
func ValidateEmail(email string) error {
	if email == "" {
		return Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Invalid("email", "is malformed")
	}
	return nil
}

// ValidateRoleZone enforces that zone is set iff the role is routed by zone.
func ValidateRoleZone(role Role, zone string) error {
	hasZone := strings.TrimSpace(zone) != ""
	if role.RequiresZone() != hasZone {
		return ErrInvalidRoleOrZone
	}
	return nil
}

// CanView reports whether c may read r by id. Field users see their own
// requests and the pending pool of their zone.
func (c Caller) CanView(r *Request) bool {
	switch {
	case c.Role.IsStaff():
		return true
	case r.UserID == c.UserID:
		return true
	case c.Role.IsField() && r.HasCollector(c.UserID):
		return true
	case c.Role.IsField() && r.Status == StatusPending && r.Zone == c.Zone:
		return true
	}
	return false
}

// CanViewZone reports whether c may list the requests of zone.
func (c Caller) CanViewZone(zone string) bool {
	if c.Role.IsStaff() {
		return true
	}
	return c.Role.IsField() && c.Zone == zone
}
