package domain

import (
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of user roles. A user's role never changes after
// registration.
type Role string

const (
	RoleClient      Role = "CLIENT"
	RoleCollector   Role = "COLLECTOR"
	RoleDriver      Role = "DRIVER"
	RoleBranchStaff Role = "BRANCH_STAFF"
	RoleManager     Role = "MANAGER"
	RoleAnalyst     Role = "ANALYST"
)

var AllRoles = []Role{
	RoleClient,
	RoleCollector,
	RoleDriver,
	RoleBranchStaff,
	RoleManager,
	RoleAnalyst,
}

// FieldRoles are the roles that accept and fulfill requests.
var FieldRoles = []Role{RoleCollector, RoleDriver}

var roleAliases = map[string]Role{
	"CLIENTE":     RoleClient,
	"RECOLECTOR":  RoleCollector,
	"CONDUCTOR":   RoleDriver,
	"FUNCIONARIO": RoleBranchStaff,
	"GESTOR":      RoleManager,
	"ANALISTA":    RoleAnalyst,
}

// ParseRole is case-insensitive and accepts the legacy Spanish labels.
func ParseRole(s string) (Role, error) {
	n := normalizeLabel(s)
	for _, r := range AllRoles {
		if string(r) == n {
			return r, nil
		}
	}
	if r, ok := roleAliases[n]; ok {
		return r, nil
	}
	return "", Invalid("role", fmt.Sprintf("unknown value %q", s))
}

// RequiresZone reports whether requests are routed to this role by zone.
func (r Role) RequiresZone() bool {
	return r == RoleCollector || r == RoleDriver
}

// IsField reports whether the role fulfills requests.
func (r Role) IsField() bool { return r.RequiresZone() }

// IsStaff reports whether the role may read requests it does not own.
func (r Role) IsStaff() bool {
	return r == RoleBranchStaff || r == RoleManager || r == RoleAnalyst
}

// CanAssign reports whether the role may assign requests to collectors.
func (r Role) CanAssign() bool {
	return r == RoleBranchStaff || r == RoleManager
}

func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

func (r *Role) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan role: unsupported type %T", src)
	}

	role, err := ParseRole(raw)
	if err != nil {
		return fmt.Errorf("scan role: %w", err)
	}
	*r = role
	return nil
}
