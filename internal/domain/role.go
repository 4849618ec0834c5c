package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a role label is outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// Role enumerates the fixed set of user roles. Construct values from untrusted
// input with ParseRole only.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
)

var allRoles = []Role{RoleAdmin, RoleManager, RoleSeller, RoleCustomer, RoleDelivery}

// AllRoles returns every known role in declaration order.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole converts a stored or submitted label into a Role.
func ParseRole(label string) (Role, error) {
	candidate := Role(strings.ToLower(strings.TrimSpace(label)))
	if !candidate.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, label)
	}
	return candidate, nil
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// IsStaff reports whether the role belongs to the business side.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleCustomer
}

// RoleSet is an unordered membership set. There is no hierarchy between roles:
// admin is not implicitly a member of a set that only names manager.
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := RoleSet{members: make(map[Role]struct{}, len(roles))}
	for _, role := range roles {
		set.members[role] = struct{}{}
	}
	return set
}

// Contains reports membership of role in the set.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s.members[role]
	return ok
}

// Empty reports whether the set names no roles.
func (s RoleSet) Empty() bool {
	return len(s.members) == 0
}

// Roles lists members in declaration order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.members))
	for _, role := range allRoles {
		if s.Contains(role) {
			out = append(out, role)
		}
	}
	return out
}
