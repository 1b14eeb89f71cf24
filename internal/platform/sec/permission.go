// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package sec provides the security primitives shared across the identity service.

It isolates security-sensitive code (password hashing, opaque token generation,
permission evaluation, assertion signing) from the domain logic. Domain packages
depend on these types the same way they depend on the standard library: they are
pure values and capabilities with no storage coupling.
*/
package sec

import (
	"fmt"
	"strings"
)

// # Permission Model

// Wildcard matches any resource or action in a permission entry.
const Wildcard = "*"

// Permission is a single {resource, action} capability pair.
//
// Either field may be the [Wildcard]. A role carrying {"*", "*"} is
// effectively unrestricted.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// String renders the permission in "resource:action" form for logs and audits.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// Matches reports whether this entry grants the given resource/action pair.
func (p Permission) Matches(resource, action string) bool {
	if p.Resource != Wildcard && p.Resource != resource {
		return false
	}
	return p.Action == Wildcard || p.Action == action
}

// PermissionSet is an ordered list of permissions treated as a set for
// evaluation. Duplicates are harmless; order only matters for display.
type PermissionSet []Permission

// Allows reports whether any entry in the set grants resource/action.
//
// # Purity
//
// Allows performs no I/O and allocates nothing. It is safe to call inside
// hot authorization paths on every request.
func (s PermissionSet) Allows(resource, action string) bool {
	for _, p := range s {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// ParsePermission parses a "resource:action" string into a [Permission].
func ParsePermission(raw string) (Permission, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, fmt.Errorf("sec: invalid permission %q (want resource:action)", raw)
	}
	return Permission{Resource: parts[0], Action: parts[1]}, nil
}

// # Principal

// Principal is the authenticated identity attached to a validated request.
//
// It carries the effective permission set and role level resolved at session
// issuance, plus the user's verification level, so that authorization checks
// downstream never need a database round trip.
type Principal struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	RoleLevel int    `json:"role_level"`

	// VerificationLevel is the ordinal trust tier (0..4) the user held when
	// the session was validated.
	VerificationLevel int `json:"verification_level"`

	Permissions PermissionSet `json:"permissions"`
}

// Allows reports whether the principal's effective permission set grants the
// given resource/action pair.
func (p *Principal) Allows(resource, action string) bool {
	if p == nil {
		return false
	}
	return p.Permissions.Allows(resource, action)
}

// CanModerate reports whether the principal outranks the target role level.
// Level ordering is the sole hierarchy mechanism in the system.
func (p *Principal) CanModerate(targetLevel int) bool {
	return p != nil && p.RoleLevel > targetLevel
}
