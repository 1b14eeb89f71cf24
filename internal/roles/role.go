// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package roles implements the role registry: named permission bundles with a
numeric level that forms the platform's single moderation hierarchy.

# Architecture

The registry is read-heavy and write-rare. All reads (permission resolution,
listings) are served from an immutable in-memory snapshot swapped atomically
after every mutation; PostgreSQL remains the source of truth and the snapshot
is rebuilt from it on startup and after each write.

System roles are seeded at startup and protected: they cannot be modified or
deactivated through the API.
*/
package roles

import (
	"time"

	"github.com/trustflow/identity/internal/platform/sec"
)

// Role is a named bundle of permissions with a hierarchy level.
type Role struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Permissions sec.PermissionSet `json:"permissions"`

	// RoleLevel orders roles for moderation checks. An actor may only act on
	// users whose role level is strictly below their own.
	RoleLevel int `json:"role_level"`

	// IsSystemRole marks seeded roles that the API refuses to mutate.
	IsSystemRole bool `json:"is_system_role"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Seeded system role names.
const (
	RoleGuest      = "GUEST"
	RoleBuyer      = "BUYER"
	RoleSeller     = "SELLER"
	RoleModerator  = "MODERATOR"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// Seeded system role levels.
const (
	LevelGuest      = 0
	LevelBuyer      = 20
	LevelSeller     = 40
	LevelModerator  = 60
	LevelAdmin      = 80
	LevelSuperAdmin = 100
)

// SeedRoles returns the system roles created at startup. IDs are assigned
// at insert time; seeding never overwrites an existing role.
func SeedRoles() []Role {
	return []Role{
		{
			Name:        RoleGuest,
			Description: "Unauthenticated or minimal-trust access",
			RoleLevel:   LevelGuest,
			Permissions: sec.PermissionSet{
				{Resource: "catalog", Action: "read"},
			},
			IsSystemRole: true,
			IsActive:     true,
		},
		{
			Name:        RoleBuyer,
			Description: "Standard customer account",
			RoleLevel:   LevelBuyer,
			Permissions: sec.PermissionSet{
				{Resource: "catalog", Action: "read"},
				{Resource: "orders", Action: "create"},
				{Resource: "orders", Action: "read"},
				{Resource: "profile", Action: sec.Wildcard},
			},
			IsSystemRole: true,
			IsActive:     true,
		},
		{
			Name:        RoleSeller,
			Description: "Verified merchant account",
			RoleLevel:   LevelSeller,
			Permissions: sec.PermissionSet{
				{Resource: "catalog", Action: "read"},
				{Resource: "orders", Action: "read"},
				{Resource: "profile", Action: sec.Wildcard},
				{Resource: "listings", Action: sec.Wildcard},
				{Resource: "payouts", Action: "read"},
			},
			IsSystemRole: true,
			IsActive:     true,
		},
		{
			Name:        RoleModerator,
			Description: "Trust & safety operator",
			RoleLevel:   LevelModerator,
			Permissions: sec.PermissionSet{
				{Resource: "catalog", Action: "read"},
				{Resource: "profile", Action: sec.Wildcard},
				{Resource: "users", Action: "read"},
				{Resource: "users", Action: "suspend"},
				{Resource: "verifications", Action: "read"},
				{Resource: "verifications", Action: "decide"},
				{Resource: "content", Action: sec.Wildcard},
			},
			IsSystemRole: true,
			IsActive:     true,
		},
		{
			Name:        RoleAdmin,
			Description: "Platform administrator",
			RoleLevel:   LevelAdmin,
			Permissions: sec.PermissionSet{
				{Resource: "catalog", Action: "read"},
				{Resource: "profile", Action: sec.Wildcard},
				{Resource: "users", Action: sec.Wildcard},
				{Resource: "roles", Action: sec.Wildcard},
				{Resource: "verifications", Action: sec.Wildcard},
				{Resource: "invites", Action: sec.Wildcard},
				{Resource: "audit", Action: "read"},
			},
			IsSystemRole: true,
			IsActive:     true,
		},
		{
			Name:        RoleSuperAdmin,
			Description: "Unrestricted platform owner",
			RoleLevel:   LevelSuperAdmin,
			Permissions: sec.PermissionSet{
				{Resource: sec.Wildcard, Action: sec.Wildcard},
			},
			IsSystemRole: true,
			IsActive:     true,
		},
	}
}
