// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import "github.com/trustflow/identity/internal/platform/sec"

// Resolver turns a role reference into an effective permission set.
//
// # Fail-Closed
//
// A missing or deactivated role resolves to an empty permission set, never
// an error: a broken role reference must deny everything, not break the
// request path.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver backed by the registry snapshot.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns the role and its permission set for a role ID.
//
// When id is unknown or the role is deactivated, it returns a zero Role
// with an empty permission set.
func (resolver *Resolver) Resolve(id string) (Role, sec.PermissionSet) {
	role, ok := resolver.registry.Get(id)
	if !ok || !role.IsActive {
		return Role{Permissions: sec.PermissionSet{}}, sec.PermissionSet{}
	}
	return role, role.Permissions
}

// ResolveByName is the legacy-reference fallback: accounts created before
// role IDs were introduced store only the role name.
func (resolver *Resolver) ResolveByName(name string) (Role, sec.PermissionSet) {
	role, ok := resolver.registry.GetByName(name)
	if !ok || !role.IsActive {
		return Role{Permissions: sec.PermissionSet{}}, sec.PermissionSet{}
	}
	return role, role.Permissions
}
