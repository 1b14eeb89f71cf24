// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import (
	"context"
	"sync/atomic"
)

// Registry serves role lookups from an immutable in-memory snapshot.
//
// # Concurrency
//
// Reads never lock: they dereference an [atomic.Pointer] to the current
// snapshot. Reload builds a fresh snapshot from the store and swaps the
// pointer, so concurrent readers always see a consistent view of the whole
// role set, never a half-applied mutation.
type Registry struct {
	store    Store
	snapshot atomic.Pointer[registrySnapshot]
}

type registrySnapshot struct {
	byID    map[string]*Role
	byName  map[string]*Role
	ordered []Role
}

// NewRegistry creates an empty registry. Call Reload before serving traffic.
func NewRegistry(store Store) *Registry {
	registry := &Registry{store: store}
	registry.snapshot.Store(&registrySnapshot{
		byID:   map[string]*Role{},
		byName: map[string]*Role{},
	})
	return registry
}

// Reload rebuilds the snapshot from the store and swaps it in atomically.
func (registry *Registry) Reload(ctx context.Context) error {
	all, err := registry.store.ListAll(ctx)
	if err != nil {
		return err
	}

	next := &registrySnapshot{
		byID:    make(map[string]*Role, len(all)),
		byName:  make(map[string]*Role, len(all)),
		ordered: all,
	}
	for i := range all {
		role := &all[i]
		next.byID[role.ID] = role
		next.byName[role.Name] = role
	}

	registry.snapshot.Store(next)
	return nil
}

// Get returns a copy of the role with the given ID.
func (registry *Registry) Get(id string) (Role, bool) {
	role, ok := registry.snapshot.Load().byID[id]
	if !ok {
		return Role{}, false
	}
	return *role, true
}

// GetByName returns a copy of the role with the given name.
func (registry *Registry) GetByName(name string) (Role, bool) {
	role, ok := registry.snapshot.Load().byName[name]
	if !ok {
		return Role{}, false
	}
	return *role, true
}

// List returns all roles ordered by level then name. The slice is shared
// with the snapshot; callers must not mutate it.
func (registry *Registry) List() []Role {
	return registry.snapshot.Load().ordered
}

// ListActive returns the active roles ordered by level then name.
// Deactivated roles stay resolvable by ID for existing holders but are not
// assignable, so listings hide them.
func (registry *Registry) ListActive() []Role {
	all := registry.snapshot.Load().ordered
	active := make([]Role, 0, len(all))
	for _, role := range all {
		if role.IsActive {
			active = append(active, role)
		}
	}
	return active
}
