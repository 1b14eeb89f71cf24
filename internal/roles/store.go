// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import "context"

// Store persists roles. PostgreSQL is the source of truth; the in-memory
// [Registry] snapshot is rebuilt from ListAll after every mutation.
type Store interface {
	// Insert persists a new role. Returns a conflict error if the name is taken.
	Insert(ctx context.Context, role *Role) error

	// Update persists the mutable fields of an existing role.
	Update(ctx context.Context, role *Role) error

	// FindByID retrieves a role by primary key, active or not.
	FindByID(ctx context.Context, id string) (*Role, error)

	// FindByName retrieves a role by its unique name, active or not.
	FindByName(ctx context.Context, name string) (*Role, error)

	// ListAll returns every role, including deactivated ones, ordered by level.
	ListAll(ctx context.Context) ([]Role, error)
}
