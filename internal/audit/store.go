// Copyright (c) 2026 TrustFlow. All rights reserved.

package audit

import "context"

// ListFilter narrows audit queries. Zero values mean "no constraint".
type ListFilter struct {
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	Limit      int
	Offset     int
}

// Store persists audit entries.
type Store interface {
	// Insert appends one entry. Entries are never updated or deleted.
	Insert(ctx context.Context, entry Entry) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}
