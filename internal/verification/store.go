// Copyright (c) 2026 TrustFlow. All rights reserved.

package verification

import (
	"context"
	"time"
)

// Store persists verification records.
type Store interface {
	// Insert persists a new record. The identity.verificationrecord table
	// carries a partial unique index on (userid) WHERE status IN
	// ('PENDING','MANUAL_REVIEW'), so a concurrent duplicate submit fails
	// with a conflict here even if the service-level check raced.
	Insert(ctx context.Context, record *Record) error

	// Update persists status, reviewer, reason, and decision timestamp.
	// The write only lands if the stored row is still in the from status;
	// a concurrent transition surfaces as INVALID_TRANSITION. This is the
	// cross-process backstop behind the per-user mutex.
	Update(ctx context.Context, record *Record, from Status) error

	// FindByID retrieves a record by primary key.
	FindByID(ctx context.Context, id string) (*Record, error)

	// FindOpenByUser returns the user's single open record, or NotFound.
	FindOpenByUser(ctx context.Context, userID string) (*Record, error)

	// ListByUser returns the user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]Record, error)

	// ListOpenDue returns open records whose expiry has passed.
	ListOpenDue(ctx context.Context, now time.Time, limit int) ([]Record, error)

	// ListLapsedGrants returns APPROVED records whose validity has passed.
	ListLapsedGrants(ctx context.Context, now time.Time, limit int) ([]Record, error)

	// HighestLiveLevel returns the highest target level among the user's
	// APPROVED, unexpired records, or zero when none exist.
	HighestLiveLevel(ctx context.Context, userID string, now time.Time) (int, error)
}

// UserLevels is the slice of the account store the verification engine
// needs: reading and advancing a user's trust level.
type UserLevels interface {
	// CurrentLevel returns the user's verification level.
	CurrentLevel(ctx context.Context, userID string) (int, error)

	// SetLevel updates the user's verification level.
	SetLevel(ctx context.Context, userID string, level int) error
}
