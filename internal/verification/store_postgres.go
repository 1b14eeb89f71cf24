// Copyright (c) 2026 TrustFlow. All rights reserved.

package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/database/schema"
	"github.com/trustflow/identity/internal/platform/dberr"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// PostgresStore implements [Store] using pgx against identity.verificationrecord.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed verification store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// openStatuses is the SQL predicate for non-terminal records, matching the
// partial unique index in the migration.
const openStatuses = "('PENDING', 'MANUAL_REVIEW')"

/*
Insert persists a new verification record.

Returns:
  - error: apperr.Conflict when the user already has an open record
    (partial unique index), or execution failure
*/
func (store *PostgresStore) Insert(context context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuidv7.New()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.ID, schema.IdentityVerificationRecord.UserID,
		schema.IdentityVerificationRecord.TargetLevel, schema.IdentityVerificationRecord.Status,
		schema.IdentityVerificationRecord.Method, schema.IdentityVerificationRecord.DocumentType,
		schema.IdentityVerificationRecord.DocumentRef, schema.IdentityVerificationRecord.DocumentHash,
		schema.IdentityVerificationRecord.ReviewerID,
		schema.IdentityVerificationRecord.Reason, schema.IdentityVerificationRecord.SubmittedAt,
		schema.IdentityVerificationRecord.DecidedAt, schema.IdentityVerificationRecord.ExpiresAt,
		schema.IdentityVerificationRecord.CreatedAt, schema.IdentityVerificationRecord.UpdatedAt,
	)

	_, err := store.pool.Exec(context, query,
		record.ID,
		record.UserID,
		record.TargetLevel,
		record.Status,
		record.Method,
		record.DocumentType,
		record.DocumentRef,
		record.DocumentHash,
		record.ReviewerID,
		record.Reason,
		record.SubmittedAt,
		record.DecidedAt,
		record.ExpiresAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "An open verification request already exists for this user")
	}

	return nil
}

/*
Update persists the mutable decision fields of a record.

The WHERE clause pins the stored status to from, so a transition that lost a
race against a concurrent decision touches zero rows instead of clobbering
the winner.

Returns:
  - error: apperr.InvalidTransition when the row moved on since it was read
*/
func (store *PostgresStore) Update(context context.Context, record *Record, from Status) error {
	record.UpdatedAt = time.Now()

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7
		WHERE %s = $1 AND %s = $8`,
		schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.Status, schema.IdentityVerificationRecord.ReviewerID,
		schema.IdentityVerificationRecord.Reason, schema.IdentityVerificationRecord.DecidedAt,
		schema.IdentityVerificationRecord.ExpiresAt, schema.IdentityVerificationRecord.UpdatedAt,
		schema.IdentityVerificationRecord.ID, schema.IdentityVerificationRecord.Status,
	)

	tag, err := store.pool.Exec(context, query,
		record.ID,
		record.Status,
		record.ReviewerID,
		record.Reason,
		record.DecidedAt,
		record.ExpiresAt,
		record.UpdatedAt,
		from,
	)
	if err != nil {
		return dberr.Wrap(err, "Verification record update conflict")
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidTransition("Verification record was decided concurrently")
	}

	return nil
}

// FindByID retrieves a record by primary key.
func (store *PostgresStore) FindByID(context context.Context, id string) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1`,
		recordColumns(), schema.IdentityVerificationRecord.Table, schema.IdentityVerificationRecord.ID,
	)

	record, err := scanRecord(store.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Verification record")
		}
		return nil, fmt.Errorf("postgres_verification_store_find_failed: %w", err)
	}

	return record, nil
}

// FindOpenByUser returns the user's single open record, or NotFound.
func (store *PostgresStore) FindOpenByUser(context context.Context, userID string) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s IN %s`,
		recordColumns(), schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.UserID, schema.IdentityVerificationRecord.Status, openStatuses,
	)

	record, err := scanRecord(store.pool.QueryRow(context, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Verification record")
		}
		return nil, fmt.Errorf("postgres_verification_store_find_open_failed: %w", err)
	}

	return record, nil
}

// ListByUser returns the user's records, newest first.
func (store *PostgresStore) ListByUser(context context.Context, userID string) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1
		ORDER BY %s DESC`,
		recordColumns(), schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.UserID, schema.IdentityVerificationRecord.SubmittedAt,
	)

	rows, err := store.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_verification_store_list_failed: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListOpenDue returns open records whose expiry has passed, oldest first.
func (store *PostgresStore) ListOpenDue(context context.Context, now time.Time, limit int) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s IN %s AND %s <= $1
		ORDER BY %s ASC
		LIMIT $2`,
		recordColumns(), schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.Status, openStatuses,
		schema.IdentityVerificationRecord.ExpiresAt,
		schema.IdentityVerificationRecord.ExpiresAt,
	)

	rows, err := store.pool.Query(context, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_verification_store_due_failed: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListLapsedGrants returns APPROVED records whose validity has passed,
// oldest first.
func (store *PostgresStore) ListLapsedGrants(context context.Context, now time.Time, limit int) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s <= $2
		ORDER BY %s ASC
		LIMIT $3`,
		recordColumns(), schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.Status,
		schema.IdentityVerificationRecord.ExpiresAt,
		schema.IdentityVerificationRecord.ExpiresAt,
	)

	rows, err := store.pool.Query(context, query, StatusApproved, now, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_verification_store_lapsed_failed: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// HighestLiveLevel returns the highest target level among the user's
// APPROVED, unexpired records.
func (store *PostgresStore) HighestLiveLevel(context context.Context, userID string, now time.Time) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(%s), 0) FROM %s
		WHERE %s = $1 AND %s = $2 AND %s > $3`,
		schema.IdentityVerificationRecord.TargetLevel, schema.IdentityVerificationRecord.Table,
		schema.IdentityVerificationRecord.UserID,
		schema.IdentityVerificationRecord.Status,
		schema.IdentityVerificationRecord.ExpiresAt,
	)

	var level int
	if err := store.pool.QueryRow(context, query, userID, StatusApproved, now).Scan(&level); err != nil {
		return 0, fmt.Errorf("postgres_verification_store_live_level_failed: %w", err)
	}
	return level, nil
}

func recordColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		schema.IdentityVerificationRecord.ID, schema.IdentityVerificationRecord.UserID,
		schema.IdentityVerificationRecord.TargetLevel, schema.IdentityVerificationRecord.Status,
		schema.IdentityVerificationRecord.Method, schema.IdentityVerificationRecord.DocumentType,
		schema.IdentityVerificationRecord.DocumentRef, schema.IdentityVerificationRecord.DocumentHash,
		schema.IdentityVerificationRecord.ReviewerID,
		schema.IdentityVerificationRecord.Reason, schema.IdentityVerificationRecord.SubmittedAt,
		schema.IdentityVerificationRecord.DecidedAt, schema.IdentityVerificationRecord.ExpiresAt,
		schema.IdentityVerificationRecord.CreatedAt, schema.IdentityVerificationRecord.UpdatedAt,
	)
}

func scanRecord(row pgx.Row) (*Record, error) {
	record := &Record{}
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.TargetLevel,
		&record.Status,
		&record.Method,
		&record.DocumentType,
		&record.DocumentRef,
		&record.DocumentHash,
		&record.ReviewerID,
		&record.Reason,
		&record.SubmittedAt,
		&record.DecidedAt,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var result []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_verification_store_scan_failed: %w", err)
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}
