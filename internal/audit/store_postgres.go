// Copyright (c) 2026 TrustFlow. All rights reserved.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustflow/identity/internal/platform/database/schema"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// PostgresStore implements [Store] using pgx against system.auditlog.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed audit store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

/*
Insert appends one audit entry to the append-only log.

Parameters:
  - context: context.Context
  - entry: Entry (ID and CreatedAt are filled in when zero)

Returns:
  - error: Database execution failure
*/
func (store *PostgresStore) Insert(context context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuidv7.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("postgres_audit_store_marshal_failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schema.SystemAuditLog.Table,
		schema.SystemAuditLog.ID, schema.SystemAuditLog.ActorID, schema.SystemAuditLog.Action,
		schema.SystemAuditLog.EntityType, schema.SystemAuditLog.EntityID, schema.SystemAuditLog.Outcome,
		schema.SystemAuditLog.Metadata, schema.SystemAuditLog.IPAddress, schema.SystemAuditLog.RequestID,
		schema.SystemAuditLog.CreatedAt,
	)

	_, err = store.pool.Exec(context, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Outcome,
		metadataJSON,
		entry.IPAddress,
		entry.RequestID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_audit_store_insert_failed: %w", err)
	}

	return nil
}

/*
List returns audit entries matching the filter, newest first.

Parameters:
  - context: context.Context
  - filter: ListFilter (zero fields are ignored; Limit defaults to 50, capped at 200)

Returns:
  - []Entry: Matching entries
  - error: Database execution failure
*/
func (store *PostgresStore) List(context context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE ($1 = '' OR %s = $1)
		  AND ($2 = '' OR %s = $2)
		  AND ($3 = '' OR %s = $3)
		  AND ($4 = '' OR %s = $4)
		ORDER BY %s DESC
		LIMIT $5 OFFSET $6`,
		schema.SystemAuditLog.ID, schema.SystemAuditLog.ActorID, schema.SystemAuditLog.Action,
		schema.SystemAuditLog.EntityType, schema.SystemAuditLog.EntityID, schema.SystemAuditLog.Outcome,
		schema.SystemAuditLog.Metadata, schema.SystemAuditLog.IPAddress, schema.SystemAuditLog.RequestID,
		schema.SystemAuditLog.CreatedAt,
		schema.SystemAuditLog.Table,
		schema.SystemAuditLog.ActorID,
		schema.SystemAuditLog.EntityType,
		schema.SystemAuditLog.EntityID,
		schema.SystemAuditLog.Action,
		schema.SystemAuditLog.CreatedAt,
	)

	rows, err := store.pool.Query(context, query,
		filter.ActorID, filter.EntityType, filter.EntityID, filter.Action, limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres_audit_store_list_failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metadataJSON []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Outcome,
			&metadataJSON,
			&entry.IPAddress,
			&entry.RequestID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_audit_store_scan_failed: %w", err)
		}
		if len(metadataJSON) > 0 {
			_ = json.Unmarshal(metadataJSON, &entry.Metadata)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
