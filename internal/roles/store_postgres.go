// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/database/schema"
	"github.com/trustflow/identity/internal/platform/dberr"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// PostgresStore implements [Store] using pgx against identity.role.
//
// Permissions are stored as a JSONB array of {resource, action} objects.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed role store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

/*
Insert persists a new role into the identity.role table.

Parameters:
  - context: context.Context
  - role: *Role (ID and timestamps are filled in when zero)

Returns:
  - error: apperr.Conflict when the name is taken, or execution failure
*/
func (store *PostgresStore) Insert(context context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = uuidv7.New()
	}
	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("postgres_role_store_marshal_failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.IdentityRole.Table,
		schema.IdentityRole.ID, schema.IdentityRole.Name, schema.IdentityRole.Description,
		schema.IdentityRole.Permissions, schema.IdentityRole.RoleLevel, schema.IdentityRole.IsSystemRole,
		schema.IdentityRole.IsActive, schema.IdentityRole.CreatedAt, schema.IdentityRole.UpdatedAt,
	)

	_, err = store.pool.Exec(context, query,
		role.ID,
		role.Name,
		role.Description,
		permissionsJSON,
		role.RoleLevel,
		role.IsSystemRole,
		role.IsActive,
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "A role with this name already exists")
	}

	return nil
}

/*
Update persists the mutable fields (description, permissions, active flag).

The name, level, and system flag are immutable after creation.

Parameters:
  - context: context.Context
  - role: *Role

Returns:
  - error: apperr.NotFound when the role does not exist, or execution failure
*/
func (store *PostgresStore) Update(context context.Context, role *Role) error {
	role.UpdatedAt = time.Now()

	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("postgres_role_store_marshal_failed: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1`,
		schema.IdentityRole.Table,
		schema.IdentityRole.Description, schema.IdentityRole.Permissions,
		schema.IdentityRole.IsActive, schema.IdentityRole.UpdatedAt,
		schema.IdentityRole.ID,
	)

	tag, err := store.pool.Exec(context, query,
		role.ID,
		role.Description,
		permissionsJSON,
		role.IsActive,
		role.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Role update conflicts with an existing role")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Role")
	}

	return nil
}

// FindByID retrieves a role by primary key, active or not.
func (store *PostgresStore) FindByID(context context.Context, id string) (*Role, error) {
	return store.findBy(context, schema.IdentityRole.ID, id)
}

// FindByName retrieves a role by its unique name, active or not.
func (store *PostgresStore) FindByName(context context.Context, name string) (*Role, error) {
	return store.findBy(context, schema.IdentityRole.Name, name)
}

func (store *PostgresStore) findBy(context context.Context, column, value string) (*Role, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1`,
		selectColumns(), schema.IdentityRole.Table, column,
	)

	role, err := scanRole(store.pool.QueryRow(context, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_role_store_find_failed: %w", err)
	}

	return role, nil
}

/*
ListAll returns every role ordered by level then name.

Deactivated roles are included so the registry snapshot can resolve them
(fail-closed) and admin listings can show the full picture.
*/
func (store *PostgresStore) ListAll(context context.Context) ([]Role, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s ORDER BY %s ASC, %s ASC`,
		selectColumns(), schema.IdentityRole.Table,
		schema.IdentityRole.RoleLevel, schema.IdentityRole.Name,
	)

	rows, err := store.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_store_list_failed: %w", err)
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_role_store_scan_failed: %w", err)
		}
		result = append(result, *role)
	}

	return result, rows.Err()
}

// selectColumns returns the canonical SELECT column list for identity.role.
func selectColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		schema.IdentityRole.ID, schema.IdentityRole.Name, schema.IdentityRole.Description,
		schema.IdentityRole.Permissions, schema.IdentityRole.RoleLevel, schema.IdentityRole.IsSystemRole,
		schema.IdentityRole.IsActive, schema.IdentityRole.CreatedAt, schema.IdentityRole.UpdatedAt,
	)
}

// scanRole hydrates a Role from a row matching selectColumns order.
func scanRole(row pgx.Row) (*Role, error) {
	role := &Role{}
	var permissionsJSON []byte

	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&permissionsJSON,
		&role.RoleLevel,
		&role.IsSystemRole,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(permissionsJSON) > 0 {
		if err := json.Unmarshal(permissionsJSON, &role.Permissions); err != nil {
			return nil, fmt.Errorf("postgres_role_store_permissions_corrupt: %w", err)
		}
	}
	if role.Permissions == nil {
		role.Permissions = sec.PermissionSet{}
	}

	return role, nil
}
