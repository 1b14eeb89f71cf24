// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

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

// # User Store

// PostgresUserStore implements [UserStore] using pgx.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a Postgres-backed user store.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

/*
Insert persists a new user and their profile atomically.

Parameters:
  - context: context.Context
  - user: *User (ID and timestamps filled in when zero)
  - profile: *Profile (UserID is stamped from the user)

Returns:
  - error: apperr.Conflict on duplicate email/phone, or execution failure
*/
func (store *PostgresUserStore) Insert(context context.Context, user *User, profile *Profile) error {
	if user.ID == "" {
		user.ID = uuidv7.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	profile.UserID = user.ID
	profile.CreatedAt = now
	profile.UpdatedAt = now

	tx, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_user_store_begin_failed: %w", err)
	}
	defer func() { _ = tx.Rollback(context) }()

	userQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`,
		schema.IdentityUser.Table,
		schema.IdentityUser.ID, schema.IdentityUser.Email, schema.IdentityUser.Phone,
		schema.IdentityUser.Password, schema.IdentityUser.Status, schema.IdentityUser.RoleID,
		schema.IdentityUser.VerificationLevel, schema.IdentityUser.MFAEnabled,
		schema.IdentityUser.CreatedAt, schema.IdentityUser.UpdatedAt,
	)
	if _, err := tx.Exec(context, userQuery,
		user.ID, user.Email, user.Phone, user.PasswordHash, user.Status, user.RoleID,
		user.VerificationLevel, user.MFAEnabled, user.CreatedAt, user.UpdatedAt,
	); err != nil {
		return dberr.Wrap(err, "An account with this email or phone already exists")
	}

	profileQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.IdentityProfile.Table,
		schema.IdentityProfile.UserID, schema.IdentityProfile.FirstName, schema.IdentityProfile.LastName,
		schema.IdentityProfile.DisplayName, schema.IdentityProfile.AvatarURL, schema.IdentityProfile.Country,
		schema.IdentityProfile.CreatedAt, schema.IdentityProfile.UpdatedAt,
	)
	if _, err := tx.Exec(context, profileQuery,
		profile.UserID, profile.FirstName, profile.LastName, profile.DisplayName,
		profile.AvatarURL, profile.Country, profile.CreatedAt, profile.UpdatedAt,
	); err != nil {
		return dberr.Wrap(err, "Profile already exists for this account")
	}

	if err := tx.Commit(context); err != nil {
		return fmt.Errorf("postgres_user_store_commit_failed: %w", err)
	}
	return nil
}

// FindByID retrieves an account by primary key, excluding soft-deleted rows.
func (store *PostgresUserStore) FindByID(context context.Context, id string) (*User, error) {
	return store.findBy(context, schema.IdentityUser.ID, id)
}

// FindByEmail retrieves an account by email, excluding soft-deleted rows.
func (store *PostgresUserStore) FindByEmail(context context.Context, email string) (*User, error) {
	return store.findBy(context, schema.IdentityUser.Email, email)
}

// FindByPhone retrieves an account by phone, excluding soft-deleted rows.
func (store *PostgresUserStore) FindByPhone(context context.Context, phone string) (*User, error) {
	return store.findBy(context, schema.IdentityUser.Phone, phone)
}

func (store *PostgresUserStore) findBy(context context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, COALESCE(%s, ''), %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL`,
		schema.IdentityUser.ID, schema.IdentityUser.Email, schema.IdentityUser.Phone,
		schema.IdentityUser.Password, schema.IdentityUser.Status, schema.IdentityUser.RoleID,
		schema.IdentityUser.VerificationLevel, schema.IdentityUser.MFAEnabled,
		schema.IdentityUser.LastLoginAt, schema.IdentityUser.CreatedAt, schema.IdentityUser.UpdatedAt,
		schema.IdentityUser.Table,
		column, schema.IdentityUser.DeletedAt,
	)

	user := &User{}
	err := store.pool.QueryRow(context, query, value).Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Status,
		&user.RoleID,
		&user.VerificationLevel,
		&user.MFAEnabled,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, dberr.Wrap(err, "")
	}

	return user, nil
}

// FindProfile retrieves the 1:1 profile row.
func (store *PostgresUserStore) FindProfile(context context.Context, userID string) (*Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, COALESCE(%s, ''), COALESCE(%s, ''), %s, %s
		FROM %s WHERE %s = $1`,
		schema.IdentityProfile.UserID, schema.IdentityProfile.FirstName, schema.IdentityProfile.LastName,
		schema.IdentityProfile.DisplayName, schema.IdentityProfile.AvatarURL, schema.IdentityProfile.Country,
		schema.IdentityProfile.CreatedAt, schema.IdentityProfile.UpdatedAt,
		schema.IdentityProfile.Table, schema.IdentityProfile.UserID,
	)

	profile := &Profile{}
	err := store.pool.QueryRow(context, query, userID).Scan(
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.Country,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Profile")
		}
		return nil, dberr.Wrap(err, "")
	}

	return profile, nil
}

// UpdateProfile persists mutable profile fields.
func (store *PostgresUserStore) UpdateProfile(context context.Context, profile *Profile) error {
	profile.UpdatedAt = time.Now()

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7
		WHERE %s = $1`,
		schema.IdentityProfile.Table,
		schema.IdentityProfile.FirstName, schema.IdentityProfile.LastName,
		schema.IdentityProfile.DisplayName, schema.IdentityProfile.AvatarURL,
		schema.IdentityProfile.Country, schema.IdentityProfile.UpdatedAt,
		schema.IdentityProfile.UserID,
	)

	tag, err := store.pool.Exec(context, query,
		profile.UserID, profile.FirstName, profile.LastName, profile.DisplayName,
		profile.AvatarURL, profile.Country, profile.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Profile update conflict")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Profile")
	}
	return nil
}

// UpdateStatus changes the account lifecycle state.
func (store *PostgresUserStore) UpdateStatus(context context.Context, userID string, status Status) error {
	return store.updateColumn(context, userID, schema.IdentityUser.Status, string(status))
}

// UpdateRole changes the account's role reference.
func (store *PostgresUserStore) UpdateRole(context context.Context, userID string, roleID string) error {
	return store.updateColumn(context, userID, schema.IdentityUser.RoleID, roleID)
}

// UpdateLastLogin stamps a successful authentication.
func (store *PostgresUserStore) UpdateLastLogin(context context.Context, userID string, at time.Time) error {
	return store.updateColumn(context, userID, schema.IdentityUser.LastLoginAt, at)
}

// SetMFAEnabled toggles the multi-factor requirement.
func (store *PostgresUserStore) SetMFAEnabled(context context.Context, userID string, enabled bool) error {
	return store.updateColumn(context, userID, schema.IdentityUser.MFAEnabled, enabled)
}

// UpdatePassword replaces the stored credential digest.
func (store *PostgresUserStore) UpdatePassword(context context.Context, userID string, passwordHash string) error {
	return store.updateColumn(context, userID, schema.IdentityUser.Password, passwordHash)
}

// SetLevel updates the verification level (verification.UserLevels).
func (store *PostgresUserStore) SetLevel(context context.Context, userID string, level int) error {
	return store.updateColumn(context, userID, schema.IdentityUser.VerificationLevel, level)
}

// CurrentLevel returns the verification level (verification.UserLevels).
func (store *PostgresUserStore) CurrentLevel(context context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL`,
		schema.IdentityUser.VerificationLevel, schema.IdentityUser.Table,
		schema.IdentityUser.ID, schema.IdentityUser.DeletedAt,
	)

	var level int
	err := store.pool.QueryRow(context, query, userID).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound("Account")
		}
		return 0, dberr.Wrap(err, "")
	}
	return level, nil
}

func (store *PostgresUserStore) updateColumn(context context.Context, userID, column string, value any) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL`,
		schema.IdentityUser.Table, column, schema.IdentityUser.UpdatedAt,
		schema.IdentityUser.ID, schema.IdentityUser.DeletedAt,
	)

	tag, err := store.pool.Exec(context, query, userID, value, time.Now())
	if err != nil {
		return dberr.Wrap(err, "Account update conflict")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account")
	}
	return nil
}

// # Session Store

// PostgresSessionStore implements [SessionStore] using pgx.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionStore creates a Postgres-backed session store.
func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Insert persists a new session with both token hashes.
func (store *PostgresSessionStore) Insert(context context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = uuidv7.New()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = now
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		schema.IdentitySession.Table,
		schema.IdentitySession.ID, schema.IdentitySession.UserID,
		schema.IdentitySession.AccessTokenHash, schema.IdentitySession.RefreshTokenHash,
		schema.IdentitySession.DeviceName, schema.IdentitySession.IPAddress,
		schema.IdentitySession.UserAgent, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.AccessExpiresAt, schema.IdentitySession.RefreshExpiresAt,
		schema.IdentitySession.LastActivityAt, schema.IdentitySession.CreatedAt,
	)

	_, err := store.pool.Exec(context, query,
		session.ID, session.UserID,
		session.AccessTokenHash, session.RefreshTokenHash,
		session.DeviceName, session.IPAddress, session.UserAgent, session.IsRevoked,
		session.AccessExpiresAt, session.RefreshExpiresAt,
		session.LastActivityAt, session.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Session token collision")
	}
	return nil
}

// FindByAccessHash retrieves a session by access token digest.
func (store *PostgresSessionStore) FindByAccessHash(context context.Context, hash string) (*Session, error) {
	return store.findBy(context, schema.IdentitySession.AccessTokenHash, hash)
}

// FindByRefreshHash retrieves a session by refresh token digest.
func (store *PostgresSessionStore) FindByRefreshHash(context context.Context, hash string) (*Session, error) {
	return store.findBy(context, schema.IdentitySession.RefreshTokenHash, hash)
}

func (store *PostgresSessionStore) findBy(context context.Context, column, value string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1`,
		sessionColumns(), schema.IdentitySession.Table, column,
	)

	session, err := scanSession(store.pool.QueryRow(context, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, dberr.Wrap(err, "")
	}
	return session, nil
}

// TouchActivity updates the last-activity timestamp.
func (store *PostgresSessionStore) TouchActivity(context context.Context, sessionID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.IdentitySession.Table, schema.IdentitySession.LastActivityAt, schema.IdentitySession.ID,
	)
	_, err := store.pool.Exec(context, query, sessionID, at)
	if err != nil {
		return dberr.Wrap(err, "")
	}
	return nil
}

// Revoke marks a session revoked. Already-revoked sessions are untouched, so
// the stamped RevokedAt always reflects the first revocation.
func (store *PostgresSessionStore) Revoke(context context.Context, sessionID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = TRUE, %s = $2
		WHERE %s = $1 AND %s = FALSE`,
		schema.IdentitySession.Table,
		schema.IdentitySession.IsRevoked, schema.IdentitySession.RevokedAt,
		schema.IdentitySession.ID, schema.IdentitySession.IsRevoked,
	)
	_, err := store.pool.Exec(context, query, sessionID, at)
	if err != nil {
		return dberr.Wrap(err, "")
	}
	return nil
}

// RevokeAllForUser revokes every active session of a user.
func (store *PostgresSessionStore) RevokeAllForUser(context context.Context, userID string, at time.Time) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = TRUE, %s = $2
		WHERE %s = $1 AND %s = FALSE`,
		schema.IdentitySession.Table,
		schema.IdentitySession.IsRevoked, schema.IdentitySession.RevokedAt,
		schema.IdentitySession.UserID, schema.IdentitySession.IsRevoked,
	)
	tag, err := store.pool.Exec(context, query, userID, at)
	if err != nil {
		return 0, dberr.Wrap(err, "")
	}
	return int(tag.RowsAffected()), nil
}

// ListActiveForUser returns non-revoked sessions whose refresh window is open.
func (store *PostgresSessionStore) ListActiveForUser(context context.Context, userID string, now time.Time) ([]Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = FALSE AND %s > $2
		ORDER BY %s DESC`,
		sessionColumns(), schema.IdentitySession.Table,
		schema.IdentitySession.UserID, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.RefreshExpiresAt,
		schema.IdentitySession.LastActivityAt,
	)

	rows, err := store.pool.Query(context, query, userID, now)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_session_store_scan_failed: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func sessionColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, COALESCE(%s, ''), COALESCE(%s, ''), COALESCE(%s, ''), %s, %s, %s, %s, %s, %s",
		schema.IdentitySession.ID, schema.IdentitySession.UserID,
		schema.IdentitySession.AccessTokenHash, schema.IdentitySession.RefreshTokenHash,
		schema.IdentitySession.DeviceName, schema.IdentitySession.IPAddress,
		schema.IdentitySession.UserAgent, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.AccessExpiresAt, schema.IdentitySession.RefreshExpiresAt,
		schema.IdentitySession.LastActivityAt, schema.IdentitySession.RevokedAt,
		schema.IdentitySession.CreatedAt,
	)
}

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.AccessTokenHash,
		&session.RefreshTokenHash,
		&session.DeviceName,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsRevoked,
		&session.AccessExpiresAt,
		&session.RefreshExpiresAt,
		&session.LastActivityAt,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// # Invite Store

// PostgresInviteStore implements [InviteStore] using pgx.
type PostgresInviteStore struct {
	pool *pgxpool.Pool
}

// NewPostgresInviteStore creates a Postgres-backed invite store.
func NewPostgresInviteStore(pool *pgxpool.Pool) *PostgresInviteStore {
	return &PostgresInviteStore{pool: pool}
}

// Insert persists a new invite code.
func (store *PostgresInviteStore) Insert(context context.Context, invite *InviteCode) error {
	if invite.ID == "" {
		invite.ID = uuidv7.New()
	}
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.IdentityInviteCode.Table,
		schema.IdentityInviteCode.ID, schema.IdentityInviteCode.CodeHash,
		schema.IdentityInviteCode.RoleID, schema.IdentityInviteCode.CreatedBy,
		schema.IdentityInviteCode.MaxUses, schema.IdentityInviteCode.UsedCount,
		schema.IdentityInviteCode.IsActive,
		schema.IdentityInviteCode.ExpiresAt, schema.IdentityInviteCode.CreatedAt,
	)

	_, err := store.pool.Exec(context, query,
		invite.ID, invite.CodeHash, invite.RoleID, invite.CreatedBy,
		invite.MaxUses, invite.UsedCount, invite.IsActive, invite.ExpiresAt, invite.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Invite code collision")
	}
	return nil
}

/*
Redeem atomically consumes one use of the invite matching codeHash.

The conditional UPDATE matches only active, unexpired rows below their use
limit; RETURNING hydrates the post-redemption state. No rows matched means
the code is unknown, disabled, expired, or exhausted; the caller gets the
same error for all four so codes cannot be enumerated.
*/
func (store *PostgresInviteStore) Redeem(context context.Context, codeHash string, userID string, now time.Time) (*InviteCode, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = %s + 1, %s = NULLIF($2, '')
		WHERE %s = $1 AND %s = TRUE AND %s > $3 AND %s < %s
		RETURNING %s, %s, %s, %s, %s, %s, %s, COALESCE(%s, ''), %s, %s`,
		schema.IdentityInviteCode.Table,
		schema.IdentityInviteCode.UsedCount, schema.IdentityInviteCode.UsedCount,
		schema.IdentityInviteCode.RedeemedBy,
		schema.IdentityInviteCode.CodeHash, schema.IdentityInviteCode.IsActive,
		schema.IdentityInviteCode.ExpiresAt,
		schema.IdentityInviteCode.UsedCount, schema.IdentityInviteCode.MaxUses,
		schema.IdentityInviteCode.ID, schema.IdentityInviteCode.CodeHash,
		schema.IdentityInviteCode.RoleID, schema.IdentityInviteCode.CreatedBy,
		schema.IdentityInviteCode.MaxUses, schema.IdentityInviteCode.UsedCount,
		schema.IdentityInviteCode.IsActive,
		schema.IdentityInviteCode.RedeemedBy, schema.IdentityInviteCode.ExpiresAt,
		schema.IdentityInviteCode.CreatedAt,
	)

	invite := &InviteCode{}
	err := store.pool.QueryRow(context, query, codeHash, userID, now).Scan(
		&invite.ID,
		&invite.CodeHash,
		&invite.RoleID,
		&invite.CreatedBy,
		&invite.MaxUses,
		&invite.UsedCount,
		&invite.IsActive,
		&invite.RedeemedBy,
		&invite.ExpiresAt,
		&invite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Unprocessable("Invite code is invalid or no longer available")
		}
		return nil, dberr.Wrap(err, "")
	}
	return invite, nil
}

// Release gives one use back after a failed registration. The guard keeps
// the counter from going negative if the release itself is raced.
func (store *PostgresInviteStore) Release(context context.Context, inviteID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = %s - 1
		WHERE %s = $1 AND %s > 0`,
		schema.IdentityInviteCode.Table,
		schema.IdentityInviteCode.UsedCount, schema.IdentityInviteCode.UsedCount,
		schema.IdentityInviteCode.ID, schema.IdentityInviteCode.UsedCount,
	)

	if _, err := store.pool.Exec(context, query, inviteID); err != nil {
		return dberr.Wrap(err, "")
	}
	return nil
}

// Deactivate disables an invite. Idempotent; unknown IDs are NotFound.
func (store *PostgresInviteStore) Deactivate(context context.Context, inviteID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = FALSE WHERE %s = $1`,
		schema.IdentityInviteCode.Table,
		schema.IdentityInviteCode.IsActive, schema.IdentityInviteCode.ID,
	)

	tag, err := store.pool.Exec(context, query, inviteID)
	if err != nil {
		return dberr.Wrap(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Invite code")
	}
	return nil
}

// ListByCreator returns invites created by a user, newest first.
func (store *PostgresInviteStore) ListByCreator(context context.Context, creatorID string) ([]InviteCode, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, COALESCE(%s, ''), %s, %s
		FROM %s WHERE %s = $1 ORDER BY %s DESC`,
		schema.IdentityInviteCode.ID, schema.IdentityInviteCode.CodeHash,
		schema.IdentityInviteCode.RoleID, schema.IdentityInviteCode.CreatedBy,
		schema.IdentityInviteCode.MaxUses, schema.IdentityInviteCode.UsedCount,
		schema.IdentityInviteCode.IsActive,
		schema.IdentityInviteCode.RedeemedBy, schema.IdentityInviteCode.ExpiresAt,
		schema.IdentityInviteCode.CreatedAt,
		schema.IdentityInviteCode.Table, schema.IdentityInviteCode.CreatedBy,
		schema.IdentityInviteCode.CreatedAt,
	)

	rows, err := store.pool.Query(context, query, creatorID)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}
	defer rows.Close()

	var invites []InviteCode
	for rows.Next() {
		invite := InviteCode{}
		if err := rows.Scan(
			&invite.ID, &invite.CodeHash, &invite.RoleID, &invite.CreatedBy,
			&invite.MaxUses, &invite.UsedCount, &invite.IsActive, &invite.RedeemedBy,
			&invite.ExpiresAt, &invite.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_invite_store_scan_failed: %w", err)
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}
