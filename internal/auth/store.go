// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"time"
)

// UserStore persists accounts and profiles.
//
// It also implements verification.UserLevels via CurrentLevel/SetLevel.
type UserStore interface {
	// Insert persists a new user and their profile in one transaction.
	Insert(ctx context.Context, user *User, profile *Profile) error

	// FindByID retrieves an account by primary key, excluding soft-deleted rows.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail retrieves an account by email, excluding soft-deleted rows.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByPhone retrieves an account by phone, excluding soft-deleted rows.
	FindByPhone(ctx context.Context, phone string) (*User, error)

	// FindProfile retrieves the 1:1 profile row.
	FindProfile(ctx context.Context, userID string) (*Profile, error)

	// UpdateProfile persists mutable profile fields.
	UpdateProfile(ctx context.Context, profile *Profile) error

	// UpdateStatus changes the account lifecycle state.
	UpdateStatus(ctx context.Context, userID string, status Status) error

	// UpdateRole changes the account's role reference.
	UpdateRole(ctx context.Context, userID string, roleID string) error

	// UpdateLastLogin stamps a successful authentication.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdatePassword replaces the stored credential digest.
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error

	// SetMFAEnabled toggles the multi-factor requirement.
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error

	// CurrentLevel returns the verification level (verification.UserLevels).
	CurrentLevel(ctx context.Context, userID string) (int, error)

	// SetLevel updates the verification level (verification.UserLevels).
	SetLevel(ctx context.Context, userID string, level int) error
}

// SessionStore persists sessions. Token hashes are immutable after Insert.
type SessionStore interface {
	// Insert persists a new session with both token hashes.
	Insert(ctx context.Context, session *Session) error

	// FindByAccessHash retrieves a session by access token digest.
	FindByAccessHash(ctx context.Context, hash string) (*Session, error)

	// FindByRefreshHash retrieves a session by refresh token digest.
	FindByRefreshHash(ctx context.Context, hash string) (*Session, error)

	// TouchActivity updates the last-activity timestamp, best effort.
	TouchActivity(ctx context.Context, sessionID string, at time.Time) error

	// Revoke marks a session revoked. Idempotent: revoking a revoked
	// session is a no-op, not an error.
	Revoke(ctx context.Context, sessionID string, at time.Time) error

	// RevokeAllForUser revokes every active session of a user, returning
	// how many were affected.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error)

	// ListActiveForUser returns non-revoked, non-expired sessions.
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]Session, error)
}

// InviteStore persists invite codes.
type InviteStore interface {
	// Insert persists a new invite code.
	Insert(ctx context.Context, invite *InviteCode) error

	// Redeem atomically consumes one use of the code matching hash: the
	// UPDATE only matches rows that are unexpired and under their use
	// limit, so two concurrent redemptions of a single-use code cannot
	// both succeed.
	Redeem(ctx context.Context, codeHash string, userID string, now time.Time) (*InviteCode, error)

	// Release gives one use back after a redemption whose registration
	// failed, so the failure does not burn the code.
	Release(ctx context.Context, inviteID string) error

	// Deactivate disables an invite so it can no longer be redeemed.
	// Idempotent.
	Deactivate(ctx context.Context, inviteID string) error

	// ListByCreator returns invites created by a user, newest first.
	ListByCreator(ctx context.Context, creatorID string) ([]InviteCode, error)
}

// Challenge is a pending multi-factor login held in Redis between the
// password step and the OTP step.
type Challenge struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Channel    string    `json:"channel"`
	CodeHash   string    `json:"code_hash"`
	Attempts   int       `json:"attempts"`
	DeviceName string    `json:"device_name,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChallengeRepository holds pending MFA challenges with TTL.
type ChallengeRepository interface {
	// Put stores a challenge under its ID for the given TTL.
	Put(ctx context.Context, challenge *Challenge, ttl time.Duration) error

	// Get retrieves a challenge, or NotFound after expiry.
	Get(ctx context.Context, id string) (*Challenge, error)

	// Delete removes a challenge (on success or attempt exhaustion).
	Delete(ctx context.Context, id string) error
}

// OTPRepository holds one-time passwords and channel confirmations with TTL.
type OTPRepository interface {
	// Put stores the code digest for a user/channel pair.
	Put(ctx context.Context, userID, channel, codeHash string, ttl time.Duration) error

	// Consume verifies a code and deletes it on success. A wrong code
	// counts an attempt; exhausting attempts deletes the code.
	Consume(ctx context.Context, userID, channel, codeHash string) (bool, error)

	// MarkConfirmed records that the channel was proven, for
	// WasRecentlyConfirmed.
	MarkConfirmed(ctx context.Context, userID, channel string, ttl time.Duration) error

	// WasRecentlyConfirmed implements verification.ChallengeChecker.
	WasRecentlyConfirmed(ctx context.Context, userID, channel string) (bool, error)
}
