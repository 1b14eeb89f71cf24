// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package auth implements credential and session management: registration,
login with optional multi-factor challenges, opaque bearer sessions with
single-use refresh rotation, invite codes, and account status moderation.

# Token Model

Sessions are opaque: the client holds random tokens, the database holds only
their SHA-256 digests, written once at issuance and never updated. Validation
is a digest lookup. Signed JWT assertions exist solely as a downstream
hand-off format (see Introspect) and are never accepted back as credentials.
*/
package auth

import (
	"time"

	"github.com/trustflow/identity/internal/platform/sec"
)

// # Account Status

// Status is the lifecycle state of a user account.
type Status string

const (
	// StatusPending: registered but not yet usable (e.g. awaiting first
	// channel confirmation when the deployment requires it).
	StatusPending Status = "PENDING"

	// StatusActive: may authenticate and hold sessions.
	StatusActive Status = "ACTIVE"

	// StatusSuspended: moderation hold; sessions are revoked on suspension.
	StatusSuspended Status = "SUSPENDED"

	// StatusLocked: security hold (e.g. credential stuffing detected).
	StatusLocked Status = "LOCKED"

	// StatusAwaitingApproval: registration complete, operator approval pending.
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"

	// StatusDeleted: soft-deleted; terminal.
	StatusDeleted Status = "DELETED"
)

// CanAuthenticate reports whether an account in this status may log in.
func (s Status) CanAuthenticate() bool {
	return s == StatusActive
}

// CanTransitionTo reports whether the account lifecycle permits the change.
// DELETED is terminal; everything else may move between the non-terminal
// states under moderation.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusDeleted {
		return false
	}
	switch next {
	case StatusPending, StatusActive, StatusSuspended, StatusLocked,
		StatusAwaitingApproval, StatusDeleted:
		return next != s
	}
	return false
}

// # Entities

// User is a registered account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`

	// PasswordHash is the bcrypt digest; never serialized.
	PasswordHash string `json:"-"`

	Status Status `json:"status"`

	// RoleID references identity.role. Legacy rows may carry a role name
	// here instead of an ID; resolution falls back to name lookup.
	RoleID string `json:"role_id"`

	// VerificationLevel is the trust tier granted by the verification engine.
	VerificationLevel int `json:"verification_level"`

	MFAEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Profile is the user's non-credential metadata, stored 1:1 with the account.
type Profile struct {
	UserID      string    `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session is one device's authenticated presence.
//
// Token hashes are written once at creation and never updated; refresh
// rotation revokes this row and creates a new one.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	AccessTokenHash  string `json:"-"`
	RefreshTokenHash string `json:"-"`

	DeviceName string `json:"device_name,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`

	IsRevoked        bool       `json:"is_revoked"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	RefreshExpiresAt time.Time  `json:"refresh_expires_at"`
	LastActivityAt   time.Time  `json:"last_activity_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// InviteCode grants a role at registration. The code itself is opaque; only
// its SHA-256 digest is stored.
type InviteCode struct {
	ID        string `json:"id"`
	CodeHash  string `json:"-"`
	RoleID    string `json:"role_id"`
	CreatedBy string `json:"created_by"`

	MaxUses   int `json:"max_uses"`
	UsedCount int `json:"used_count"`

	// IsActive gates redemption. The creator can disable a leaked code
	// before it expires.
	IsActive bool `json:"is_active"`

	// RedeemedBy is the last redeeming user, kept for single-use codes.
	RedeemedBy string `json:"redeemed_by,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is the one and only time plaintext session tokens exist outside
// the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult is the outcome of Authenticate: either a token pair, or an MFA
// challenge the client must complete first.
type LoginResult struct {
	MFARequired bool       `json:"mfa_required"`
	ChallengeID string     `json:"challenge_id,omitempty"`
	Tokens      *TokenPair `json:"tokens,omitempty"`
	User        *User      `json:"user,omitempty"`
}

// principalFor assembles the request principal from a user, session, and
// resolved role.
func principalFor(user *User, session *Session, roleName string, roleLevel int, permissions sec.PermissionSet) *sec.Principal {
	return &sec.Principal{
		UserID:            user.ID,
		SessionID:         session.ID,
		Email:             user.Email,
		RoleID:            user.RoleID,
		RoleName:          roleName,
		RoleLevel:         roleLevel,
		VerificationLevel: user.VerificationLevel,
		Permissions:       permissions,
	}
}
