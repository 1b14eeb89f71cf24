// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package audit provides the append-only audit trail for security-relevant
events: role changes, verification decisions, session revocations, invite
redemptions.

# Architecture

Writes are decoupled from the request path. Services enqueue entries into a
bounded in-memory queue and a single background worker persists them. A full
queue drops the entry (with a log line and a metric bump) rather than
blocking or failing the business operation: the audit trail is best-effort
by contract, and an authorization decision must never wait on it.

Entries are immutable once persisted. There is no update or delete path.
*/
package audit

import (
	"time"
)

// Entry is a single audit record.
type Entry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Outcome    string         `json:"outcome"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Outcomes recorded in the audit trail.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeDenied  = "DENIED"
	OutcomeFailure = "FAILURE"
)

// Actions recorded in the audit trail.
const (
	ActionUserRegistered      = "user.registered"
	ActionUserStatusChanged   = "user.status_changed"
	ActionLoginSucceeded      = "auth.login_succeeded"
	ActionLoginFailed         = "auth.login_failed"
	ActionSessionRevoked      = "auth.session_revoked"
	ActionSessionRefreshed    = "auth.session_refreshed"
	ActionPasswordChanged     = "auth.password_changed"
	ActionMFAChanged          = "auth.mfa_changed"
	ActionInviteCreated       = "auth.invite_created"
	ActionInviteRedeemed      = "auth.invite_redeemed"
	ActionInviteDisabled      = "auth.invite_disabled"
	ActionRoleCreated         = "role.created"
	ActionRoleUpdated         = "role.updated"
	ActionRoleDeactivated     = "role.deactivated"
	ActionRoleAssigned        = "role.assigned"
	ActionVerificationSubmit  = "verification.submitted"
	ActionVerificationDecide  = "verification.decided"
	ActionVerificationCancel  = "verification.cancelled"
	ActionVerificationExpired = "verification.expired"
)

// Entity types referenced by audit entries.
const (
	EntityUser         = "user"
	EntityRole         = "role"
	EntitySession      = "session"
	EntityVerification = "verification_record"
	EntityInviteCode   = "invite_code"
)
