// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/metrics"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/internal/platform/validate"
	"github.com/trustflow/identity/internal/roles"
	"github.com/trustflow/identity/pkg/keymutex"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// assertionTTL bounds signed identity assertions handed to downstream
// services; deliberately much shorter than the session itself.
const assertionTTL = 5 * time.Minute

// dummyBcryptHash is compared against when the identifier is unknown, so a
// failed login costs the same whether the account exists or not.
const dummyBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// errInvalidCredential is the single error for every credential mistake.
// Unknown identifier, wrong password, and soft-deleted accounts are
// indistinguishable to the caller.
var errInvalidCredential = apperr.Unauthorized("Invalid credentials")

// auditRecorder is the slice of the audit recorder this service needs.
type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Config carries the tunable knobs of the auth service.
type Config struct {
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RegistrationEnabled bool
}

// Deps bundles the service's collaborators.
type Deps struct {
	Users      UserStore
	Sessions   SessionStore
	Invites    InviteStore
	Challenges ChallengeRepository
	OTPs       OTPRepository
	Resolver   *roles.Resolver
	Registry   *roles.Registry
	Signer     *sec.TokenService
	Audit      auditRecorder
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Service implements credential and session management.
type Service struct {
	users      UserStore
	sessions   SessionStore
	invites    InviteStore
	challenges ChallengeRepository
	otps       OTPRepository
	resolver   *roles.Resolver
	registry   *roles.Registry
	signer     *sec.TokenService
	audit      auditRecorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	config     Config

	// userLocks serializes refresh rotation per user so a raced refresh
	// cannot mint two sessions from one token.
	userLocks *keymutex.KeyMutex
}

// NewService creates the auth service.
func NewService(deps Deps, config Config) *Service {
	return &Service{
		users:      deps.Users,
		sessions:   deps.Sessions,
		invites:    deps.Invites,
		challenges: deps.Challenges,
		otps:       deps.OTPs,
		resolver:   deps.Resolver,
		registry:   deps.Registry,
		signer:     deps.Signer,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		config:     config,
		userLocks:  keymutex.New(),
	}
}

// DeviceInfo describes the client establishing a session.
type DeviceInfo struct {
	DeviceName string `json:"device_name,omitempty"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// # Registration

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// RequestedRole may name a system role other than BUYER; such accounts
	// start in AWAITING_APPROVAL and need operator activation.
	RequestedRole string `json:"requested_role,omitempty"`

	// InviteCode, when present, grants the invite's role immediately.
	InviteCode string `json:"invite_code,omitempty"`
}

/*
Register creates a new account.

Role assignment precedence: invite code > requested role > BUYER. Invited
accounts activate immediately; requested elevated roles wait for approval.

Returns:
  - *User: The created account
  - error: Validation, conflict, or invite failure
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if !service.config.RegistrationEnabled {
		return nil, apperr.ServiceUnavailable("Registration is currently disabled")
	}

	v := &validate.Validator{}
	v.Required("email", input.Email).
		Email("email", input.Email).
		Password("password", input.Password).
		Required("first_name", input.FirstName).
		MaxLen("first_name", input.FirstName, 100).
		Required("last_name", input.LastName).
		MaxLen("last_name", input.LastName, 100)
	if input.Phone != "" {
		v.Phone("phone", input.Phone)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	status := StatusActive
	var roleID string
	var redeemedInvite *InviteCode

	switch {
	case input.InviteCode != "":
		invite, err := service.invites.Redeem(ctx, sec.HashToken(input.InviteCode), "", time.Now())
		if err != nil {
			return nil, err
		}
		roleID = invite.RoleID
		redeemedInvite = invite

	case input.RequestedRole != "" && input.RequestedRole != roles.RoleBuyer:
		requested, ok := service.registry.GetByName(input.RequestedRole)
		if !ok || !requested.IsActive || requested.RoleLevel > roles.LevelSeller {
			return nil, apperr.ValidationError("Invalid requested role",
				apperr.FieldError{Field: "requested_role", Message: "Role is not open for registration"})
		}
		roleID = requested.ID
		status = StatusAwaitingApproval

	default:
		buyer, ok := service.registry.GetByName(roles.RoleBuyer)
		if !ok {
			return nil, apperr.Internal(nil)
		}
		roleID = buyer.ID
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &User{
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: passwordHash,
		Status:       status,
		RoleID:       roleID,
	}
	profile := &Profile{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		DisplayName: input.FirstName + " " + input.LastName,
	}

	if err := service.users.Insert(ctx, user, profile); err != nil {
		if redeemedInvite != nil {
			// The invite was redeemed before the account existed; give the
			// use back so a failed registration does not burn the code.
			if releaseErr := service.invites.Release(ctx, redeemedInvite.ID); releaseErr != nil {
				service.logger.Error("invite_release_failed",
					slog.String("invite_id", redeemedInvite.ID), slog.Any("error", releaseErr))
			}
		}
		return nil, err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    user.ID,
		Action:     audit.ActionUserRegistered,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"status": string(user.Status)},
	})
	if redeemedInvite != nil {
		service.audit.Record(ctx, audit.Entry{
			ActorID:    user.ID,
			Action:     audit.ActionInviteRedeemed,
			EntityType: audit.EntityInviteCode,
			EntityID:   redeemedInvite.ID,
			Outcome:    audit.OutcomeSuccess,
			Metadata:   map[string]any{"role_id": redeemedInvite.RoleID},
		})
	}

	service.logger.Info("user_registered",
		slog.String("user_id", user.ID),
		slog.String("status", string(user.Status)),
	)
	return user, nil
}

// # Login

/*
Authenticate verifies credentials and either issues a session or opens a
multi-factor challenge. The identifier may be an email address or a phone
number.

Every credential mistake returns the same UNAUTHORIZED error; account state
problems (suspended, locked, awaiting approval) are reported explicitly
because they are only reachable after the password matched.
*/
func (service *Service) Authenticate(ctx context.Context, identifier, password string, device DeviceInfo) (*LoginResult, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	user, err := service.findByIdentifier(lookupCtx, identifier)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			// Burn a bcrypt compare so unknown identifiers cost the same
			// as wrong passwords.
			sec.CheckPasswordHash(password, dummyBcryptHash)
			service.countLogin("invalid_credential")
			return nil, errInvalidCredential
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		service.countLogin("invalid_credential")
		service.audit.Record(ctx, audit.Entry{
			ActorID:    user.ID,
			Action:     audit.ActionLoginFailed,
			EntityType: audit.EntityUser,
			EntityID:   user.ID,
			Outcome:    audit.OutcomeDenied,
			IPAddress:  device.IPAddress,
		})
		return nil, errInvalidCredential
	}

	if err := service.checkLoginStatus(user); err != nil {
		return nil, err
	}

	if user.MFAEnabled {
		result, err := service.openChallenge(ctx, user, device)
		if err != nil {
			return nil, err
		}
		service.countLogin("mfa_required")
		return result, nil
	}

	return service.completeLogin(ctx, user, device)
}

// findByIdentifier routes the login identifier to the matching unique column.
func (service *Service) findByIdentifier(ctx context.Context, identifier string) (*User, error) {
	if strings.Contains(identifier, "@") {
		return service.users.FindByEmail(ctx, identifier)
	}
	return service.users.FindByPhone(ctx, identifier)
}

/*
CompleteMFA finishes a challenged login with the one-time password.

A wrong code burns one attempt; exhausting attempts destroys the challenge
and the client must authenticate again from the password step.
*/
func (service *Service) CompleteMFA(ctx context.Context, challengeID, code string, device DeviceInfo) (*LoginResult, error) {
	challenge, err := service.challenges.Get(ctx, challengeID)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Challenge is invalid or expired")
		}
		return nil, err
	}

	if sec.HashToken(code) != challenge.CodeHash {
		challenge.Attempts++
		if challenge.Attempts >= otpMaxAttempts {
			_ = service.challenges.Delete(ctx, challengeID)
			return nil, apperr.Unauthorized("Challenge is invalid or expired")
		}
		if err := service.challenges.Put(ctx, challenge, mfaChallengeTTL); err != nil {
			return nil, err
		}
		return nil, apperr.Unauthorized("Invalid code")
	}

	_ = service.challenges.Delete(ctx, challengeID)

	user, err := service.users.FindByID(ctx, challenge.UserID)
	if err != nil {
		return nil, err
	}
	if err := service.checkLoginStatus(user); err != nil {
		return nil, err
	}

	// The channel was just proven; record it for automatic verification.
	_ = service.otps.MarkConfirmed(ctx, user.ID, challenge.Channel, otpConfirmationTTL)

	device.DeviceName = coalesce(device.DeviceName, challenge.DeviceName)
	return service.completeLogin(ctx, user, device)
}

// openChallenge creates an MFA challenge and issues its one-time password.
func (service *Service) openChallenge(ctx context.Context, user *User, device DeviceInfo) (*LoginResult, error) {
	code, err := sec.GenerateOTP(otpDigits)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	channel := "email"
	if user.Phone != "" {
		channel = "phone"
	}

	challenge := &Challenge{
		ID:         uuidv7.New(),
		UserID:     user.ID,
		Channel:    channel,
		CodeHash:   sec.HashToken(code),
		DeviceName: device.DeviceName,
		IPAddress:  device.IPAddress,
		UserAgent:  device.UserAgent,
		CreatedAt:  time.Now(),
	}
	if err := service.challenges.Put(ctx, challenge, mfaChallengeTTL); err != nil {
		return nil, err
	}

	service.deliverCode(user, channel, code)

	return &LoginResult{MFARequired: true, ChallengeID: challenge.ID}, nil
}

// completeLogin issues a session after all checks passed.
func (service *Service) completeLogin(ctx context.Context, user *User, device DeviceInfo) (*LoginResult, error) {
	tokens, _, err := service.issueSession(ctx, user, device)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := service.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		service.logger.Warn("last_login_stamp_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
	user.LastLoginAt = &now

	service.countLogin("success")
	service.audit.Record(ctx, audit.Entry{
		ActorID:    user.ID,
		Action:     audit.ActionLoginSucceeded,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		Outcome:    audit.OutcomeSuccess,
		IPAddress:  device.IPAddress,
	})

	return &LoginResult{Tokens: tokens, User: user}, nil
}

// issueSession mints a token pair and persists the session row.
func (service *Service) issueSession(ctx context.Context, user *User, device DeviceInfo) (*TokenPair, *Session, error) {
	accessToken, err := sec.GenerateSecureToken(accessTokenBytes)
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}
	refreshToken, err := sec.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}

	now := time.Now()
	session := &Session{
		UserID:           user.ID,
		AccessTokenHash:  sec.HashToken(accessToken),
		RefreshTokenHash: sec.HashToken(refreshToken),
		DeviceName:       device.DeviceName,
		IPAddress:        device.IPAddress,
		UserAgent:        device.UserAgent,
		AccessExpiresAt:  now.Add(service.config.AccessTokenTTL),
		RefreshExpiresAt: now.Add(service.config.RefreshTokenTTL),
	}
	if err := service.sessions.Insert(ctx, session); err != nil {
		return nil, nil, err
	}

	if service.metrics != nil {
		service.metrics.SessionsIssued.Inc()
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  session.AccessExpiresAt,
		RefreshExpiresAt: session.RefreshExpiresAt,
	}, session, nil
}

// # Validation

/*
Validate resolves an opaque access token into a request principal.

Failure modes are deliberately distinct:
  - unknown digest: UNAUTHORIZED "Invalid session token"
  - revoked session: UNAUTHORIZED "Session revoked"
  - elapsed access window: EXPIRED (the client should refresh)
  - storage timeout: UNAVAILABLE (the client may retry)
*/
func (service *Service) Validate(ctx context.Context, accessToken string) (*sec.Principal, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	session, err := service.sessions.FindByAccessHash(lookupCtx, sec.HashToken(accessToken))
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Invalid session token")
		}
		return nil, err
	}

	if session.IsRevoked {
		return nil, apperr.Unauthorized("Session revoked")
	}
	if time.Now().After(session.AccessExpiresAt) {
		return nil, apperr.Expired("Session expired")
	}

	user, err := service.users.FindByID(lookupCtx, session.UserID)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Invalid session token")
		}
		return nil, err
	}
	if !user.Status.CanAuthenticate() {
		return nil, apperr.Unauthorized("Account is not active")
	}

	role, permissions := service.resolveRole(user.RoleID)

	// Best effort; a failed stamp must not fail the request.
	_ = service.sessions.TouchActivity(lookupCtx, session.ID, time.Now())

	return principalFor(user, session, role.Name, role.RoleLevel, permissions), nil
}

// resolveRole resolves by ID first and falls back to name for legacy rows.
// A dangling reference yields an empty permission set.
func (service *Service) resolveRole(roleRef string) (roles.Role, sec.PermissionSet) {
	role, permissions := service.resolver.Resolve(roleRef)
	if role.Name == "" {
		role, permissions = service.resolver.ResolveByName(roleRef)
	}
	return role, permissions
}

// # Refresh Rotation

/*
Refresh exchanges a refresh token for a fresh session (rotation).

The presented token's session is revoked and a new session row is created,
so each refresh token works exactly once. Presenting an already-rotated
token is treated as theft evidence: every session of the user is revoked.
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string, device DeviceInfo) (*LoginResult, error) {
	refreshHash := sec.HashToken(refreshToken)

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	preview, err := service.sessions.FindByRefreshHash(lookupCtx, refreshHash)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Invalid refresh token")
		}
		return nil, err
	}

	service.userLocks.Lock(preview.UserID)
	defer service.userLocks.Unlock(preview.UserID)

	// Re-read under the lock: a concurrent refresh may have rotated it.
	session, err := service.sessions.FindByRefreshHash(lookupCtx, refreshHash)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Invalid refresh token")
		}
		return nil, err
	}

	if session.IsRevoked {
		revoked, revokeErr := service.sessions.RevokeAllForUser(ctx, session.UserID, time.Now())
		if revokeErr != nil {
			service.logger.Error("reuse_containment_failed",
				slog.String("user_id", session.UserID), slog.Any("error", revokeErr))
		}
		service.countRevocations("reuse_containment", revoked)
		service.audit.Record(ctx, audit.Entry{
			ActorID:    session.UserID,
			Action:     audit.ActionSessionRevoked,
			EntityType: audit.EntitySession,
			EntityID:   session.ID,
			Outcome:    audit.OutcomeDenied,
			Metadata:   map[string]any{"cause": "refresh_reuse"},
			IPAddress:  device.IPAddress,
		})
		return nil, apperr.Unauthorized("Refresh token reuse detected")
	}
	if time.Now().After(session.RefreshExpiresAt) {
		return nil, apperr.Expired("Refresh token expired")
	}

	user, err := service.users.FindByID(lookupCtx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Status.CanAuthenticate() {
		return nil, apperr.Unauthorized("Account is not active")
	}

	if err := service.sessions.Revoke(ctx, session.ID, time.Now()); err != nil {
		return nil, err
	}
	service.countRevocations("rotation", 1)

	device.DeviceName = coalesce(device.DeviceName, session.DeviceName)
	tokens, newSession, err := service.issueSession(ctx, user, device)
	if err != nil {
		return nil, err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    user.ID,
		Action:     audit.ActionSessionRefreshed,
		EntityType: audit.EntitySession,
		EntityID:   newSession.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"rotated_from": session.ID},
	})

	return &LoginResult{Tokens: tokens, User: user}, nil
}

// # Revocation

// Logout revokes the principal's own session. Idempotent.
func (service *Service) Logout(ctx context.Context, principal *sec.Principal) error {
	if err := service.sessions.Revoke(ctx, principal.SessionID, time.Now()); err != nil {
		return err
	}
	service.countRevocations("logout", 1)

	service.audit.Record(ctx, audit.Entry{
		ActorID:    principal.UserID,
		Action:     audit.ActionSessionRevoked,
		EntityType: audit.EntitySession,
		EntityID:   principal.SessionID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"cause": "logout"},
	})
	return nil
}

/*
RevokeAllForUser revokes every session of a user.

Users may revoke their own sessions; acting on another user requires
outranking their role level.
*/
func (service *Service) RevokeAllForUser(ctx context.Context, actor *sec.Principal, userID string) (int, error) {
	if actor.UserID != userID {
		if err := service.requireOutranks(ctx, actor, userID); err != nil {
			return 0, err
		}
	}

	revoked, err := service.sessions.RevokeAllForUser(ctx, userID, time.Now())
	if err != nil {
		return 0, err
	}
	service.countRevocations("admin", revoked)

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionSessionRevoked,
		EntityType: audit.EntityUser,
		EntityID:   userID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"cause": "revoke_all", "count": revoked},
	})
	return revoked, nil
}

// ListSessions returns the user's active sessions.
func (service *Service) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	sessions, err := service.sessions.ListActiveForUser(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// # Assertions

// Introspect exchanges a validated access token for a short-lived signed
// assertion that downstream services verify offline.
func (service *Service) Introspect(ctx context.Context, accessToken string) (string, error) {
	principal, err := service.Validate(ctx, accessToken)
	if err != nil {
		return "", err
	}
	assertion, err := service.signer.SignAssertion(principal, assertionTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return assertion, nil
}

// # Moderation

/*
SetStatus transitions a user's account status under moderation rules.

The actor must outrank the target. Moving into SUSPENDED, LOCKED, or DELETED
revokes all of the target's sessions so the ban takes effect immediately.
*/
func (service *Service) SetStatus(ctx context.Context, actor *sec.Principal, userID string, next Status, reason string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := service.requireOutranks(ctx, actor, userID); err != nil {
		return err
	}
	if !user.Status.CanTransitionTo(next) {
		return apperr.InvalidTransition(
			"Cannot move account from " + string(user.Status) + " to " + string(next))
	}

	if err := service.users.UpdateStatus(ctx, userID, next); err != nil {
		return err
	}

	if next == StatusSuspended || next == StatusLocked || next == StatusDeleted {
		revoked, revokeErr := service.sessions.RevokeAllForUser(ctx, userID, time.Now())
		if revokeErr != nil {
			return revokeErr
		}
		service.countRevocations("admin", revoked)
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionUserStatusChanged,
		EntityType: audit.EntityUser,
		EntityID:   userID,
		Outcome:    audit.OutcomeSuccess,
		Metadata: map[string]any{
			"from":   string(user.Status),
			"to":     string(next),
			"reason": reason,
		},
	})
	return nil
}

/*
AssignRole changes a user's role.

The actor must outrank both the target's current role and the role being
granted; nobody can promote anyone to their own level or above.
*/
func (service *Service) AssignRole(ctx context.Context, actor *sec.Principal, userID, roleID string) error {
	role, ok := service.registry.Get(roleID)
	if !ok || !role.IsActive {
		return apperr.NotFound("Role")
	}
	if role.RoleLevel >= actor.RoleLevel {
		return apperr.Forbidden("Cannot grant a role at or above your own level")
	}
	if err := service.requireOutranks(ctx, actor, userID); err != nil {
		return err
	}

	if err := service.users.UpdateRole(ctx, userID, roleID); err != nil {
		return err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionRoleAssigned,
		EntityType: audit.EntityUser,
		EntityID:   userID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"role_id": roleID, "role_name": role.Name},
	})
	return nil
}

// requireOutranks verifies the actor's role level strictly exceeds the
// target user's.
func (service *Service) requireOutranks(ctx context.Context, actor *sec.Principal, targetUserID string) error {
	target, err := service.users.FindByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	targetRole, _ := service.resolveRole(target.RoleID)
	if !actor.CanModerate(targetRole.RoleLevel) {
		return apperr.Forbidden("Insufficient rank to act on this user")
	}
	return nil
}

// # Credential Self-Service

/*
ChangePassword replaces the caller's password.

The current password must be presented again even though the caller holds a
valid session. Every session is revoked afterwards; the client logs in again
with the new password.
*/
func (service *Service) ChangePassword(ctx context.Context, principal *sec.Principal, current, next string) error {
	v := &validate.Validator{}
	if err := v.Password("new_password", next).Err(); err != nil {
		return err
	}

	user, err := service.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(current, user.PasswordHash) {
		service.audit.Record(ctx, audit.Entry{
			ActorID:    user.ID,
			Action:     audit.ActionPasswordChanged,
			EntityType: audit.EntityUser,
			EntityID:   user.ID,
			Outcome:    audit.OutcomeDenied,
		})
		return apperr.Unauthorized("Current password is incorrect")
	}

	passwordHash, err := sec.HashPassword(next)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := service.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}

	revoked, err := service.sessions.RevokeAllForUser(ctx, user.ID, time.Now())
	if err != nil {
		return err
	}
	service.countRevocations("password_change", revoked)

	service.audit.Record(ctx, audit.Entry{
		ActorID:    user.ID,
		Action:     audit.ActionPasswordChanged,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		Outcome:    audit.OutcomeSuccess,
	})
	return nil
}

/*
SetMFA toggles multi-factor login for the caller.

Enabling requires a recently confirmed delivery channel, so a user cannot
turn on a factor they would never receive codes through. Disabling is always
allowed; both take effect at the next login.
*/
func (service *Service) SetMFA(ctx context.Context, principal *sec.Principal, enabled bool) error {
	user, err := service.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if user.MFAEnabled == enabled {
		return nil
	}

	if enabled {
		channel := "email"
		if user.Phone != "" {
			channel = "phone"
		}
		confirmed, err := service.otps.WasRecentlyConfirmed(ctx, user.ID, channel)
		if err != nil {
			return err
		}
		if !confirmed {
			return apperr.Unprocessable(
				"Confirm your " + channel + " with a one-time code before enabling multi-factor login")
		}
	}

	if err := service.users.SetMFAEnabled(ctx, user.ID, enabled); err != nil {
		return err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    user.ID,
		Action:     audit.ActionMFAChanged,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"enabled": enabled},
	})
	return nil
}

// # One-Time Passwords

// RequestOTP issues a code for the user's channel, for login-independent
// channel confirmation (feeds automatic verification).
func (service *Service) RequestOTP(ctx context.Context, userID, channel string) error {
	v := &validate.Validator{}
	if err := v.OneOf("channel", channel, "email", "phone").Err(); err != nil {
		return err
	}

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if channel == "phone" && user.Phone == "" {
		return apperr.Unprocessable("No phone number on file")
	}

	code, err := sec.GenerateOTP(otpDigits)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := service.otps.Put(ctx, userID, channel, sec.HashToken(code), otpTTL); err != nil {
		return err
	}

	service.deliverCode(user, channel, code)
	return nil
}

// ConfirmOTP consumes a code and records the channel as proven.
func (service *Service) ConfirmOTP(ctx context.Context, userID, channel, code string) error {
	ok, err := service.otps.Consume(ctx, userID, channel, sec.HashToken(code))
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Unauthorized("Invalid or expired code")
	}
	return service.otps.MarkConfirmed(ctx, userID, channel, otpConfirmationTTL)
}

// deliverCode hands the code to the delivery channel. Transport integration
// (mailer, SMS gateway) is injected at the edge; here we only log the event,
// never the code.
func (service *Service) deliverCode(user *User, channel, code string) {
	_ = code
	service.logger.Info("otp_issued",
		slog.String("user_id", user.ID),
		slog.String("channel", channel),
	)
}

// # Helpers

func (service *Service) countLogin(outcome string) {
	if service.metrics != nil {
		service.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func (service *Service) countRevocations(cause string, count int) {
	if service.metrics != nil && count > 0 {
		service.metrics.SessionsRevoked.WithLabelValues(cause).Add(float64(count))
	}
}

// checkLoginStatus maps non-ACTIVE statuses to their login errors.
func (service *Service) checkLoginStatus(user *User) error {
	switch user.Status {
	case StatusActive:
		return nil
	case StatusSuspended:
		service.countLogin("suspended")
		return apperr.Forbidden("Account is suspended")
	case StatusLocked:
		service.countLogin("locked")
		return apperr.Forbidden("Account is locked")
	case StatusAwaitingApproval:
		return apperr.Forbidden("Account is awaiting approval")
	case StatusPending:
		return apperr.Forbidden("Account is pending activation")
	default:
		// DELETED and anything unknown look like bad credentials.
		service.countLogin("invalid_credential")
		return errInvalidCredential
	}
}

func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
