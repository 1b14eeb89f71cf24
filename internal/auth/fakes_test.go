// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/roles"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// # User Store Fake

type memoryUserStore struct {
	mu       sync.Mutex
	users    map[string]*User
	profiles map[string]*Profile
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: map[string]*User{}, profiles: map[string]*Profile{}}
}

func (s *memoryUserStore) Insert(_ context.Context, user *User, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return apperr.Conflict("An account with this email or phone already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuidv7.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	profile.UserID = user.ID
	userClone := *user
	profileClone := *profile
	s.users[user.ID] = &userClone
	s.profiles[user.ID] = &profileClone
	return nil
}

func (s *memoryUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, apperr.NotFound("Account")
	}
	clone := *user
	return &clone, nil
}

func (s *memoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email && user.DeletedAt == nil {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (s *memoryUserStore) FindByPhone(_ context.Context, phone string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Phone == phone && user.Phone != "" && user.DeletedAt == nil {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (s *memoryUserStore) FindProfile(_ context.Context, userID string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, apperr.NotFound("Profile")
	}
	clone := *profile
	return &clone, nil
}

func (s *memoryUserStore) UpdateProfile(_ context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.UserID]; !ok {
		return apperr.NotFound("Profile")
	}
	clone := *profile
	s.profiles[profile.UserID] = &clone
	return nil
}

func (s *memoryUserStore) UpdateStatus(_ context.Context, userID string, status Status) error {
	return s.mutate(userID, func(user *User) { user.Status = status })
}

func (s *memoryUserStore) UpdateRole(_ context.Context, userID string, roleID string) error {
	return s.mutate(userID, func(user *User) { user.RoleID = roleID })
}

func (s *memoryUserStore) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	return s.mutate(userID, func(user *User) { user.LastLoginAt = &at })
}

func (s *memoryUserStore) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	return s.mutate(userID, func(user *User) { user.PasswordHash = passwordHash })
}

func (s *memoryUserStore) SetMFAEnabled(_ context.Context, userID string, enabled bool) error {
	return s.mutate(userID, func(user *User) { user.MFAEnabled = enabled })
}

func (s *memoryUserStore) CurrentLevel(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return 0, apperr.NotFound("Account")
	}
	return user.VerificationLevel, nil
}

func (s *memoryUserStore) SetLevel(_ context.Context, userID string, level int) error {
	return s.mutate(userID, func(user *User) { user.VerificationLevel = level })
}

func (s *memoryUserStore) mutate(userID string, apply func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok || user.DeletedAt != nil {
		return apperr.NotFound("Account")
	}
	apply(user)
	user.UpdatedAt = time.Now()
	return nil
}

// # Session Store Fake

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: map[string]*Session{}}
}

func (s *memorySessionStore) Insert(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuidv7.New()
	}
	now := time.Now()
	session.CreatedAt = now
	session.LastActivityAt = now
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *memorySessionStore) FindByAccessHash(_ context.Context, hash string) (*Session, error) {
	return s.findBy(func(session *Session) bool { return session.AccessTokenHash == hash })
}

func (s *memorySessionStore) FindByRefreshHash(_ context.Context, hash string) (*Session, error) {
	return s.findBy(func(session *Session) bool { return session.RefreshTokenHash == hash })
}

func (s *memorySessionStore) findBy(match func(*Session) bool) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if match(session) {
			clone := *session
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (s *memorySessionStore) TouchActivity(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		session.LastActivityAt = at
	}
	return nil
}

func (s *memorySessionStore) Revoke(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.IsRevoked {
		return nil
	}
	session.IsRevoked = true
	session.RevokedAt = &at
	return nil
}

func (s *memorySessionStore) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID && !session.IsRevoked {
			session.IsRevoked = true
			session.RevokedAt = &at
			count++
		}
	}
	return count, nil
}

func (s *memorySessionStore) ListActiveForUser(_ context.Context, userID string, now time.Time) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []Session
	for _, session := range s.sessions {
		if session.UserID == userID && !session.IsRevoked && session.RefreshExpiresAt.After(now) {
			active = append(active, *session)
		}
	}
	return active, nil
}

// # Invite Store Fake

type memoryInviteStore struct {
	mu      sync.Mutex
	invites map[string]*InviteCode
}

func newMemoryInviteStore() *memoryInviteStore {
	return &memoryInviteStore{invites: map[string]*InviteCode{}}
}

func (s *memoryInviteStore) Insert(_ context.Context, invite *InviteCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if invite.ID == "" {
		invite.ID = uuidv7.New()
	}
	invite.CreatedAt = time.Now()
	clone := *invite
	s.invites[invite.ID] = &clone
	return nil
}

func (s *memoryInviteStore) Redeem(_ context.Context, codeHash string, userID string, now time.Time) (*InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, invite := range s.invites {
		if invite.CodeHash != codeHash {
			continue
		}
		if !invite.IsActive || !invite.ExpiresAt.After(now) || invite.UsedCount >= invite.MaxUses {
			break
		}
		invite.UsedCount++
		invite.RedeemedBy = userID
		clone := *invite
		return &clone, nil
	}
	return nil, apperr.Unprocessable("Invite code is invalid or no longer available")
}

func (s *memoryInviteStore) Release(_ context.Context, inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if invite, ok := s.invites[inviteID]; ok && invite.UsedCount > 0 {
		invite.UsedCount--
	}
	return nil
}

func (s *memoryInviteStore) Deactivate(_ context.Context, inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[inviteID]
	if !ok {
		return apperr.NotFound("Invite code")
	}
	invite.IsActive = false
	return nil
}

func (s *memoryInviteStore) ListByCreator(_ context.Context, creatorID string) ([]InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var created []InviteCode
	for _, invite := range s.invites {
		if invite.CreatedBy == creatorID {
			created = append(created, *invite)
		}
	}
	return created, nil
}

// # Redis Fakes

type memoryChallengeRepository struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

func newMemoryChallengeRepository() *memoryChallengeRepository {
	return &memoryChallengeRepository{challenges: map[string]*Challenge{}}
}

func (r *memoryChallengeRepository) Put(_ context.Context, challenge *Challenge, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *challenge
	r.challenges[challenge.ID] = &clone
	return nil
}

func (r *memoryChallengeRepository) Get(_ context.Context, id string) (*Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	challenge, ok := r.challenges[id]
	if !ok {
		return nil, apperr.NotFound("Challenge")
	}
	clone := *challenge
	return &clone, nil
}

func (r *memoryChallengeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.challenges, id)
	return nil
}

type memoryOTPRepository struct {
	mu        sync.Mutex
	codes     map[string]string
	attempts  map[string]int
	confirmed map[string]bool
}

func newMemoryOTPRepository() *memoryOTPRepository {
	return &memoryOTPRepository{
		codes:     map[string]string{},
		attempts:  map[string]int{},
		confirmed: map[string]bool{},
	}
}

func (r *memoryOTPRepository) Put(_ context.Context, userID, channel, codeHash string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + ":" + channel
	r.codes[key] = codeHash
	delete(r.attempts, key)
	return nil
}

func (r *memoryOTPRepository) Consume(_ context.Context, userID, channel, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + ":" + channel
	stored, ok := r.codes[key]
	if !ok {
		return false, nil
	}
	if stored != codeHash {
		r.attempts[key]++
		if r.attempts[key] >= otpMaxAttempts {
			delete(r.codes, key)
			delete(r.attempts, key)
		}
		return false, nil
	}
	delete(r.codes, key)
	delete(r.attempts, key)
	return true, nil
}

func (r *memoryOTPRepository) MarkConfirmed(_ context.Context, userID, channel string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed[userID+":"+channel] = true
	return nil
}

func (r *memoryOTPRepository) WasRecentlyConfirmed(_ context.Context, userID, channel string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed[userID+":"+channel], nil
}

// # Role Store Fake

type memoryRoleStore struct {
	mu    sync.Mutex
	roles map[string]*roles.Role
}

func newMemoryRoleStore() *memoryRoleStore {
	return &memoryRoleStore{roles: map[string]*roles.Role{}}
}

func (s *memoryRoleStore) Insert(_ context.Context, role *roles.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role.ID == "" {
		role.ID = uuidv7.New()
	}
	clone := *role
	s.roles[role.ID] = &clone
	return nil
}

func (s *memoryRoleStore) Update(_ context.Context, role *roles.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; !ok {
		return apperr.NotFound("Role")
	}
	clone := *role
	s.roles[role.ID] = &clone
	return nil
}

func (s *memoryRoleStore) FindByID(_ context.Context, id string) (*roles.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	clone := *role
	return &clone, nil
}

func (s *memoryRoleStore) FindByName(_ context.Context, name string) (*roles.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.roles {
		if role.Name == name {
			clone := *role
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Role")
}

func (s *memoryRoleStore) ListAll(_ context.Context) ([]roles.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []roles.Role
	for _, role := range s.roles {
		all = append(all, *role)
	}
	return all, nil
}

// # Audit Fake

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *captureRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var actions []string
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}
