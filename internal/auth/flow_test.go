// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/internal/verification"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// memoryRecordStore is a minimal verification.Store for the lifecycle test.
type memoryRecordStore struct {
	mu      sync.Mutex
	records map[string]*verification.Record
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{records: map[string]*verification.Record{}}
}

func (s *memoryRecordStore) Insert(_ context.Context, record *verification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.UserID == record.UserID && existing.IsOpen() {
			return apperr.Conflict("A verification attempt is already open")
		}
	}
	if record.ID == "" {
		record.ID = uuidv7.New()
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *memoryRecordStore) Update(_ context.Context, record *verification.Record, from verification.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.ID]
	if !ok {
		return apperr.NotFound("Verification record")
	}
	if existing.Status != from {
		return apperr.InvalidTransition("Verification record was decided concurrently")
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *memoryRecordStore) FindByID(_ context.Context, id string) (*verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("Verification record")
	}
	clone := *record
	return &clone, nil
}

func (s *memoryRecordStore) FindOpenByUser(_ context.Context, userID string) (*verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.UserID == userID && record.IsOpen() {
			clone := *record
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Verification record")
}

func (s *memoryRecordStore) ListByUser(_ context.Context, userID string) ([]verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []verification.Record
	for _, record := range s.records {
		if record.UserID == userID {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (s *memoryRecordStore) ListOpenDue(_ context.Context, now time.Time, limit int) ([]verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []verification.Record
	for _, record := range s.records {
		if record.IsOpen() && record.ExpiresAt.Before(now) && len(due) < limit {
			due = append(due, *record)
		}
	}
	return due, nil
}

func (s *memoryRecordStore) ListLapsedGrants(_ context.Context, now time.Time, limit int) ([]verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lapsed []verification.Record
	for _, record := range s.records {
		if record.Status == verification.StatusApproved && record.ExpiresAt.Before(now) && len(lapsed) < limit {
			lapsed = append(lapsed, *record)
		}
	}
	return lapsed, nil
}

func (s *memoryRecordStore) HighestLiveLevel(_ context.Context, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := 0
	for _, record := range s.records {
		if record.UserID == userID && record.Status == verification.StatusApproved &&
			record.ExpiresAt.After(now) && record.TargetLevel > highest {
			highest = record.TargetLevel
		}
	}
	return highest, nil
}

/*
TestIdentityLifecycle drives the whole platform surface in one narrative:
register, confirm the email channel, climb a verification level, log in,
rotate the session, and watch reuse containment kill everything.
*/
func TestIdentityLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	verificationService := verification.NewService(
		newMemoryRecordStore(),
		h.users,
		map[verification.Method]verification.Verifier{
			verification.MethodEmail: verification.NewChannelVerifier(h.otps, "email"),
		},
		h.recorder,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	// Register and log in as a standard buyer.
	user := h.register(t, "lifecycle@example.com")
	assert.Equal(t, 0, user.VerificationLevel)

	first := h.login(t, "lifecycle@example.com")
	principal, err := h.service.Validate(ctx, first.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 0, principal.VerificationLevel)

	// Email verification fails while the channel is unconfirmed: the record
	// resolves automatically to REJECTED.
	record, err := verificationService.Submit(ctx, user.ID, verification.SubmitInput{
		Method:      verification.MethodEmail,
		TargetLevel: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, verification.StatusRejected, record.Status)

	// Confirm the email channel, then retry: automatic approval.
	require.NoError(t, h.service.RequestOTP(ctx, user.ID, "email"))
	h.otps.mu.Lock()
	h.otps.codes[user.ID+":email"] = sec.HashToken("424242")
	h.otps.mu.Unlock()
	require.NoError(t, h.service.ConfirmOTP(ctx, user.ID, "email", "424242"))

	record, err = verificationService.Submit(ctx, user.ID, verification.SubmitInput{
		Method:      verification.MethodEmail,
		TargetLevel: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, verification.StatusApproved, record.Status)

	// The new trust level flows into freshly validated principals.
	principal, err = h.service.Validate(ctx, first.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 1, principal.VerificationLevel)

	// Rotate the session.
	second, err := h.service.Refresh(ctx, first.Tokens.RefreshToken, DeviceInfo{})
	require.NoError(t, err)
	_, err = h.service.Validate(ctx, second.Tokens.AccessToken)
	require.NoError(t, err)

	// Replay of the rotated refresh token revokes every session.
	_, err = h.service.Refresh(ctx, first.Tokens.RefreshToken, DeviceInfo{})
	require.Error(t, err)
	_, err = h.service.Validate(ctx, second.Tokens.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UNAUTHORIZED"))
}
