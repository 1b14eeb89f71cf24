// Copyright (c) 2026 TrustFlow. All rights reserved.

package verification

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// memoryStore is an in-memory Store enforcing the one-open-record rule the
// way the partial unique index does.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*Record{}}
}

func (s *memoryStore) Insert(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.UserID == record.UserID && existing.IsOpen() {
			return apperr.Conflict("An open verification request already exists for this user")
		}
	}
	if record.ID == "" {
		record.ID = uuidv7.New()
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *memoryStore) Update(_ context.Context, record *Record, from Status) error {
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

func (s *memoryStore) FindByID(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("Verification record")
	}
	clone := *record
	return &clone, nil
}

func (s *memoryStore) FindOpenByUser(_ context.Context, userID string) (*Record, error) {
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

func (s *memoryStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []Record
	for _, record := range s.records {
		if record.UserID == userID {
			result = append(result, *record)
		}
	}
	return result, nil
}

func (s *memoryStore) ListOpenDue(_ context.Context, now time.Time, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []Record
	for _, record := range s.records {
		if record.IsOpen() && !record.ExpiresAt.After(now) && len(result) < limit {
			result = append(result, *record)
		}
	}
	return result, nil
}

func (s *memoryStore) ListLapsedGrants(_ context.Context, now time.Time, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []Record
	for _, record := range s.records {
		if record.Status == StatusApproved && !record.ExpiresAt.After(now) && len(result) < limit {
			result = append(result, *record)
		}
	}
	return result, nil
}

func (s *memoryStore) HighestLiveLevel(_ context.Context, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := 0
	for _, record := range s.records {
		if record.UserID == userID && record.Status == StatusApproved &&
			record.ExpiresAt.After(now) && record.TargetLevel > highest {
			highest = record.TargetLevel
		}
	}
	return highest, nil
}

// memoryLevels is an in-memory UserLevels.
type memoryLevels struct {
	mu     sync.Mutex
	levels map[string]int
}

func newMemoryLevels() *memoryLevels {
	return &memoryLevels{levels: map[string]int{}}
}

func (l *memoryLevels) CurrentLevel(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[userID], nil
}

func (l *memoryLevels) SetLevel(_ context.Context, userID string, level int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels[userID] = level
	return nil
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func approveAll() Verifier {
	return VerifierFunc(func(_ context.Context, _ *Record) (Verdict, error) {
		return Verdict{Approved: true, Reason: "channel confirmed"}, nil
	})
}

func rejectAll(reason string) Verifier {
	return VerifierFunc(func(_ context.Context, _ *Record) (Verdict, error) {
		return Verdict{Approved: false, Reason: reason}, nil
	})
}

func newTestService(verifiers map[Method]Verifier) (*Service, *memoryStore, *memoryLevels, *captureRecorder) {
	store := newMemoryStore()
	levels := newMemoryLevels()
	recorder := &captureRecorder{}
	service := NewService(store, levels, verifiers, recorder, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return service, store, levels, recorder
}

func TestSubmit_AutomaticApprovalAdvancesLevel(t *testing.T) {
	service, _, levels, _ := newTestService(map[Method]Verifier{MethodEmail: approveAll()})
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodEmail, TargetLevel: 1})
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, record.Status)
	assert.Equal(t, 1, record.TargetLevel)

	level, err := levels.CurrentLevel(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
}

func TestSubmit_AutomaticRejectionKeepsLevel(t *testing.T) {
	service, _, levels, _ := newTestService(map[Method]Verifier{MethodEmail: rejectAll("no challenge on file")})
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodEmail, TargetLevel: 1})
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, record.Status)
	assert.Equal(t, "no challenge on file", record.Reason)

	level, _ := levels.CurrentLevel(context.Background(), userID)
	assert.Equal(t, 0, level)
}

func TestSubmit_DocumentStaysPending(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()
	setUserLevel(t, service, userID, 1)

	record, err := service.Submit(context.Background(), userID, SubmitInput{
		Method:       MethodDocument,
		TargetLevel:  2,
		DocumentType: DocumentPassport,
		DocumentRef:  "passport-034",
		DocumentHash: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, record.Status)
	assert.Equal(t, 2, record.TargetLevel)
	assert.Equal(t, "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", record.DocumentHash)
}

func TestSubmit_DocumentRequiresTypeAndRef(t *testing.T) {
	service, _, _, _ := newTestService(nil)

	_, err := service.Submit(context.Background(), uuidv7.New(), SubmitInput{Method: MethodDocument, TargetLevel: 1})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
}

func TestSubmit_RejectsWrongTargetLevel(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()
	setUserLevel(t, service, userID, 1)

	cases := []struct {
		name   string
		target int
	}{
		{"skipping a level", 3},
		{"current level again", 1},
		{"below current", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Submit(context.Background(), userID, SubmitInput{
				Method:      MethodManual,
				TargetLevel: tc.target,
			})
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, "INVALID_TRANSITION"))
		})
	}
}

func TestSubmit_RejectsDuplicateOpen(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()

	_, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

func TestSubmit_ConcurrentSubmitsYieldOneRecord(t *testing.T) {
	service, store, _, _ := newTestService(nil)
	userID := uuidv7.New()

	const attempts = 20
	var wg sync.WaitGroup
	wg.Add(attempts)
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.IsCode(err, "CONFLICT"))
		}
	}
	assert.Equal(t, 1, succeeded)

	records, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSubmit_AtMaxLevel(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()
	setUserLevel(t, service, userID, LevelMax)

	_, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: LevelMax + 1})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TRANSITION"))
}

func TestDecide_ApproveAdvancesUser(t *testing.T) {
	service, _, levels, recorder := newTestService(nil)
	userID := uuidv7.New()
	reviewerID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	decided, err := service.Decide(context.Background(), reviewerID, record.ID, DecideInput{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, reviewerID, decided.ReviewerID)
	require.NotNil(t, decided.DecidedAt)

	level, _ := levels.CurrentLevel(context.Background(), userID)
	assert.Equal(t, 1, level)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	var sawDecision bool
	for _, entry := range recorder.entries {
		if entry.Action == audit.ActionVerificationDecide {
			sawDecision = true
		}
	}
	assert.True(t, sawDecision, "decision must be audited")
}

func TestDecide_RejectRequiresReason(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	_, err = service.Decide(context.Background(), uuidv7.New(), record.ID, DecideInput{Approve: false})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))

	decided, err := service.Decide(context.Background(), uuidv7.New(), record.ID, DecideInput{
		Approve: false,
		Reason:  "document unreadable",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decided.Status)
}

func TestDecide_SelfReviewForbidden(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	_, err = service.Decide(context.Background(), userID, record.ID, DecideInput{Approve: true})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "FORBIDDEN"))
}

func TestDecide_TerminalRecordRejectsSecondDecision(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	_, err = service.Decide(context.Background(), uuidv7.New(), record.ID, DecideInput{Approve: true})
	require.NoError(t, err)

	_, err = service.Decide(context.Background(), uuidv7.New(), record.ID, DecideInput{Approve: true})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TRANSITION"))
}

func TestEscalate_OnlyFromPending(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()
	reviewerID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	escalated, err := service.Escalate(context.Background(), reviewerID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusManualReview, escalated.Status)

	// Escalating twice is an invalid transition.
	_, err = service.Escalate(context.Background(), reviewerID, record.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TRANSITION"))

	// But deciding from MANUAL_REVIEW works.
	decided, err := service.Decide(context.Background(), reviewerID, record.ID, DecideInput{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
}

func TestCancel_OwnerOnly(t *testing.T) {
	service, _, _, _ := newTestService(nil)
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	err = service.Cancel(context.Background(), uuidv7.New(), record.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "FORBIDDEN"))

	require.NoError(t, service.Cancel(context.Background(), userID, record.ID))

	cancelled, err := service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestDecide_ConcurrentCancelHasOneWinner(t *testing.T) {
	service, _, levels, _ := newTestService(nil)

	for i := 0; i < 20; i++ {
		userID := uuidv7.New()
		reviewerID := uuidv7.New()

		record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		var decideErr, cancelErr error
		go func() {
			defer wg.Done()
			_, decideErr = service.Decide(context.Background(), reviewerID, record.ID, DecideInput{Approve: true})
		}()
		go func() {
			defer wg.Done()
			cancelErr = service.Cancel(context.Background(), userID, record.ID)
		}()
		wg.Wait()

		require.True(t, (decideErr == nil) != (cancelErr == nil),
			"exactly one of approve/cancel may land, got decideErr=%v cancelErr=%v", decideErr, cancelErr)

		final, err := service.Get(context.Background(), record.ID)
		require.NoError(t, err)
		level, _ := levels.CurrentLevel(context.Background(), userID)

		if decideErr == nil {
			assert.True(t, apperr.IsCode(cancelErr, "INVALID_TRANSITION"))
			assert.Equal(t, StatusApproved, final.Status)
			assert.Equal(t, 1, level, "approval won, level must advance")
		} else {
			assert.True(t, apperr.IsCode(decideErr, "INVALID_TRANSITION"))
			assert.Equal(t, StatusCancelled, final.Status)
			assert.Equal(t, 0, level, "cancel won, level must not advance")
		}
	}
}

func TestExpireDue_SweepsOpenRecords(t *testing.T) {
	service, store, levels, _ := newTestService(nil)
	userID := uuidv7.New()

	record, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)

	// Age the record past its window.
	store.mu.Lock()
	store.records[record.ID].ExpiresAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	expired, err := service.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	swept, err := service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, swept.Status)

	// Expiry never advances the level.
	level, _ := levels.CurrentLevel(context.Background(), userID)
	assert.Equal(t, 0, level)

	// Second sweep finds nothing.
	expired, err = service.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestExpireDue_LapsedGrantDemotesHolder(t *testing.T) {
	service, store, levels, _ := newTestService(nil)
	userID := uuidv7.New()
	reviewerID := uuidv7.New()

	// Climb to level 2 through two approvals.
	first, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 1})
	require.NoError(t, err)
	_, err = service.Decide(context.Background(), reviewerID, first.ID, DecideInput{Approve: true})
	require.NoError(t, err)

	second, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodManual, TargetLevel: 2})
	require.NoError(t, err)
	_, err = service.Decide(context.Background(), reviewerID, second.ID, DecideInput{Approve: true})
	require.NoError(t, err)

	level, _ := levels.CurrentLevel(context.Background(), userID)
	require.Equal(t, 2, level)

	// Lapse the level-2 grant.
	store.mu.Lock()
	store.records[second.ID].ExpiresAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	// The gating check stops honoring the level before the sweeper runs.
	valid, err := service.IsLevelValid(context.Background(), userID, 2)
	require.NoError(t, err)
	assert.False(t, valid)

	expired, err := service.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	lapsed, err := service.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, lapsed.Status)

	// Demoted to the highest remaining live grant, not to zero.
	level, _ = levels.CurrentLevel(context.Background(), userID)
	assert.Equal(t, 1, level)
}

func TestIsLevelValid(t *testing.T) {
	service, _, _, _ := newTestService(map[Method]Verifier{MethodEmail: approveAll()})
	userID := uuidv7.New()

	_, err := service.Submit(context.Background(), userID, SubmitInput{Method: MethodEmail, TargetLevel: 1})
	require.NoError(t, err)

	cases := []struct {
		name  string
		level int
		valid bool
	}{
		{"floor is always valid", 0, true},
		{"granted level", 1, true},
		{"level above grants", 2, false},
		{"beyond the ladder", LevelMax + 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, err := service.IsLevelValid(context.Background(), userID, tc.level)
			require.NoError(t, err)
			assert.Equal(t, tc.valid, valid)
		})
	}
}

func TestStatusStateMachine(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusManualReview))
	assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
	assert.True(t, StatusManualReview.CanTransitionTo(StatusRejected))
	assert.False(t, StatusManualReview.CanTransitionTo(StatusManualReview))
	assert.False(t, StatusApproved.CanTransitionTo(StatusRejected))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))
	assert.False(t, StatusExpired.CanTransitionTo(StatusApproved))
}

// setUserLevel seeds the fake level store through the service's own dependency.
func setUserLevel(t *testing.T, service *Service, userID string, level int) {
	t.Helper()
	require.NoError(t, service.users.SetLevel(context.Background(), userID, level))
}
