// Copyright (c) 2026 TrustFlow. All rights reserved.

package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/metrics"
	"github.com/trustflow/identity/internal/platform/validate"
	"github.com/trustflow/identity/pkg/keymutex"
)

// Lifecycle constants.
const (
	// openRecordTTL bounds how long a record may wait for a decision before
	// the sweeper expires it.
	openRecordTTL = 7 * 24 * time.Hour

	// grantValidity is how long an approval backs the user's level before
	// it lapses and the level recomputes.
	grantValidity = 365 * 24 * time.Hour

	// expiryBatchSize caps how many records one sweep pass processes.
	expiryBatchSize = 100
)

// auditRecorder is the slice of the audit recorder this service needs.
type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service implements the verification engine.
type Service struct {
	store     Store
	users     UserLevels
	verifiers map[Method]Verifier
	audit     auditRecorder
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// userLocks serializes submissions per user so two concurrent submits
	// cannot both pass the open-record check. The partial unique index is
	// the backstop if two instances race across processes.
	userLocks *keymutex.KeyMutex
}

// NewService creates the verification service. The metrics parameter may be
// nil in tests.
func NewService(
	store Store,
	users UserLevels,
	verifiers map[Method]Verifier,
	recorder auditRecorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		users:     users,
		verifiers: verifiers,
		audit:     recorder,
		metrics:   m,
		logger:    logger,
		userLocks: keymutex.New(),
	}
}

// SubmitInput is the payload for starting a verification attempt.
type SubmitInput struct {
	Method       Method       `json:"method"`
	TargetLevel  int          `json:"target_level"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	DocumentRef  string       `json:"document_ref,omitempty"`
	DocumentHash string       `json:"document_hash,omitempty"`
}

/*
Submit starts a verification attempt toward the requested target level.

The target must be exactly one above the user's current level; levels cannot
be skipped or re-requested. Automatic methods (EMAIL, PHONE, SOCIAL,
PROVIDER, BANK) resolve synchronously through their [Verifier]; the rest
wait for a reviewer.

Returns:
  - *Record: The created record, already terminal for automatic methods
  - error: Validation, INVALID_TRANSITION for a wrong target level,
    duplicate-pending conflict, or storage failure
*/
func (service *Service) Submit(ctx context.Context, userID string, input SubmitInput) (*Record, error) {
	v := &validate.Validator{}
	v.Custom("method", !input.Method.IsValid(), "Unknown verification method")
	if input.Method == MethodDocument {
		v.Custom("document_type", !input.DocumentType.IsValid(), "Unknown document type").
			Required("document_ref", input.DocumentRef).
			Required("document_hash", input.DocumentHash)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	service.userLocks.Lock(userID)
	defer service.userLocks.Unlock(userID)

	currentLevel, err := service.users.CurrentLevel(ctx, userID)
	if err != nil {
		return nil, err
	}
	if currentLevel >= LevelMax {
		return nil, apperr.InvalidTransition("Already at the maximum verification level")
	}
	if input.TargetLevel != currentLevel+1 {
		return nil, apperr.InvalidTransition(
			"Target level must be exactly one above the current level")
	}

	if _, err := service.store.FindOpenByUser(ctx, userID); err == nil {
		return nil, apperr.Conflict("An open verification request already exists")
	} else if !apperr.IsCode(err, "NOT_FOUND") {
		return nil, err
	}

	now := time.Now()
	record := &Record{
		UserID:       userID,
		TargetLevel:  input.TargetLevel,
		Status:       StatusPending,
		Method:       input.Method,
		DocumentType: input.DocumentType,
		DocumentRef:  input.DocumentRef,
		DocumentHash: input.DocumentHash,
		SubmittedAt:  now,
		ExpiresAt:    now.Add(openRecordTTL),
	}

	if err := service.store.Insert(ctx, record); err != nil {
		return nil, err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    userID,
		Action:     audit.ActionVerificationSubmit,
		EntityType: audit.EntityVerification,
		EntityID:   record.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata: map[string]any{
			"target_level": record.TargetLevel,
			"method":       string(record.Method),
		},
	})

	if input.Method.IsAutomatic() {
		return service.resolveAutomatic(ctx, record)
	}

	return record, nil
}

// resolveAutomatic runs the method's verifier and applies the verdict.
// A missing verifier leaves the record pending for manual review rather
// than failing the submission.
func (service *Service) resolveAutomatic(ctx context.Context, record *Record) (*Record, error) {
	verifier, ok := service.verifiers[record.Method]
	if !ok {
		service.logger.Warn("verifier_missing", slog.String("method", string(record.Method)))
		return record, nil
	}

	verdict, err := verifier.Verify(ctx, record)
	if err != nil {
		// Verifier infrastructure failure: keep the record open.
		service.logger.Error("verifier_failed",
			slog.String("record_id", record.ID),
			slog.Any("error", err),
		)
		return record, nil
	}

	if verdict.Approved {
		return record, service.applyDecision(ctx, record, StatusApproved, "", verdict.Reason)
	}
	return record, service.applyDecision(ctx, record, StatusRejected, "", verdict.Reason)
}

// lockRecord loads a record and takes its holder's lock. The first read only
// learns which user to lock; the record is read again under the lock so the
// caller never acts on a row another goroutine is mid-transition on. The
// caller must Unlock(record.UserID) when done.
func (service *Service) lockRecord(ctx context.Context, recordID string) (*Record, error) {
	preview, err := service.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	service.userLocks.Lock(preview.UserID)
	record, err := service.store.FindByID(ctx, recordID)
	if err != nil {
		service.userLocks.Unlock(preview.UserID)
		return nil, err
	}
	return record, nil
}

// DecideInput is the payload for a reviewer decision.
type DecideInput struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

/*
Decide applies a reviewer decision to an open record.

Rules:
  - Reviewers cannot decide their own records.
  - Rejections require a reason.
  - Terminal records cannot be decided again (INVALID_TRANSITION).
  - Approval advances the user's level to the record's target.

The decision runs under the holder's lock: a reviewer decision and a
concurrent cancel by the owner serialize here, and whichever reads the
record second sees the terminal state and fails the transition check.
*/
func (service *Service) Decide(ctx context.Context, reviewerID, recordID string, input DecideInput) (*Record, error) {
	record, err := service.lockRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	defer service.userLocks.Unlock(record.UserID)

	if record.UserID == reviewerID {
		return nil, apperr.Forbidden("Reviewers cannot decide their own verification")
	}
	if !input.Approve {
		v := &validate.Validator{}
		if err := v.Required("reason", input.Reason).MaxLen("reason", input.Reason, 500).Err(); err != nil {
			return nil, err
		}
	}

	next := StatusRejected
	if input.Approve {
		next = StatusApproved
	}

	if err := service.applyDecision(ctx, record, next, reviewerID, input.Reason); err != nil {
		return nil, err
	}
	return record, nil
}

// Escalate moves a PENDING record into MANUAL_REVIEW, parking it with a
// specialist queue without deciding it.
func (service *Service) Escalate(ctx context.Context, reviewerID, recordID string) (*Record, error) {
	record, err := service.lockRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	defer service.userLocks.Unlock(record.UserID)

	from := record.Status
	if !from.CanTransitionTo(StatusManualReview) {
		return nil, apperr.InvalidTransition("Record cannot be escalated from " + string(from))
	}

	record.Status = StatusManualReview
	record.ReviewerID = reviewerID
	if err := service.store.Update(ctx, record, from); err != nil {
		return nil, err
	}

	return record, nil
}

// Cancel lets the owner withdraw their own open record.
func (service *Service) Cancel(ctx context.Context, userID, recordID string) error {
	record, err := service.lockRecord(ctx, recordID)
	if err != nil {
		return err
	}
	defer service.userLocks.Unlock(record.UserID)

	if record.UserID != userID {
		return apperr.Forbidden("Only the owner can cancel a verification request")
	}

	if err := service.applyDecision(ctx, record, StatusCancelled, userID, "Cancelled by user"); err != nil {
		return err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    userID,
		Action:     audit.ActionVerificationCancel,
		EntityType: audit.EntityVerification,
		EntityID:   record.ID,
		Outcome:    audit.OutcomeSuccess,
	})
	return nil
}

/*
ExpireDue sweeps records past their deadline into EXPIRED.

Two sets are processed: open records whose decision window elapsed, and
APPROVED grants whose validity lapsed. Expiring a grant recomputes the
holder's level to the highest remaining live grant, so a level is never
backed by an expired approval.

It is invoked on a ticker from main. Each pass is bounded by
expiryBatchSize; a busy backlog drains across successive ticks.

Returns the number of records expired.
*/
func (service *Service) ExpireDue(ctx context.Context) (int, error) {
	due, err := service.store.ListOpenDue(ctx, time.Now(), expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		record := &due[i]
		if err := service.applyDecision(ctx, record, StatusExpired, "", "Verification window elapsed"); err != nil {
			service.logger.Error("verification_expiry_failed",
				slog.String("record_id", record.ID),
				slog.Any("error", err),
			)
			continue
		}
		expired++

		service.audit.Record(ctx, audit.Entry{
			ActorID:    "system",
			Action:     audit.ActionVerificationExpired,
			EntityType: audit.EntityVerification,
			EntityID:   record.ID,
			Outcome:    audit.OutcomeSuccess,
		})
	}

	lapsed, err := service.store.ListLapsedGrants(ctx, time.Now(), expiryBatchSize)
	if err != nil {
		return expired, err
	}
	for i := range lapsed {
		if err := service.expireLapsedGrant(ctx, &lapsed[i]); err != nil {
			service.logger.Error("grant_lapse_failed",
				slog.String("record_id", lapsed[i].ID),
				slog.Any("error", err),
			)
			continue
		}
		expired++
	}

	if expired > 0 {
		service.logger.Info("verification_expiry_sweep", slog.Int("expired", expired))
	}
	return expired, nil
}

// expireLapsedGrant moves a lapsed APPROVED record to EXPIRED and demotes
// the holder to the highest remaining live grant. This is the only path out
// of APPROVED; reviewers never get one.
func (service *Service) expireLapsedGrant(ctx context.Context, record *Record) error {
	record.Status = StatusExpired
	record.Reason = "Verification grant lapsed"
	if err := service.store.Update(ctx, record, StatusApproved); err != nil {
		return err
	}

	now := time.Now()
	highest, err := service.store.HighestLiveLevel(ctx, record.UserID, now)
	if err != nil {
		return err
	}
	current, err := service.users.CurrentLevel(ctx, record.UserID)
	if err != nil {
		return err
	}
	if highest < current {
		if err := service.users.SetLevel(ctx, record.UserID, highest); err != nil {
			return err
		}
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    "system",
		Action:     audit.ActionVerificationExpired,
		EntityType: audit.EntityVerification,
		EntityID:   record.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata: map[string]any{
			"user_id":      record.UserID,
			"lapsed_level": record.TargetLevel,
			"demoted_to":   highest,
		},
	})
	return nil
}

// Get returns a record by ID.
func (service *Service) Get(ctx context.Context, id string) (*Record, error) {
	return service.store.FindByID(ctx, id)
}

// ListForUser returns a user's verification history, newest first.
func (service *Service) ListForUser(ctx context.Context, userID string) ([]Record, error) {
	records, err := service.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// CurrentLevel returns the user's verification level.
func (service *Service) CurrentLevel(ctx context.Context, userID string) (int, error) {
	return service.users.CurrentLevel(ctx, userID)
}

// IsLevelValid reports whether the user currently holds a live grant at or
// above the given level. Level zero is the unverified floor and is always
// valid. Checking against live grants rather than the stored level means a
// lapsed grant stops gating immediately, even before the sweeper runs.
func (service *Service) IsLevelValid(ctx context.Context, userID string, level int) (bool, error) {
	if level <= LevelMin {
		return true, nil
	}
	if level > LevelMax {
		return false, nil
	}
	highest, err := service.store.HighestLiveLevel(ctx, userID, time.Now())
	if err != nil {
		return false, err
	}
	return highest >= level, nil
}

// applyDecision transitions a record into a terminal state and, for
// approvals, advances the user's level.
func (service *Service) applyDecision(ctx context.Context, record *Record, next Status, reviewerID, reason string) error {
	from := record.Status
	if !from.CanTransitionTo(next) {
		return apperr.InvalidTransition(
			"Cannot move verification from " + string(from) + " to " + string(next))
	}

	now := time.Now()
	record.Status = next
	record.ReviewerID = reviewerID
	record.Reason = reason
	record.DecidedAt = &now
	if next == StatusApproved {
		// The deadline stops bounding the decision and starts bounding
		// the grant.
		record.ExpiresAt = now.Add(grantValidity)
	}

	if err := service.store.Update(ctx, record, from); err != nil {
		return err
	}

	if next == StatusApproved {
		if err := service.users.SetLevel(ctx, record.UserID, record.TargetLevel); err != nil {
			return err
		}
	}

	if service.metrics != nil {
		service.metrics.VerificationDecisions.WithLabelValues(string(next)).Inc()
	}

	if next == StatusApproved || next == StatusRejected {
		service.audit.Record(ctx, audit.Entry{
			ActorID:    coalesce(reviewerID, "system"),
			Action:     audit.ActionVerificationDecide,
			EntityType: audit.EntityVerification,
			EntityID:   record.ID,
			Outcome:    audit.OutcomeSuccess,
			Metadata: map[string]any{
				"status":       string(next),
				"target_level": record.TargetLevel,
				"user_id":      record.UserID,
			},
		})
	}

	return nil
}

func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
