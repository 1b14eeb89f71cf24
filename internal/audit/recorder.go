// Copyright (c) 2026 TrustFlow. All rights reserved.

package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trustflow/identity/internal/platform/ctxutil"
	"github.com/trustflow/identity/internal/platform/metrics"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// Queue sizing and shutdown behavior.
const (
	// queueCapacity bounds the in-memory backlog. Beyond this, entries are dropped.
	queueCapacity = 256

	// drainTimeout is the maximum time Close waits for the backlog to flush.
	drainTimeout = 2 * time.Second

	// insertTimeout bounds each individual persistence attempt.
	insertTimeout = 3 * time.Second
)

// Recorder accepts audit entries from the request path and persists them
// asynchronously through a single background worker.
//
// # Concurrency
//
// Record is safe for concurrent use and never blocks: when the queue is
// full the entry is dropped, logged, and counted.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	queue chan Entry
	done  chan struct{}
	once  sync.Once
}

// NewRecorder creates a Recorder. The metrics parameter may be nil in tests.
func NewRecorder(store Store, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		metrics: m,
		queue:   make(chan Entry, queueCapacity),
		done:    make(chan struct{}),
	}
}

// Start launches the background worker. Call exactly once.
func (recorder *Recorder) Start() {
	go recorder.run()
}

// Record enqueues an entry for asynchronous persistence.
//
// The caller's context is used only to harvest request metadata; persistence
// happens later on the worker's own deadline, so a cancelled request does not
// lose its audit trail.
func (recorder *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuidv7.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.RequestID == "" {
		entry.RequestID = ctxutil.GetRequestID(ctx)
	}

	select {
	case recorder.queue <- entry:
	default:
		recorder.logger.Warn("audit_entry_dropped",
			slog.String("action", entry.Action),
			slog.String("entity_type", entry.EntityType),
			slog.String("entity_id", entry.EntityID),
		)
		if recorder.metrics != nil {
			recorder.metrics.AuditDropped.Inc()
		}
	}
}

// Close stops accepting entries and drains the backlog, waiting at most
// drainTimeout. Entries still queued after the deadline are lost and logged.
func (recorder *Recorder) Close() {
	recorder.once.Do(func() {
		close(recorder.queue)
		select {
		case <-recorder.done:
		case <-time.After(drainTimeout):
			recorder.logger.Warn("audit_drain_timeout",
				slog.Int("remaining", len(recorder.queue)),
			)
		}
	})
}

// run is the worker loop. It exits when the queue is closed and empty.
func (recorder *Recorder) run() {
	defer close(recorder.done)

	for entry := range recorder.queue {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := recorder.store.Insert(ctx, entry); err != nil {
			recorder.logger.Error("audit_insert_failed",
				slog.String("action", entry.Action),
				slog.String("entity_id", entry.EntityID),
				slog.Any("error", err),
			)
		}
		cancel()
	}
}
