// Copyright (c) 2026 TrustFlow. All rights reserved.

package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow/identity/internal/platform/ctxutil"
)

// memoryStore is an in-memory Store for recorder tests.
type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
	failing bool
	block   chan struct{}
}

func (s *memoryStore) Insert(_ context.Context, entry Entry) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("storage down")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryStore) List(_ context.Context, _ ListFilter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...), nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_PersistsEntriesAsynchronously(t *testing.T) {
	store := &memoryStore{}
	recorder := NewRecorder(store, testLogger(), nil)
	recorder.Start()

	for i := 0; i < 10; i++ {
		recorder.Record(context.Background(), Entry{
			ActorID:    "actor-1",
			Action:     ActionRoleCreated,
			EntityType: EntityRole,
			EntityID:   "role-1",
			Outcome:    OutcomeSuccess,
		})
	}

	recorder.Close()

	require.Equal(t, 10, store.count())

	entries, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEmpty(t, entry.ID, "recorder must assign IDs")
		assert.False(t, entry.CreatedAt.IsZero(), "recorder must timestamp entries")
	}
}

func TestRecorder_HarvestsRequestIDFromContext(t *testing.T) {
	store := &memoryStore{}
	recorder := NewRecorder(store, testLogger(), nil)
	recorder.Start()

	ctx := ctxutil.WithRequestID(context.Background(), "req-7f3a")
	recorder.Record(ctx, Entry{
		ActorID:    "actor-1",
		Action:     ActionLoginSucceeded,
		EntityType: EntityUser,
		EntityID:   "user-1",
		Outcome:    OutcomeSuccess,
	})

	// An explicitly set request ID wins over the context.
	recorder.Record(ctx, Entry{
		ActorID:   "actor-1",
		Action:    ActionSessionRevoked,
		RequestID: "req-explicit",
	})

	recorder.Close()

	entries, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-7f3a", entries[0].RequestID)
	assert.Equal(t, "req-explicit", entries[1].RequestID)
}

func TestRecorder_RecordNeverBlocksWhenQueueFull(t *testing.T) {
	// Worker is wedged on the first insert, so the queue fills up.
	store := &memoryStore{block: make(chan struct{})}
	recorder := NewRecorder(store, testLogger(), nil)
	recorder.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < queueCapacity*2; i++ {
			recorder.Record(context.Background(), Entry{Action: ActionLoginFailed})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(store.block)
	recorder.Close()
}

func TestRecorder_InsertFailureDoesNotStopWorker(t *testing.T) {
	store := &memoryStore{failing: true}
	recorder := NewRecorder(store, testLogger(), nil)
	recorder.Start()

	recorder.Record(context.Background(), Entry{Action: ActionLoginFailed})

	// Recover the store and confirm later entries still land.
	store.mu.Lock()
	store.failing = false
	store.mu.Unlock()

	recorder.Record(context.Background(), Entry{Action: ActionLoginSucceeded})
	recorder.Close()

	assert.Equal(t, 1, store.count())
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	store := &memoryStore{}
	recorder := NewRecorder(store, testLogger(), nil)
	recorder.Start()

	recorder.Close()
	assert.NotPanics(t, func() { recorder.Close() })
}
