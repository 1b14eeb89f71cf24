// Copyright (c) 2026 TrustFlow. All rights reserved.

package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	km := New()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			km.Lock("user-1")
			defer km.Unlock("user-1")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyMutex_IndependentKeysDoNotBlock(t *testing.T) {
	km := New()

	km.Lock("user-a")

	done := make(chan struct{})
	go func() {
		km.Lock("user-b")
		km.Unlock("user-b")
		close(done)
	}()

	// user-b must proceed while user-a is still held.
	<-done

	km.Unlock("user-a")
}

func TestKeyMutex_EntriesFreedAfterUnlock(t *testing.T) {
	km := New()

	km.Lock("transient")
	km.Unlock("transient")

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.entries)
}

func TestKeyMutex_UnlockUnknownKeyPanics(t *testing.T) {
	km := New()

	assert.Panics(t, func() {
		km.Unlock("never-locked")
	})
}
