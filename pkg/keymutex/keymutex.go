// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package keymutex provides per-key mutual exclusion.

It is used to serialize operations that must not interleave for the same
user (refresh token rotation, verification submission) without blocking
unrelated users behind a single global lock.

Locks are reference-counted: an entry exists only while at least one
goroutine holds or waits on it, so memory stays proportional to current
contention rather than the total key space.
*/
package keymutex

import "sync"

// KeyMutex is a dynamic arena of named mutexes.
// The zero value is not usable; call [New].
type KeyMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	lock sync.Mutex
	refs int
}

// New returns an empty arena.
func New() *KeyMutex {
	return &KeyMutex{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.lock.Lock()
}

// Unlock releases the mutex for key and frees the entry when no other
// goroutine holds or waits on it. Unlocking a key that was never locked
// panics, mirroring sync.Mutex semantics.
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("keymutex: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.lock.Unlock()
}
