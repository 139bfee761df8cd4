// Package keylock provides per-key mutual exclusion.
// The ledger uses it to serialize writers on a single (company, account)
// while letting different accounts proceed fully in parallel.
package keylock

import (
	"sync"

	"costbook/internal/core/id"
)

// KeyLock is a set of mutexes keyed by entity ID.
// Entries are created lazily and removed once no goroutine holds or
// waits on them, so the table stays proportional to active accounts.
type KeyLock struct {
	mu    sync.Mutex
	locks map[id.ID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[id.ID]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyLock) Lock(key id.ID) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key.
// Panics if the key was never locked, mirroring sync.Mutex semantics.
func (k *KeyLock) Unlock(key id.ID) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("keylock: unlock of unlocked key")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
