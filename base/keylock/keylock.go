// Package keylock provides mutexes addressed by string key. Bid admission is
// serialized per auction with one of these, so two concurrent bids can never
// validate against the same stale current price.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock hands out one mutex per key. Entries are dropped once the last
// holder releases, so the map does not grow with the number of keys ever seen.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyLock {
	return &KeyLock{entries: map[string]*entry{}}
}

// Lock blocks until the lock for key is held.
func (kl *KeyLock) Lock(key string) {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		e = &entry{}
		kl.entries[key] = e
	}
	e.refs++
	kl.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not held panics,
// same as sync.Mutex.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		kl.mu.Unlock()
		panic("keylock: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(kl.entries, key)
	}
	kl.mu.Unlock()

	e.mu.Unlock()
}
