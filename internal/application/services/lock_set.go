package services

import "sync"

// lockSet tracks keys currently being worked on. Acquire is non-blocking:
// a second caller for the same key is told to skip, not wait.
type lockSet struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newLockSet() *lockSet {
	return &lockSet{keys: make(map[string]bool)}
}

// TryAcquire claims the key. Returns false when another caller holds it.
func (l *lockSet) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keys[key] {
		return false
	}
	l.keys[key] = true
	return true
}

// Release frees the key.
func (l *lockSet) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}
