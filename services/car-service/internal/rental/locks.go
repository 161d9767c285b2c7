package rental

import (
	"fmt"
	"sync"
)

// lockTable serializes validate-then-write sequences per key: offer id for
// reservations, car id for offers. It closes the in-process check-then-act
// race; database constraints remain the cross-process backstop.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the key's lock is held and returns the release func.
func (t *lockTable) acquire(key string) func() {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		t.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(t.entries, key)
		}
		t.mu.Unlock()
	}
}

func offerKey(offerID int64) string { return fmt.Sprintf("offer:%d", offerID) }
func carKey(carID int64) string     { return fmt.Sprintf("car:%d", carID) }
