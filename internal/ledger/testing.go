package ledger

import (
	"time"
)

// SetClock replaces the in-memory store's clock so tests can control entry
// timestamps. No-op for other Store implementations.
func SetClock(s Store, now func() time.Time) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.now = now
	}
}

// FailNextTransfer arms the in-memory store to abort the next Transfer at
// commit time, after all validation has passed. Used to prove transfer
// atomicity.
func FailNextTransfer(s Store, cause error) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.failTransfer = cause
	}
}
