// Package pending serializes lifecycle operations per credential. A
// credential with a transaction in flight rejects further mutations until the
// first one confirms or fails, so concurrent operators cannot double-submit.
package pending

import (
	"context"
	"sync"
	"time"

	"attest/pkg/platform/sentinel"
)

// Tracker records which credentials have an unconfirmed transaction.
type Tracker interface {
	// Begin marks the credential as having a transaction in flight. It
	// returns sentinel.ErrConflict if one already is.
	Begin(ctx context.Context, credentialID string, txID string) error

	// End clears the in-flight marker. Safe to call when no marker exists.
	End(ctx context.Context, credentialID string) error

	// InFlight returns the pending transaction id, or "" if none.
	InFlight(ctx context.Context, credentialID string) (string, error)
}

// MemoryTracker is an in-process Tracker for tests and single-instance runs.
type MemoryTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	txID    string
	expires time.Time
}

// NewMemory creates a memory tracker. Entries expire after ttl so a crashed
// operation cannot wedge a credential forever.
func NewMemory(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryTracker{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (t *MemoryTracker) Begin(_ context.Context, credentialID, txID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[credentialID]; ok && time.Now().Before(entry.expires) {
		return sentinel.ErrConflict
	}
	t.entries[credentialID] = memoryEntry{txID: txID, expires: time.Now().Add(t.ttl)}
	return nil
}

func (t *MemoryTracker) End(_ context.Context, credentialID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, credentialID)
	return nil
}

func (t *MemoryTracker) InFlight(_ context.Context, credentialID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[credentialID]
	if !ok || time.Now().After(entry.expires) {
		return "", nil
	}
	return entry.txID, nil
}

var _ Tracker = (*MemoryTracker)(nil)
