package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"attest/internal/credential/models"
	"attest/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return ErrConflict when a record with the same id already exists
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps registry records in memory for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uint64]*models.Record
}

// NewMemory constructs an empty in-memory registry store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[uint64]*models.Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.CredentialID]; ok {
		return sentinel.ErrConflict
	}
	copyRecord := *record
	s.records[record.CredentialID] = &copyRecord
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID uint64) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *record
	return &copyRecord, nil
}

func (s *InMemoryStore) List(_ context.Context, filter *models.RecordFilter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*models.Record
	for _, record := range s.records {
		if filter != nil {
			if filter.ShortCode != "" && record.ShortCode != filter.ShortCode {
				continue
			}
			if filter.IssuedBy != "" && record.IssuedBy != filter.IssuedBy {
				continue
			}
		}
		copyRecord := *record
		filtered = append(filtered, &copyRecord)
	}

	// Newest first, matching the SQL store's ordering.
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].IssuedAt.After(filtered[j].IssuedAt)
	})

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(filtered) {
				return nil, nil
			}
			filtered = filtered[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(filtered) {
			filtered = filtered[:filter.Limit]
		}
	}
	return filtered, nil
}

func (s *InMemoryStore) RecordAction(_ context.Context, credentialID uint64, action, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.LastAction = action
	record.LastTxID = txID
	record.UpdatedAt = time.Now()
	return nil
}

var _ Store = (*InMemoryStore)(nil)
