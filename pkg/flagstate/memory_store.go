package flagstate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It's useful for testing and simple applications.
type MemoryStore struct {
	records map[string]Snapshot
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory flag store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Snapshot),
	}
}

// Fetch returns a copy of the entity's persisted snapshot, or (nil, nil) when
// the entity has never been persisted.
func (m *MemoryStore) Fetch(ctx context.Context, entityID string) (Snapshot, error) {
	m.mu.RLock()
	record, exists := m.records[entityID]
	m.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	// Return a copy to prevent external modification of the stored record.
	return record.Clone(), nil
}

// Create stores the first record for the entity.
func (m *MemoryStore) Create(ctx context.Context, entityID string, flags Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[entityID]; exists {
		return errors.Join(ErrAlreadyPersisted, fmt.Errorf("entity %q", entityID))
	}

	record := flags.Clone()
	if record == nil {
		record = Snapshot{}
	}
	m.records[entityID] = record
	return nil
}

// Update merges the given keys into the existing record.
func (m *MemoryStore) Update(ctx context.Context, entityID string, flags Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[entityID]
	if !exists {
		return errors.Join(ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}
	maps.Copy(record, flags)
	return nil
}

// Replace overwrites the existing record with exactly the given mapping.
func (m *MemoryStore) Replace(ctx context.Context, entityID string, flags Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[entityID]; !exists {
		return errors.Join(ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}

	record := flags.Clone()
	if record == nil {
		record = Snapshot{}
	}
	m.records[entityID] = record
	return nil
}
