package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, gameID string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[gameID] = append([]byte(nil), blob...)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, gameID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[gameID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *MemoryStore) Delete(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[gameID]; !ok {
		return ErrSnapshotNotFound
	}
	delete(m.blobs, gameID)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.blobs))
	for id := range m.blobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
