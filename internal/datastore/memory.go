package datastore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend keeps documents in process. Used for local runs and tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) Save(_ context.Context, table, id string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	}
	docs, ok := m.tables[table]
	if !ok {
		docs = make(map[string][]byte)
		m.tables[table] = docs
	}
	docs[id] = append([]byte(nil), data...)
	return id, nil
}

func (m *MemoryBackend) Load(_ context.Context, table, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.tables[table][id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryBackend) Search(_ context.Context, table string, limit int) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []Item
	for id, data := range m.tables[table] {
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, Item{ID: id, Data: append([]byte(nil), data...)})
	}
	return items, nil
}

func (m *MemoryBackend) Delete(_ context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tables[table], id)
	return nil
}

func (m *MemoryBackend) Count(_ context.Context, table string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.tables[table]), nil
}
