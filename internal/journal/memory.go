package journal

import (
	"context"
	"sync"
)

const defaultCapacity = 1024

// memoryStore keeps the newest entries in a bounded ring.
type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
}

func newMemory(capacity int) *memoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &memoryStore{cap: capacity}
}

func (m *memoryStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if len(m.entries) > m.cap {
		m.entries = m.entries[len(m.entries)-m.cap:]
	}
	return nil
}

func (m *memoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, limit)
	copy(out, m.entries[len(m.entries)-limit:])
	return out, nil
}

func (m *memoryStore) Close() error { return nil }
