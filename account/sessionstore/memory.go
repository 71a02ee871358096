package sessionstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It is the default for short-lived clients
// and for tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory initializes an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get returns the stored value, or (nil, nil) when the key is absent.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

// Set stores a value under a key.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored

	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}
