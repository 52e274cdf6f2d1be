// Package cache provides KeyValueCache implementations.  None of them
// expire or evict entries; the store grows with the distinct request set.
package cache

import (
	"context"
	"sync"

	"github.com/Skryldev/image-server/utils"
)

// Memory is an in-process map cache, the default backend.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return utils.CloneBytes(data), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = utils.CloneBytes(value)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
