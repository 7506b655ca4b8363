// Package cache provides the artifact cache capability: byte payloads keyed
// by family/version/kind, each stamped with the time it was stored. The
// engine tolerates staleness by design -- freshness policy belongs to the
// callers, which compare the returned timestamp against their own windows.
// Three implementations are provided: in-memory (tests and defaults),
// filesystem (the original tool's behavior), and Redis (multi-process
// deployments).
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vikrant31/HCUPtools/internal/platform/clock"
)

// Store is the cache capability.
type Store interface {
	// Get returns the payload for key, the time it was stored, and whether
	// it was present.
	Get(ctx context.Context, key string) ([]byte, time.Time, bool)
	// Put stores the payload for key, replacing any existing entry.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	data     []byte
	storedAt time.Time
}

// Memory is an in-process Store guarded by a mutex.
type Memory struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
}

// NewMemory creates an in-memory store. A nil clk uses the system clock.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.System{}
	}
	return &Memory{clock: clk, entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, e.storedAt, true
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.entries[key] = memoryEntry{data: stored, storedAt: m.clock.Now()}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
