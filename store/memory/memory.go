// Package memory provides an in-memory snapshot store for testing/dev.
package memory

import (
	"context"
	"sync"

	"github.com/bigtop/studio-engine/store/sqlite"
)

// Store holds snapshot revisions in memory. It mirrors the sqlite store's
// surface so the saver and tests can swap it in without a database file.
type Store struct {
	mu        sync.RWMutex
	revisions [][]byte
}

func New() *Store {
	return &Store{}
}

func (m *Store) Save(_ context.Context, document []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions = append(m.revisions, append([]byte(nil), document...))
	return int64(len(m.revisions)), nil
}

func (m *Store) LoadLatest(_ context.Context) ([]byte, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.revisions) == 0 {
		return nil, 0, sqlite.ErrNoSnapshot
	}
	last := m.revisions[len(m.revisions)-1]
	return append([]byte(nil), last...), int64(len(m.revisions)), nil
}

// SaveCount reports how many writes have happened; tests assert debounce
// coalescing with it.
func (m *Store) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.revisions)
}

func (m *Store) Close() error { return nil }
