/*
Package persist connects the core store to durable storage.

PURPOSE:
  Every committed state must eventually reach disk, but a busy attendance
  screen produces a toggle per tap and thrashing storage on every
  keystroke helps nobody. The Saver listens for committed snapshots and
  writes after a short quiescent period (default 500ms); Flush forces an
  immediate non-debounced write and runs on process shutdown.

FIRE-AND-FORGET:
  The core never awaits persistence. The listener callback only records
  the pending snapshot and arms a timer; the actual write happens on the
  timer goroutine, and write failures are logged, not propagated back into
  dispatch.

SEE ALSO:
  - store/sqlite: The document store written to
  - core/store.go: The Subscribe hook this attaches to
*/
package persist

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bigtop/studio-engine/core"
	"github.com/bigtop/studio-engine/store/sqlite"
)

// SnapshotStore is the durable document storage the saver writes to.
// Implemented by store/sqlite and store/memory.
type SnapshotStore interface {
	Save(ctx context.Context, document []byte) (int64, error)
	LoadLatest(ctx context.Context) ([]byte, int64, error)
	Close() error
}

// DefaultDebounce is the quiescent period before a pending state is written.
const DefaultDebounce = 500 * time.Millisecond

// Saver debounces snapshot writes.
type Saver struct {
	store    SnapshotStore
	debounce time.Duration

	mu      sync.Mutex
	pending *core.State
	timer   *time.Timer
}

// NewSaver creates a saver writing to the given store. A non-positive
// debounce falls back to the default.
func NewSaver(store SnapshotStore, debounce time.Duration) *Saver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Saver{store: store, debounce: debounce}
}

// Notify is the core.Listener: it records the latest committed state and
// re-arms the quiescence timer. Remote-origin states are saved too - a
// pushed document is as durable-worthy as a local edit.
func (s *Saver) Notify(st core.State, _ core.Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &st
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flushPending)
}

// Flush writes any pending state immediately. Called on shutdown and
// navigation-away paths where waiting out the debounce would lose data.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.flushPending()
}

func (s *Saver) flushPending() {
	s.mu.Lock()
	st := s.pending
	s.pending = nil
	s.mu.Unlock()
	if st == nil {
		return
	}

	doc, err := core.EncodeState(*st)
	if err != nil {
		log.Printf("persist: encode snapshot: %v", err)
		return
	}
	if _, err := s.store.Save(context.Background(), doc); err != nil {
		log.Printf("persist: save snapshot: %v", err)
	}
}

// Load reads and ingests the latest stored snapshot, upgrading older
// schema shapes. A missing snapshot yields a fresh empty state; real
// storage errors propagate.
func Load(ctx context.Context, store SnapshotStore) (core.State, error) {
	doc, _, err := store.LoadLatest(ctx)
	if errors.Is(err, sqlite.ErrNoSnapshot) {
		return core.NewState(), nil
	}
	if err != nil {
		return core.State{}, err
	}
	return core.DecodeState(doc)
}
