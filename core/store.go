/*
store.go - The state container and dispatch entrypoint

PURPOSE:
  One Store owns the process's entity snapshot. It is created by the
  composition root (cmd/server) and passed to every consumer; there is no
  package-level global. All mutation funnels through Dispatch, which
  applies a typed Action to a clone of the current state and commits the
  clone only on success - a rejected action leaves the committed state
  byte-for-byte untouched.

ORDERING:
  Dispatch serializes on a mutex, so mutations apply in the order issued
  even though HTTP handlers call in from multiple goroutines. Every read
  sees the latest committed snapshot; there is no cache to invalidate.

CHANGE NOTIFICATION:
  Listeners (the debounced saver, the replicator) are notified with the
  committed snapshot after each successful dispatch. The fan-out holds a
  second mutex taken before the state lock is released, so listeners see
  commits in commit order - otherwise a preempted dispatch could deliver
  an older snapshot after a newer one and the saver would persist stale
  state as latest. Notification is fire-and-forget from the core's
  perspective: listeners must return quickly and do their I/O on their
  own time.

SEE ALSO:
  - actions.go: The Action implementations
  - persist:    Debounced durable writes
  - replicate:  Last-writer-wins remote sync
*/
package core

import (
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// STORE
// =============================================================================

// Listener receives each committed snapshot. The origin tag lets sync
// suppress echoing a remotely-pushed document straight back out.
type Listener func(st State, origin Origin)

// Origin says where a committed state came from.
type Origin string

const (
	// OriginLocal marks states produced by local user actions.
	OriginLocal Origin = "local"
	// OriginRemote marks states ingested from a remote push; the
	// replicator must not re-propagate these.
	OriginRemote Origin = "remote"
)

// Store is the single mutable holder of the entity snapshot.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners []Listener

	// notifyMu orders the listener fan-out. Acquired while mu is still
	// held, so notifications happen in commit order.
	notifyMu sync.Mutex

	// NewID and Now are injectable for deterministic tests.
	NewID func() string
	Now   func() Date
}

// NewStore creates a store holding the given initial state. The caller is
// responsible for having migrated the state to the current schema first.
func NewStore(initial State) *Store {
	return &Store{
		state: initial.Clone(),
		NewID: uuid.NewString,
		Now:   Today,
	}
}

// State returns a deep copy of the latest committed snapshot. Collections
// here number in the hundreds, so copying per read is cheap and removes a
// whole class of aliasing bugs.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers a listener for committed states. Not safe to call
// concurrently with Dispatch; the composition root wires listeners before
// serving traffic.
func (s *Store) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Dispatch applies the action and returns the committed snapshot. On error
// nothing changes and the previous snapshot is returned.
func (s *Store) Dispatch(a Action) (State, error) {
	return s.dispatch(a, OriginLocal)
}

// DispatchRemote applies an externally-pushed action (ReplaceState from
// sync) and tags the commit so listeners can suppress the echo.
func (s *Store) DispatchRemote(a Action) (State, error) {
	return s.dispatch(a, OriginRemote)
}

func (s *Store) dispatch(a Action, origin Origin) (State, error) {
	s.mu.Lock()

	if a == nil {
		st := s.state.Clone()
		s.mu.Unlock()
		return st, ErrUnknownAction
	}

	env := Env{NewID: s.NewID, Today: s.Now()}
	next := s.state.Clone()
	if err := a.apply(&next, env); err != nil {
		prev := s.state.Clone()
		s.mu.Unlock()
		return prev, err
	}
	s.state = next

	committed := next.Clone()
	listeners := s.listeners

	// Take the fan-out lock before releasing the state lock: a dispatch
	// that commits later cannot overtake this one's notifications.
	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, l := range listeners {
		l(committed, origin)
	}
	s.notifyMu.Unlock()

	return committed, nil
}

// =============================================================================
// STATE CLONING
// =============================================================================

// Clone returns a deep copy of the snapshot.
func (st State) Clone() State {
	out := st
	out.Students = make([]Student, len(st.Students))
	for i, s := range st.Students {
		out.Students[i] = s.Clone()
	}
	out.Coaches = append([]Coach(nil), st.Coaches...)
	out.Series = make([]ClassSeries, len(st.Series))
	for i, cs := range st.Series {
		out.Series[i] = cs
		out.Series[i].Participants = append([]StudentID(nil), cs.Participants...)
	}
	out.Visits = append([]Visit(nil), st.Visits...)
	out.Overlay = st.Overlay.Clone()
	return out
}

// Clone returns a deep copy of the student.
func (s Student) Clone() Student {
	out := s
	out.ClassSeries = append([]SeriesID(nil), s.ClassSeries...)
	out.Payments = clonePayments(s.Payments)
	out.EditHistory = append([]EditNote(nil), s.EditHistory...)
	return out
}

func clonePayments(ps []Payment) []Payment {
	return append([]Payment(nil), ps...)
}
