/*
overlay.go - Sparse per-occurrence cancellation state

PURPOSE:
  Cancelling one Wednesday of a weekly series must never touch the
  recurring definition. The Overlay is a sparse map from occurrence key to
  cancelled state, layered on top of computed occurrences: absence means
  "scheduled, not cancelled". Only occurrences that were ever explicitly
  cancelled or un-cancelled hold an entry.

PURITY:
  SetCancelled is copy-on-write: it returns a new overlay and leaves the
  receiver untouched. All shared-state mutation goes through the Store's
  dispatch entrypoint; nothing mutates an overlay in place behind it.

REVERSIBILITY:
  Cancel-then-uncancel restores the prior visible schedule exactly, and
  cancelling twice is a no-op beyond the first.

SEE ALSO:
  - types.go:  Occurrence.Key() composite identifier
  - ledger.go: Drops cancelled occurrences from balance windows
*/
package core

// =============================================================================
// OVERLAY
// =============================================================================

// Overlay maps occurrence keys to their cancelled state. The zero value is
// usable for reads; use NewOverlay for a writable empty overlay.
type Overlay map[OccurrenceKey]bool

func NewOverlay() Overlay {
	return make(Overlay)
}

// IsCancelled reports whether the occurrence is cancelled. Missing entries
// mean scheduled.
func (o Overlay) IsCancelled(key OccurrenceKey) bool {
	return o[key]
}

// SetCancelled returns a new overlay with the occurrence's state set.
// The receiver is never modified.
func (o Overlay) SetCancelled(key OccurrenceKey, cancelled bool) Overlay {
	next := make(Overlay, len(o)+1)
	for k, v := range o {
		next[k] = v
	}
	next[key] = cancelled
	return next
}

// Clone returns an independent copy.
func (o Overlay) Clone() Overlay {
	next := make(Overlay, len(o))
	for k, v := range o {
		next[k] = v
	}
	return next
}
