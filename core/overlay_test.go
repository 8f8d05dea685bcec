package core_test

import (
	"testing"
	"time"

	"github.com/bigtop/studio-engine/core"
)

func occ(seriesID string, year int, month time.Month, day int) core.Occurrence {
	return core.Occurrence{SeriesID: core.SeriesID(seriesID), Date: core.NewDate(year, month, day)}
}

func TestOverlay_CancellationIsIndependent(t *testing.T) {
	// GIVEN: One cancelled occurrence
	// THEN: No other (series, date) pair is affected, including the same
	//       series on a different date and a different series on the same date

	target := occ("s1", 2024, time.January, 10)
	overlay := core.NewOverlay().SetCancelled(target.Key(), true)

	if !overlay.IsCancelled(target.Key()) {
		t.Fatal("target occurrence should be cancelled")
	}
	for _, other := range []core.Occurrence{
		occ("s1", 2024, time.January, 17),
		occ("s2", 2024, time.January, 10),
		occ("s1", 2024, time.February, 10),
	} {
		if overlay.IsCancelled(other.Key()) {
			t.Errorf("%s should be unaffected", other.Key())
		}
	}
}

func TestOverlay_CancelUncancel_Reversible(t *testing.T) {
	// Cancel then un-cancel must be observably identical to never touching it.
	target := occ("s1", 2024, time.January, 10)

	overlay := core.NewOverlay()
	overlay = overlay.SetCancelled(target.Key(), true)
	overlay = overlay.SetCancelled(target.Key(), false)

	if overlay.IsCancelled(target.Key()) {
		t.Fatal("occurrence should be back to scheduled")
	}
	if core.NewOverlay().IsCancelled(target.Key()) != overlay.IsCancelled(target.Key()) {
		t.Fatal("re-applied inverse should match an untouched overlay")
	}
}

func TestOverlay_DoubleCancel_NoOp(t *testing.T) {
	target := occ("s1", 2024, time.January, 10)
	once := core.NewOverlay().SetCancelled(target.Key(), true)
	twice := once.SetCancelled(target.Key(), true)
	if !twice.IsCancelled(target.Key()) || len(twice) != len(once) {
		t.Fatal("cancelling twice should be a no-op beyond the first")
	}
}

func TestOverlay_SetCancelled_DoesNotMutateReceiver(t *testing.T) {
	target := occ("s1", 2024, time.January, 10)
	original := core.NewOverlay()
	_ = original.SetCancelled(target.Key(), true)
	if original.IsCancelled(target.Key()) {
		t.Fatal("SetCancelled must not mutate the original overlay")
	}
}

func TestOverlay_AbsenceMeansScheduled(t *testing.T) {
	var zero core.Overlay
	if zero.IsCancelled(occ("s1", 2024, time.January, 10).Key()) {
		t.Fatal("missing entry must read as not cancelled")
	}
}
