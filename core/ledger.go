/*
ledger.go - Remaining-credit balance calculation

PURPOSE:
  Computes a student's remaining lesson credits from purchase history,
  attendance, and the occurrence schedule since the last payment. This is
  the single implementation; every surface that displays a balance (API,
  export, payment pre-checks) calls RemainingCredits. The original tool
  this replaces had three near-identical copies of this math drifting
  apart across screens - centralizing it is the whole point.

THE BALANCE RULE:
  remaining = student.LessonsCount - visits-since-anchor

  Missed lessons are listed but deliberately NEVER deducted: credits are
  consumed by attendance, not by schedule. A student who never shows up
  does not go negative. This is intended business policy, not a bug.

ANCHOR:
  The window starts at the student's LastPaymentDate, falling back to the
  newest payment record's date. No anchor means no window: remaining 0,
  empty scheduled/visited/missed.

TOTALITY:
  This is a total function over its inputs. Malformed series, dangling
  enrollment references, and visits for long-left series all degrade to
  "contributes nothing" - one bad entity must not corrupt every balance.

SEE ALSO:
  - schedule.go: Window expansion
  - overlay.go:  Cancelled occurrences drop out of the window
  - actions.go:  RecordPayment uses the pre-payment balance
*/
package core

import "sort"

// =============================================================================
// BALANCE REPORT
// =============================================================================

// BalanceReport is the derived credit state for one student as of a date.
type BalanceReport struct {
	StudentID StudentID `json:"studentId"`
	AsOf      Date      `json:"asOf"`

	// Anchor is the start of the balance window. HasAnchor is false for
	// students with no payment history; everything below is then empty.
	Anchor    Date `json:"anchor"`
	HasAnchor bool `json:"hasAnchor"`

	// Remaining = LessonsCount - len(Visited). May be negative.
	Remaining int `json:"remaining"`

	// Scheduled holds the not-cancelled occurrences of every enrolled
	// series within [Anchor, AsOf], sorted by date.
	Scheduled []Occurrence `json:"scheduled"`

	// Visited holds the student's visits within the window, matched by raw
	// date only - a visit counts even if its series has been unenrolled,
	// edited, or its occurrence since cancelled. Attendance is immutable
	// fact; enrollment is current state.
	Visited []Visit `json:"visited"`

	// Missed holds scheduled occurrences whose day has fully elapsed with
	// no same-date visit. Informational only; never deducted.
	Missed []Occurrence `json:"missed"`
}

// Negative reports whether the balance is in the flagged negative state.
func (r BalanceReport) Negative() bool { return r.Remaining < 0 }

// =============================================================================
// CALCULATION
// =============================================================================

// RemainingCredits computes the student's balance report against the given
// snapshot. asOf bounds the window; callers pass "today" for live views.
func RemainingCredits(student *Student, st *State, asOf Date) BalanceReport {
	report := BalanceReport{AsOf: asOf}
	if student == nil {
		return report
	}
	report.StudentID = student.ID

	anchor, ok := anchorDate(student)
	if !ok {
		return report
	}
	report.Anchor = anchor
	report.HasAnchor = true

	// Scheduled: expand every enrolled series over [anchor, asOf], drop
	// cancelled occurrences. Dangling or malformed series expand to nothing.
	for _, seriesID := range student.ClassSeries {
		series := st.SeriesByID(seriesID)
		for _, occ := range ExpandOccurrences(series, anchor, asOf) {
			if st.Overlay.IsCancelled(occ.Key()) {
				continue
			}
			report.Scheduled = append(report.Scheduled, occ)
		}
	}
	sort.Slice(report.Scheduled, func(i, j int) bool {
		a, b := report.Scheduled[i], report.Scheduled[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.SeriesID < b.SeriesID
	})

	// Visited: raw date-in-window match, independent of occurrence identity.
	visitedDates := make(map[string]bool)
	for _, v := range st.Visits {
		if v.StudentID != student.ID {
			continue
		}
		if v.Date.AfterOrEqual(anchor) && v.Date.BeforeOrEqual(asOf) {
			report.Visited = append(report.Visited, v)
			visitedDates[v.Date.String()] = true
		}
	}
	sort.Slice(report.Visited, func(i, j int) bool {
		return report.Visited[i].Date.Before(report.Visited[j].Date)
	})

	// Missed: the day must be fully over (strictly before asOf) and carry
	// no visit on that date.
	for _, occ := range report.Scheduled {
		if occ.Date.Before(asOf) && !visitedDates[occ.Date.String()] {
			report.Missed = append(report.Missed, occ)
		}
	}

	report.Remaining = student.LessonsCount - len(report.Visited)
	return report
}

// anchorDate resolves the balance window start: LastPaymentDate if set,
// else the newest payment record's date.
func anchorDate(student *Student) (Date, bool) {
	if !student.LastPaymentDate.IsZero() {
		return student.LastPaymentDate, true
	}
	var latest Date
	for _, p := range student.Payments {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	if latest.IsZero() {
		return Date{}, false
	}
	return latest, true
}
