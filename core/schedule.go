/*
schedule.go - Weekly occurrence expansion

PURPOSE:
  Turns a recurring ClassSeries definition into the concrete calendar dates
  it meets on, within a bounded window. This is the single implementation
  every schedule view, attendance sheet, and balance window derives from.

ALGORITHM:
  Find the first date on/after max(series.StartDate, windowStart) whose
  weekday matches the series, then step in fixed 7-day increments until
  past min(series.EndDate, windowEnd). Advancing by constant day-count -
  never by calendar-month arithmetic - guarantees exactly one occurrence
  per week with no drift across month lengths or leap years.

DETERMINISM:
  Expansion is a pure function of the series definition and the window.
  Nothing here reads the wall clock; "today"-relative windows are the
  caller's business.

SEE ALSO:
  - overlay.go: Cancellation state layered on the expanded dates
  - ledger.go:  Consumes expansion for balance windows
*/
package core

// =============================================================================
// EXPANSION
// =============================================================================

// Expand returns every date on which the series meets within
// [windowStart, windowEnd], both bounds inclusive.
//
// A series missing its start or end date is malformed and yields nothing,
// as does an inverted window. Windows in practice span at most about a
// year, so the result is always small enough to materialize.
func Expand(series *ClassSeries, windowStart, windowEnd Date) []Date {
	if series == nil || !series.Valid() {
		return nil
	}
	if windowStart.IsZero() || windowEnd.IsZero() || windowStart.After(windowEnd) {
		return nil
	}

	weekday, ok := ParseWeekday(series.DayOfWeek)
	if !ok {
		return nil
	}

	start := MaxDate(series.StartDate, windowStart)
	end := MinDate(series.EndDate, windowEnd)
	if start.After(end) {
		return nil
	}

	// Roll forward to the first matching weekday, then step by whole weeks.
	first := start
	for first.Weekday() != weekday {
		first = first.AddDays(1)
	}

	var dates []Date
	for d := first; d.BeforeOrEqual(end); d = d.AddDays(7) {
		dates = append(dates, d)
	}
	return dates
}

// ExpandOccurrences is Expand with the series identity attached, for
// callers that need overlay keys rather than bare dates.
func ExpandOccurrences(series *ClassSeries, windowStart, windowEnd Date) []Occurrence {
	dates := Expand(series, windowStart, windowEnd)
	if len(dates) == 0 {
		return nil
	}
	occs := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		occs = append(occs, Occurrence{SeriesID: series.ID, Date: d})
	}
	return occs
}
