/*
actions.go - Typed mutation actions

PURPOSE:
  Every mutation of the State is expressed as an Action applied through the
  Store's single dispatch entrypoint: old state + action -> new state.
  Screens, handlers, and sync all go through here; there are no ad hoc
  field writes, which is what keeps the ledger's "always re-derive, never
  cache-and-invalidate" property honest.

BUSINESS RULES ENFORCED HERE:
  - Payments are refused for inactive students and while the remaining
    balance is at or above the standard batch size (no credit stacking).
  - Payment undo restores the retained pre-payment snapshot; the anchor
    reset is not invertible by recomputation.
  - Enrollment always updates Student.ClassSeries and Series.Participants
    together, in the same action.

A rejected action leaves the state untouched; there is no partial mutation.

SEE ALSO:
  - store.go:  Dispatch, cloning, change notification
  - ledger.go: RemainingCredits used by the payment pre-check
*/
package core

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ACTION
// =============================================================================

// Action is one atomic state transition. Implementations mutate the cloned
// state they are handed; dispatch discards the clone on error.
type Action interface {
	apply(st *State, e Env) error
}

// Env carries the ambient inputs actions need so they stay deterministic
// and testable: the id generator and "today". The Store fills it at
// dispatch time; tests pin both.
type Env struct {
	NewID func() string
	Today Date
}

// =============================================================================
// STUDENT ACTIONS
// =============================================================================

// AddStudent creates a student. An empty ID is filled from the generator.
type AddStudent struct {
	Student Student
}

func (a AddStudent) apply(st *State, e Env) error {
	s := a.Student
	if s.ID == "" {
		s.ID = StudentID(e.NewID())
	}
	if s.ClassSeries == nil {
		s.ClassSeries = []SeriesID{}
	}
	st.Students = append(st.Students, s)
	return nil
}

// UpdateStudentProfile edits the directly-editable student fields. Nil
// fields are left untouched, so a partial update never blanks the name or
// flips the active flag. A non-nil LessonsCount is the manual balance-edit
// affordance; the edit is recorded in the student's audit trail.
// Enrollment changes go through Enroll/Unenroll, payments through
// RecordPayment.
type UpdateStudentProfile struct {
	ID           StudentID
	Name         *string
	IsActive     *bool
	LessonsCount *int
	Note         string
}

func (a UpdateStudentProfile) apply(st *State, e Env) error {
	student := st.StudentByID(a.ID)
	if student == nil {
		return ErrStudentNotFound
	}
	if a.Name != nil {
		student.Name = *a.Name
	}
	if a.IsActive != nil {
		student.IsActive = *a.IsActive
	}
	if a.LessonsCount != nil && *a.LessonsCount != student.LessonsCount {
		student.LessonsCount = *a.LessonsCount
		student.EditHistory = append(student.EditHistory, EditNote{
			At:    e.Today.Time(),
			Field: "lessonsCount",
			Note:  a.Note,
		})
	}
	return nil
}

// DeleteStudent removes the student and their enrollment entries. Visit
// history is kept: attendance is immutable fact.
type DeleteStudent struct {
	ID StudentID
}

func (a DeleteStudent) apply(st *State, e Env) error {
	idx := -1
	for i := range st.Students {
		if st.Students[i].ID == a.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrStudentNotFound
	}
	st.Students = append(st.Students[:idx], st.Students[idx+1:]...)
	for i := range st.Series {
		st.Series[i].Participants = removeStudentID(st.Series[i].Participants, a.ID)
	}
	return nil
}

// =============================================================================
// COACH ACTIONS
// =============================================================================

type AddCoach struct {
	Coach Coach
}

func (a AddCoach) apply(st *State, e Env) error {
	c := a.Coach
	if c.ID == "" {
		c.ID = CoachID(e.NewID())
	}
	st.Coaches = append(st.Coaches, c)
	return nil
}

type UpdateCoach struct {
	Coach Coach
}

func (a UpdateCoach) apply(st *State, e Env) error {
	existing := st.CoachByID(a.Coach.ID)
	if existing == nil {
		return ErrCoachNotFound
	}
	*existing = a.Coach
	return nil
}

// =============================================================================
// SERIES ACTIONS
// =============================================================================

// AddSeries creates a recurring class series. Series without a valid date
// window are rejected up front rather than silently contributing nothing
// forever.
type AddSeries struct {
	Series ClassSeries
}

func (a AddSeries) apply(st *State, e Env) error {
	s := a.Series
	if s.ID == "" {
		s.ID = SeriesID(e.NewID())
	}
	if !s.Valid() {
		return ErrMalformedSeries
	}
	if s.Participants == nil {
		s.Participants = []StudentID{}
	}
	st.Series = append(st.Series, s)
	return nil
}

// UpdateSeries edits the series definition. The participant list is
// authoritative enrollment state and is preserved; it only changes through
// Enroll/Unenroll.
type UpdateSeries struct {
	Series ClassSeries
}

func (a UpdateSeries) apply(st *State, e Env) error {
	existing := st.SeriesByID(a.Series.ID)
	if existing == nil {
		return ErrSeriesNotFound
	}
	if !a.Series.Valid() {
		return ErrMalformedSeries
	}
	participants := existing.Participants
	*existing = a.Series
	existing.Participants = participants
	return nil
}

// DeleteSeries removes the series and every student's enrollment in it.
// Overlay entries and visits referencing it are kept; they are historical
// record and dangling references contribute nothing to computation.
type DeleteSeries struct {
	ID SeriesID
}

func (a DeleteSeries) apply(st *State, e Env) error {
	idx := -1
	for i := range st.Series {
		if st.Series[i].ID == a.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSeriesNotFound
	}
	st.Series = append(st.Series[:idx], st.Series[idx+1:]...)
	for i := range st.Students {
		st.Students[i].ClassSeries = removeSeriesID(st.Students[i].ClassSeries, a.ID)
	}
	return nil
}

// =============================================================================
// ENROLLMENT - both sides always move together
// =============================================================================

type Enroll struct {
	StudentID StudentID
	SeriesID  SeriesID
}

func (a Enroll) apply(st *State, e Env) error {
	student := st.StudentByID(a.StudentID)
	if student == nil {
		return ErrStudentNotFound
	}
	if !student.IsActive {
		return ErrInactiveStudent
	}
	series := st.SeriesByID(a.SeriesID)
	if series == nil {
		return ErrSeriesNotFound
	}
	if !student.EnrolledIn(a.SeriesID) {
		student.ClassSeries = append(student.ClassSeries, a.SeriesID)
	}
	if !series.HasParticipant(a.StudentID) {
		series.Participants = append(series.Participants, a.StudentID)
	}
	return nil
}

type Unenroll struct {
	StudentID StudentID
	SeriesID  SeriesID
}

func (a Unenroll) apply(st *State, e Env) error {
	student := st.StudentByID(a.StudentID)
	if student == nil {
		return ErrStudentNotFound
	}
	series := st.SeriesByID(a.SeriesID)
	if series == nil {
		return ErrSeriesNotFound
	}
	student.ClassSeries = removeSeriesID(student.ClassSeries, a.SeriesID)
	series.Participants = removeStudentID(series.Participants, a.StudentID)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment closes out the current credit period and opens a fresh one:
// lessonsCount becomes remaining-before-payment + credits granted, and the
// anchor resets to today, so the visited-since-anchor count restarts at
// zero. Credits of 0 means "the standard batch" from config.
//
// Callers that intend to offer undo must retain the student's pre-dispatch
// snapshot; see UndoPayment.
type RecordPayment struct {
	StudentID StudentID
	PaymentID PaymentID
	Credits   int
	Amount    decimal.Decimal

	// Snapshot is set by the dispatch to the student as of immediately
	// before the mutation, captured under the store lock so no concurrent
	// edit can slip between capture and commit. Callers retain it for
	// UndoPayment. Dispatch a pointer to read it back.
	Snapshot *Student
}

func (a *RecordPayment) apply(st *State, e Env) error {
	student := st.StudentByID(a.StudentID)
	if student == nil {
		return ErrStudentNotFound
	}
	if !student.IsActive {
		return ErrInactiveStudent
	}

	credits := a.Credits
	if credits == 0 {
		credits = st.Config.LessonsPerPayment
	}

	remainingBefore := RemainingCredits(student, st, e.Today).Remaining
	if remainingBefore >= st.Config.LessonsPerPayment {
		return &ThresholdError{
			StudentID: student.ID,
			Remaining: remainingBefore,
			Threshold: st.Config.LessonsPerPayment,
		}
	}

	snap := student.Clone()
	a.Snapshot = &snap

	id := a.PaymentID
	if id == "" {
		id = PaymentID(e.NewID())
	}
	student.LastPaymentDate = e.Today
	student.LessonsCount = remainingBefore + credits
	student.Payments = append(student.Payments, Payment{
		ID:      id,
		Date:    e.Today,
		Lessons: credits,
		Amount:  a.Amount,
	})
	return nil
}

// UndoPayment removes a payment and restores the student's anchor, counter,
// and payment list from the retained pre-payment snapshot. Recomputing from
// the remaining payments would pick a different anchor than existed before
// the payment, so snapshot-and-restore is the contract - dispatching
// without one is a caller error.
type UndoPayment struct {
	StudentID StudentID
	PaymentID PaymentID
	// Snapshot is the student as captured immediately before RecordPayment.
	Snapshot *Student
}

func (a UndoPayment) apply(st *State, e Env) error {
	student := st.StudentByID(a.StudentID)
	if student == nil {
		return ErrStudentNotFound
	}
	found := false
	for _, p := range student.Payments {
		if p.ID == a.PaymentID {
			found = true
			break
		}
	}
	if !found {
		return ErrPaymentNotFound
	}
	if a.Snapshot == nil || a.Snapshot.ID != a.StudentID {
		return ErrUndoSnapshotRequired
	}

	student.LastPaymentDate = a.Snapshot.LastPaymentDate
	student.LessonsCount = a.Snapshot.LessonsCount
	student.Payments = clonePayments(a.Snapshot.Payments)
	return nil
}

// =============================================================================
// VISITS
// =============================================================================

// ToggleVisit flips attendance for (date, series, student): deletes the
// visit if present, otherwise inserts one with coach and class name
// denormalized from the series definition as it stands right now.
type ToggleVisit struct {
	StudentID StudentID
	SeriesID  SeriesID
	Date      Date
}

func (a ToggleVisit) apply(st *State, e Env) error {
	if existing := st.VisitAt(a.Date, a.SeriesID, a.StudentID); existing != nil {
		id := existing.ID
		for i := range st.Visits {
			if st.Visits[i].ID == id {
				st.Visits = append(st.Visits[:i], st.Visits[i+1:]...)
				break
			}
		}
		return nil
	}
	return insertVisit(st, e, a.StudentID, a.SeriesID, a.Date)
}

// RemoveMissedLesson converts a missed occurrence into a visited one by
// inserting a backdated visit for its date. This is attendance correction,
// not credit adjustment - the balance changes only because the visited set
// grows. It is the only way the missed list shrinks.
type RemoveMissedLesson struct {
	StudentID  StudentID
	Occurrence Occurrence
}

func (a RemoveMissedLesson) apply(st *State, e Env) error {
	if st.VisitAt(a.Occurrence.Date, a.Occurrence.SeriesID, a.StudentID) != nil {
		return nil // already corrected
	}
	return insertVisit(st, e, a.StudentID, a.Occurrence.SeriesID, a.Occurrence.Date)
}

func insertVisit(st *State, e Env, studentID StudentID, seriesID SeriesID, date Date) error {
	if st.StudentByID(studentID) == nil {
		return ErrStudentNotFound
	}
	visit := Visit{
		ID:        VisitID(e.NewID()),
		Date:      date,
		LessonID:  seriesID,
		StudentID: studentID,
	}
	if series := st.SeriesByID(seriesID); series != nil {
		visit.CoachID = series.CoachID
		visit.ClassName = series.Name
	}
	st.Visits = append(st.Visits, visit)
	return nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// SetOccurrenceCancelled marks one calendar instance cancelled or restores
// it. The series definition is untouched.
type SetOccurrenceCancelled struct {
	Occurrence Occurrence
	Cancelled  bool
}

func (a SetOccurrenceCancelled) apply(st *State, e Env) error {
	st.Overlay = st.Overlay.SetCancelled(a.Occurrence.Key(), a.Cancelled)
	return nil
}

// =============================================================================
// CONFIG AND WHOLE-DOCUMENT REPLACEMENT
// =============================================================================

type UpdateConfig struct {
	Config MembershipConfig
}

func (a UpdateConfig) apply(st *State, e Env) error {
	st.Config = a.Config
	return nil
}

// ReplaceState swaps in an externally-pushed full snapshot (remote sync,
// import). The snapshot must already be at the current schema version;
// ingestion runs migration first (migrate.go).
type ReplaceState struct {
	State State
}

func (a ReplaceState) apply(st *State, e Env) error {
	*st = a.State.Clone()
	return nil
}

// =============================================================================
// SLICE HELPERS
// =============================================================================

func removeSeriesID(ids []SeriesID, id SeriesID) []SeriesID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func removeStudentID(ids []StudentID, id StudentID) []StudentID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
