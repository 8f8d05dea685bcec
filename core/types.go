/*
Package core implements the lesson-credit accounting and recurring-occurrence
engine for a recreational-class studio.

PURPOSE:
  This package is the single source of truth for the business logic the rest
  of the application renders and persists: expanding weekly class series into
  dated occurrences, layering per-occurrence cancellation state on top of
  them, and reconciling purchased lesson credits against actual attendance
  to produce a remaining-credit balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student, Coach, ClassSeries, Visit, Payment: the stored entities
  - Occurrence: a derived (series, date) calendar instance - never stored
  - State: the full entity snapshot the whole process operates on
  - Typed IDs: StudentID, CoachID, SeriesID prevent cross-wiring

DESIGN PRINCIPLES:
  1. Derive, never cache: balances and occurrence lists are pure functions
     of the current State, recomputed on every read.
  2. One snapshot: all mutation is old State + Action -> new State through
     the Store's single dispatch entrypoint (see store.go, actions.go).
  3. Attendance is a record, not a flag: a Visit row existing for
     (date, series, student) IS the attendance; toggling means
     insert/delete, never a boolean flip.
  4. Total functions: malformed entities contribute nothing instead of
     failing the whole computation.

SEE ALSO:
  - schedule.go: Occurrence expansion
  - overlay.go:  Per-occurrence cancellation
  - ledger.go:   Remaining-credit calculation
  - actions.go:  Payment/visit/enrollment mutators
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type CoachID string
type SeriesID string
type VisitID string
type PaymentID string

// =============================================================================
// STUDENT
// =============================================================================

// Student is a member of the studio.
//
// LessonsCount is the cumulative credit counter, NOT a live remaining
// balance: each payment closes out the previous period by setting
// LessonsCount = remaining-before-payment + credits-granted and resetting
// LastPaymentDate. The displayed remaining balance is always derived by the
// ledger (ledger.go), never stored.
type Student struct {
	ID       StudentID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`

	// ClassSeries holds the IDs of every series the student is enrolled in.
	// INVARIANT: bidirectionally consistent with ClassSeries.Participants;
	// both sides mutate in the same action (see actions.go).
	ClassSeries []SeriesID `json:"classSeries"`

	// LastPaymentDate anchors the balance window. Zero means the student has
	// never paid (the ledger then falls back to the newest payment record).
	LastPaymentDate Date `json:"lastPaymentDate"`

	// LessonsCount may be negative through manual edits or historical data;
	// that is a valid, flagged state.
	LessonsCount int `json:"lessonsCount"`

	Payments    []Payment  `json:"payments"`
	EditHistory []EditNote `json:"editHistory"`
}

// EditNote is one entry of a student's append-only audit trail.
type EditNote struct {
	At    time.Time `json:"at"`
	Field string    `json:"field"`
	Note  string    `json:"note"`
}

// EnrolledIn reports whether the student's enrollment set contains id.
func (s *Student) EnrolledIn(id SeriesID) bool {
	for _, sid := range s.ClassSeries {
		if sid == id {
			return true
		}
	}
	return false
}

// =============================================================================
// COACH
// =============================================================================

type Coach struct {
	ID    CoachID `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone string  `json:"phone"`
}

// =============================================================================
// CLASS SERIES - weekly recurring class definition
// =============================================================================

// ClassSeries defines a weekly recurring class. Individual calendar
// instances (occurrences) are computed from it, never stored; per-date
// cancellation lives in the Overlay, deliberately outside this struct so
// cancelling one Wednesday never touches the recurring definition.
type ClassSeries struct {
	ID        SeriesID `json:"id"`
	Name      string   `json:"name"`
	DayOfWeek string   `json:"dayOfWeek"` // symbolic: "Monday".."Sunday"
	StartTime string   `json:"startTime"` // "HH:MM", display only
	CoachID   CoachID  `json:"coachId"`

	// StartDate/EndDate bound (inclusive) which calendar instances exist.
	// A series missing either is malformed and contributes no occurrences.
	StartDate Date `json:"startDate"`
	EndDate   Date `json:"endDate"`

	// Participants is the authoritative enrollment list.
	// INVARIANT: bidirectionally consistent with Student.ClassSeries.
	Participants []StudentID `json:"participants"`
}

// Valid reports whether the series carries the dates expansion requires.
func (cs *ClassSeries) Valid() bool {
	return !cs.StartDate.IsZero() && !cs.EndDate.IsZero() &&
		cs.StartDate.BeforeOrEqual(cs.EndDate)
}

// HasParticipant reports whether the enrollment list contains id.
func (cs *ClassSeries) HasParticipant(id StudentID) bool {
	for _, sid := range cs.Participants {
		if sid == id {
			return true
		}
	}
	return false
}

// =============================================================================
// OCCURRENCE - derived calendar instance of a series
// =============================================================================

// Occurrence identifies one calendar instance of a series. Occurrences are
// computed by the expander; only their cancellation overrides are stored.
type Occurrence struct {
	SeriesID SeriesID `json:"seriesId"`
	Date     Date     `json:"date"`
}

// Key returns the stable composite identifier "seriesID_YYYY-MM-DD".
// The same calendar instance always maps to the same key regardless of
// when it is computed, which is what lets the sparse cancellation overlay
// outlive any particular expansion.
func (o Occurrence) Key() OccurrenceKey {
	return OccurrenceKey(string(o.SeriesID) + "_" + o.Date.String())
}

type OccurrenceKey string

// =============================================================================
// VISIT - confirmed attendance
// =============================================================================

// Visit records that a student attended one occurrence. The record's
// presence is the sole source of truth for attendance. CoachID and
// ClassName are denormalized from the series definition at toggle time so
// history survives later series edits.
type Visit struct {
	ID        VisitID   `json:"id"`
	Date      Date      `json:"date"`
	LessonID  SeriesID  `json:"lessonId"`
	StudentID StudentID `json:"studentId"`
	CoachID   CoachID   `json:"coachId"`
	ClassName string    `json:"className"`
}

// =============================================================================
// PAYMENT - lesson-credit purchase record
// =============================================================================

// Payment is append-only once created. Removal happens only through the
// explicit undo operation, which restores the student's pre-payment anchor
// and counter from a retained snapshot (see actions.go).
type Payment struct {
	ID      PaymentID       `json:"id"`
	Date    Date            `json:"date"`
	Lessons int             `json:"lessons"`
	Amount  decimal.Decimal `json:"amount"`
}

// =============================================================================
// MEMBERSHIP CONFIG
// =============================================================================

type MembershipConfig struct {
	// LessonsPerPayment is the standard purchase batch size. It doubles as
	// the stacking threshold: a payment is refused while the remaining
	// balance is at or above it.
	LessonsPerPayment int `json:"lessonsPerPayment"`

	// FreeSkipLessons is stored configuration the balance math does not
	// consume today.
	FreeSkipLessons int `json:"freeSkipLessons"`
}

func DefaultMembershipConfig() MembershipConfig {
	return MembershipConfig{LessonsPerPayment: 8, FreeSkipLessons: 1}
}

// =============================================================================
// STATE - the full entity snapshot
// =============================================================================

// CurrentSchemaVersion is the snapshot shape this package operates on.
// Older documents are upgraded at ingestion (migrate.go) before any
// business logic sees them.
const CurrentSchemaVersion = 2

// State is the complete snapshot of the studio: everything the persistence
// collaborator stores and the remote sync replicates. It is a plain value;
// all behavior lives in the functions of this package.
type State struct {
	SchemaVersion int              `json:"schemaVersion"`
	Students      []Student        `json:"students"`
	Coaches       []Coach          `json:"coaches"`
	Series        []ClassSeries    `json:"lessons"`
	Visits        []Visit          `json:"visits"`
	Overlay       Overlay          `json:"occurrenceOverrides"`
	Config        MembershipConfig `json:"membershipConfig"`
}

// NewState returns an empty current-schema snapshot.
func NewState() State {
	return State{
		SchemaVersion: CurrentSchemaVersion,
		Overlay:       NewOverlay(),
		Config:        DefaultMembershipConfig(),
	}
}

// StudentByID returns the student with the given id, or nil.
func (st *State) StudentByID(id StudentID) *Student {
	for i := range st.Students {
		if st.Students[i].ID == id {
			return &st.Students[i]
		}
	}
	return nil
}

// CoachByID returns the coach with the given id, or nil.
func (st *State) CoachByID(id CoachID) *Coach {
	for i := range st.Coaches {
		if st.Coaches[i].ID == id {
			return &st.Coaches[i]
		}
	}
	return nil
}

// SeriesByID returns the series with the given id, or nil. Dangling series
// references resolve to nil and contribute nothing downstream.
func (st *State) SeriesByID(id SeriesID) *ClassSeries {
	for i := range st.Series {
		if st.Series[i].ID == id {
			return &st.Series[i]
		}
	}
	return nil
}

// VisitAt returns the visit for (date, series, student), or nil.
func (st *State) VisitAt(date Date, seriesID SeriesID, studentID StudentID) *Visit {
	for i := range st.Visits {
		v := &st.Visits[i]
		if v.Date.Equal(date) && v.LessonID == seriesID && v.StudentID == studentID {
			return v
		}
	}
	return nil
}
