/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract. DTOs are pure data
  carriers; validation happens in handlers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/bigtop/studio-engine/core"
)

// =============================================================================
// STUDENTS
// =============================================================================

type StudentDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	IsActive        bool     `json:"isActive"`
	ClassSeries     []string `json:"classSeries"`
	LastPaymentDate string   `json:"lastPaymentDate,omitempty"`
	LessonsCount    int      `json:"lessonsCount"`
	Remaining       int      `json:"remaining"`
	NegativeBalance bool     `json:"negativeBalance"`
}

type CreateStudentRequest struct {
	Name string `json:"name"`
}

// UpdateStudentRequest carries a partial edit: nil fields are left
// untouched, so a client sending only the fields it means to change
// cannot blank the name or deactivate the student by omission.
type UpdateStudentRequest struct {
	Name         *string `json:"name,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
	LessonsCount *int    `json:"lessonsCount,omitempty"`
	Note         string  `json:"note,omitempty"`
}

// =============================================================================
// COACHES
// =============================================================================

type CoachRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// =============================================================================
// SERIES AND OCCURRENCES
// =============================================================================

type SeriesRequest struct {
	Name      string `json:"name"`
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	CoachID   string `json:"coachId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type OccurrenceDTO struct {
	SeriesID   string `json:"seriesId"`
	SeriesName string `json:"seriesName"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	CoachID    string `json:"coachId"`
	Cancelled  bool   `json:"cancelled"`
}

type CancelOccurrenceRequest struct {
	SeriesID  string `json:"seriesId"`
	Date      string `json:"date"`
	Cancelled bool   `json:"cancelled"`
}

// =============================================================================
// BALANCE
// =============================================================================

type BalanceDTO struct {
	StudentID string          `json:"studentId"`
	AsOf      string          `json:"asOf"`
	HasAnchor bool            `json:"hasAnchor"`
	Anchor    string          `json:"anchor,omitempty"`
	Remaining int             `json:"remaining"`
	Negative  bool            `json:"negative"`
	Scheduled []OccurrenceDTO `json:"scheduled"`
	Visited   []VisitDTO      `json:"visited"`
	Missed    []OccurrenceDTO `json:"missed"`
}

// =============================================================================
// VISITS
// =============================================================================

type VisitDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	LessonID  string `json:"lessonId"`
	StudentID string `json:"studentId"`
	CoachID   string `json:"coachId"`
	ClassName string `json:"className"`
}

type ToggleVisitRequest struct {
	StudentID string `json:"studentId"`
	SeriesID  string `json:"seriesId"`
	Date      string `json:"date"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type RecordPaymentRequest struct {
	Credits int             `json:"credits"`
	Amount  decimal.Decimal `json:"amount"`
}

type PaymentDTO struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Lessons  int             `json:"lessons"`
	Amount   decimal.Decimal `json:"amount"`
	CanUndo bool            `json:"canUndo"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStudentDTO(s *core.Student, report core.BalanceReport) StudentDTO {
	series := make([]string, len(s.ClassSeries))
	for i, id := range s.ClassSeries {
		series[i] = string(id)
	}
	return StudentDTO{
		ID:              string(s.ID),
		Name:            s.Name,
		IsActive:        s.IsActive,
		ClassSeries:     series,
		LastPaymentDate: s.LastPaymentDate.String(),
		LessonsCount:    s.LessonsCount,
		Remaining:       report.Remaining,
		NegativeBalance: report.Negative(),
	}
}

func toOccurrenceDTO(st *core.State, occ core.Occurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		SeriesID:  string(occ.SeriesID),
		Date:      occ.Date.String(),
		Cancelled: st.Overlay.IsCancelled(occ.Key()),
	}
	if series := st.SeriesByID(occ.SeriesID); series != nil {
		dto.SeriesName = series.Name
		dto.StartTime = series.StartTime
		dto.CoachID = string(series.CoachID)
	}
	return dto
}

func toVisitDTO(v core.Visit) VisitDTO {
	return VisitDTO{
		ID:        string(v.ID),
		Date:      v.Date.String(),
		LessonID:  string(v.LessonID),
		StudentID: string(v.StudentID),
		CoachID:   string(v.CoachID),
		ClassName: v.ClassName,
	}
}

func toBalanceDTO(st *core.State, report core.BalanceReport) BalanceDTO {
	dto := BalanceDTO{
		StudentID: string(report.StudentID),
		AsOf:      report.AsOf.String(),
		HasAnchor: report.HasAnchor,
		Anchor:    report.Anchor.String(),
		Remaining: report.Remaining,
		Negative:  report.Negative(),
		Scheduled: []OccurrenceDTO{},
		Visited:   []VisitDTO{},
		Missed:    []OccurrenceDTO{},
	}
	for _, occ := range report.Scheduled {
		dto.Scheduled = append(dto.Scheduled, toOccurrenceDTO(st, occ))
	}
	for _, v := range report.Visited {
		dto.Visited = append(dto.Visited, toVisitDTO(v))
	}
	for _, occ := range report.Missed {
		dto.Missed = append(dto.Missed, toOccurrenceDTO(st, occ))
	}
	return dto
}
