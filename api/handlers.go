/*
handlers.go - HTTP API handlers for the studio engine

PURPOSE:
  Exposes the credit ledger and schedule engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates every
  mutation to the store's action dispatch.

ENDPOINTS:
  Students:
    GET    /api/students                      List with live balances
    POST   /api/students                      Create student
    GET    /api/students/{id}                 Get one student
    PUT    /api/students/{id}                 Update profile / manual counter edit
    DELETE /api/students/{id}                 Delete student
    GET    /api/students/{id}/balance         Full balance report
    GET    /api/students/{id}/payments        Payment history
    POST   /api/students/{id}/payments        Record payment
    DELETE /api/students/{id}/payments/{pid}  Undo payment (snapshot restore)
    POST   /api/students/{id}/enrollments     Enroll in a series
    DELETE /api/students/{id}/enrollments/{seriesId} Unenroll

  Coaches:
    GET/POST /api/coaches, PUT/DELETE-less: coaches are never deleted,
    only edited (visits denormalize their name, deletion would orphan it).

  Series and schedule:
    GET    /api/series                 List series definitions
    POST   /api/series                 Create series
    PUT    /api/series/{id}            Update definition (enrollment preserved)
    DELETE /api/series/{id}            Delete series and its enrollments
    GET    /api/schedule?from=&to=     Expanded occurrences for a window
    POST   /api/schedule/cancellations Cancel/restore one occurrence

  Visits:
    GET    /api/visits?date=           Attendance sheet for a date
    POST   /api/visits/toggle          Toggle one attendance mark
    POST   /api/visits/corrections     Backdated visit for a missed occurrence

  Admin:
    GET/PUT /api/config                Membership config
    GET     /api/backup                CSV export
    POST    /api/backup                Import (CSV or legacy base64)
    POST    /api/seed                  Replace state with generated demo data
    GET     /api/recovery              List snapshot revisions
    POST    /api/recovery/{revision}   Restore a snapshot revision

  Sync:
    GET/PUT /api/sync/document         Whole-document pull/push for peers

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (bad JSON, bad dates)
  - 404: Entity not found
  - 409: Business-rule rejection (threshold, inactive, malformed series)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - core/actions.go: The mutations these handlers dispatch
*/
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/bigtop/studio-engine/core"
	"github.com/bigtop/studio-engine/export"
	"github.com/bigtop/studio-engine/seed"
	"github.com/bigtop/studio-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *core.Store

	// Revisions serves the recovery endpoints. Optional; nil disables them.
	Revisions *sqlite.Store

	// undoSnapshots retains the pre-payment student snapshot per payment so
	// an undo restores exact prior state instead of recomputing it. Held in
	// memory only: undo is a same-session correction, not an audit feature.
	mu            sync.Mutex
	undoSnapshots map[core.PaymentID]*core.Student
}

// NewHandler creates a new handler around the given store.
func NewHandler(store *core.Store, revisions *sqlite.Store) *Handler {
	return &Handler{
		Store:         store,
		Revisions:     revisions,
		undoSnapshots: make(map[core.PaymentID]*core.Student),
	}
}

func (h *Handler) today() core.Date {
	if h.Store.Now != nil {
		return h.Store.Now()
	}
	return core.Today()
}

// dispatch runs an action and translates domain errors to HTTP status.
// Returns false if a response was already written.
func (h *Handler) dispatch(w http.ResponseWriter, a core.Action) (core.State, bool) {
	st, err := h.Store.Dispatch(a)
	if err != nil {
		switch {
		case core.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Not found", err)
		case core.IsClientError(err):
			writeError(w, http.StatusConflict, "Rejected", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to apply change", err)
		}
		return core.State{}, false
	}
	return st, true
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students with their live balances.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	today := h.today()

	dtos := make([]StudentDTO, len(st.Students))
	for i := range st.Students {
		s := &st.Students[i]
		dtos[i] = toStudentDTO(s, core.RemainingCredits(s, &st, today))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Name < dtos[j].Name })

	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	student := st.StudentByID(core.StudentID(chi.URLParam(r, "id")))
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(student, core.RemainingCredits(student, &st, h.today())))
}

// CreateStudent creates a student. New students start active with zero
// credits and no enrollments.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	student := core.Student{Name: req.Name, IsActive: true}
	st, ok := h.dispatch(w, core.AddStudent{Student: student})
	if !ok {
		return
	}

	// The store assigned the ID; the new student is the last appended.
	created := &st.Students[len(st.Students)-1]
	writeJSON(w, http.StatusCreated, toStudentDTO(created, core.RemainingCredits(created, &st, h.today())))
}

// UpdateStudent applies a partial edit: only the fields present in the
// body change. Counter edits require a note and land in the audit trail.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := core.StudentID(chi.URLParam(r, "id"))
	var req UpdateStudentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LessonsCount != nil && req.Note == "" {
		writeError(w, http.StatusBadRequest, "Manual counter edits require a note", nil)
		return
	}

	st, ok := h.dispatch(w, core.UpdateStudentProfile{
		ID:           id,
		Name:         req.Name,
		IsActive:     req.IsActive,
		LessonsCount: req.LessonsCount,
		Note:         req.Note,
	})
	if !ok {
		return
	}
	student := st.StudentByID(id)
	writeJSON(w, http.StatusOK, toStudentDTO(student, core.RemainingCredits(student, &st, h.today())))
}

// DeleteStudent removes a student.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.dispatch(w, core.DeleteStudent{ID: core.StudentID(chi.URLParam(r, "id"))}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the full balance report: remaining count plus the
// scheduled, visited, and missed lists behind it. An optional asOf query
// parameter moves the window end; it defaults to today.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	student := st.StudentByID(core.StudentID(chi.URLParam(r, "id")))
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	asOf := h.today()
	if q := r.URL.Query().Get("asOf"); q != "" {
		parsed, err := core.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid asOf date", err)
			return
		}
		asOf = parsed
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(&st, core.RemainingCredits(student, &st, asOf)))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns a student's payment history, newest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	student := st.StudentByID(core.StudentID(chi.URLParam(r, "id")))
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	h.mu.Lock()
	dtos := make([]PaymentDTO, len(student.Payments))
	for i, p := range student.Payments {
		_, canUndo := h.undoSnapshots[p.ID]
		dtos[i] = PaymentDTO{
			ID:      string(p.ID),
			Date:    p.Date.String(),
			Lessons: p.Lessons,
			Amount:  p.Amount,
			CanUndo: canUndo,
		}
	}
	h.mu.Unlock()

	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Date > dtos[j].Date })
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment adds a payment: resets the balance anchor to today and
// tops up the lesson counter with the paid credits on top of whatever
// remained. Refused with 409 while remaining credits are at or above the
// configured payment size.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := core.StudentID(chi.URLParam(r, "id"))
	var req RecordPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Credits < 0 {
		writeError(w, http.StatusBadRequest, "Credits must not be negative", nil)
		return
	}

	// The dispatch captures the pre-payment snapshot on the action, under
	// the store lock, so the payment can be undone by restoration rather
	// than arithmetic and no concurrent edit can slip in between.
	paymentID := core.PaymentID(h.Store.NewID())
	act := &core.RecordPayment{
		StudentID: id,
		PaymentID: paymentID,
		Credits:   req.Credits,
		Amount:    req.Amount,
	}
	st, ok := h.dispatch(w, act)
	if !ok {
		return
	}

	h.mu.Lock()
	h.undoSnapshots[paymentID] = act.Snapshot
	h.mu.Unlock()

	student := st.StudentByID(id)
	writeJSON(w, http.StatusCreated, map[string]any{
		"paymentId": string(paymentID),
		"student":   toStudentDTO(student, core.RemainingCredits(student, &st, h.today())),
	})
}

// UndoPayment restores the student's payment fields from the snapshot
// captured when the payment was recorded. Payments recorded before this
// process started have no snapshot and cannot be undone.
func (h *Handler) UndoPayment(w http.ResponseWriter, r *http.Request) {
	studentID := core.StudentID(chi.URLParam(r, "id"))
	paymentID := core.PaymentID(chi.URLParam(r, "paymentId"))

	h.mu.Lock()
	snapshot := h.undoSnapshots[paymentID]
	h.mu.Unlock()

	st, ok := h.dispatch(w, core.UndoPayment{
		StudentID: studentID,
		PaymentID: paymentID,
		Snapshot:  snapshot,
	})
	if !ok {
		return
	}

	h.mu.Lock()
	delete(h.undoSnapshots, paymentID)
	h.mu.Unlock()

	student := st.StudentByID(studentID)
	writeJSON(w, http.StatusOK, toStudentDTO(student, core.RemainingCredits(student, &st, h.today())))
}

// =============================================================================
// ENROLLMENT HANDLERS
// =============================================================================

// Enroll adds a student to a series (both directions of the link).
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeriesID string `json:"seriesId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := h.dispatch(w, core.Enroll{
		StudentID: core.StudentID(chi.URLParam(r, "id")),
		SeriesID:  core.SeriesID(req.SeriesID),
	}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unenroll removes a student from a series. Past visits stay.
func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.dispatch(w, core.Unenroll{
		StudentID: core.StudentID(chi.URLParam(r, "id")),
		SeriesID:  core.SeriesID(chi.URLParam(r, "seriesId")),
	}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COACH HANDLERS
// =============================================================================

// ListCoaches returns all coaches.
func (h *Handler) ListCoaches(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	sort.Slice(st.Coaches, func(i, j int) bool { return st.Coaches[i].Name < st.Coaches[j].Name })
	writeJSON(w, http.StatusOK, st.Coaches)
}

// CreateCoach creates a coach.
func (h *Handler) CreateCoach(w http.ResponseWriter, r *http.Request) {
	var req CoachRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	st, ok := h.dispatch(w, core.AddCoach{Coach: core.Coach{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, st.Coaches[len(st.Coaches)-1])
}

// UpdateCoach replaces a coach's contact fields.
func (h *Handler) UpdateCoach(w http.ResponseWriter, r *http.Request) {
	id := core.CoachID(chi.URLParam(r, "id"))
	var req CoachRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, ok := h.dispatch(w, core.UpdateCoach{Coach: core.Coach{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.CoachByID(id))
}

// =============================================================================
// SERIES HANDLERS
// =============================================================================

// ListSeries returns all series definitions.
func (h *Handler) ListSeries(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	sort.Slice(st.Series, func(i, j int) bool { return st.Series[i].Name < st.Series[j].Name })
	writeJSON(w, http.StatusOK, st.Series)
}

// CreateSeries creates a weekly series. Both window dates are required.
func (h *Handler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	series, ok := h.seriesFromRequest(w, r, "")
	if !ok {
		return
	}
	st, ok := h.dispatch(w, core.AddSeries{Series: series})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, st.Series[len(st.Series)-1])
}

// UpdateSeries replaces the definition; enrollment is preserved.
func (h *Handler) UpdateSeries(w http.ResponseWriter, r *http.Request) {
	id := core.SeriesID(chi.URLParam(r, "id"))
	series, ok := h.seriesFromRequest(w, r, id)
	if !ok {
		return
	}
	st, ok := h.dispatch(w, core.UpdateSeries{Series: series})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.SeriesByID(id))
}

// DeleteSeries removes the series and every enrollment pointing at it.
func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.dispatch(w, core.DeleteSeries{ID: core.SeriesID(chi.URLParam(r, "id"))}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) seriesFromRequest(w http.ResponseWriter, r *http.Request, id core.SeriesID) (core.ClassSeries, bool) {
	var req SeriesRequest
	if !decodeBody(w, r, &req) {
		return core.ClassSeries{}, false
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate", err)
		return core.ClassSeries{}, false
	}
	end, err := core.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endDate", err)
		return core.ClassSeries{}, false
	}
	if _, ok := core.ParseWeekday(req.DayOfWeek); !ok {
		writeError(w, http.StatusBadRequest, "Invalid dayOfWeek", fmt.Errorf("unknown weekday %q", req.DayOfWeek))
		return core.ClassSeries{}, false
	}
	return core.ClassSeries{
		ID:        id,
		Name:      req.Name,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		CoachID:   core.CoachID(req.CoachID),
		StartDate: start,
		EndDate:   end,
	}, true
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetSchedule expands every series over the requested window and returns
// the occurrences, cancelled ones flagged.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	from, err := core.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := core.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	st := h.Store.State()
	dtos := []OccurrenceDTO{}
	for i := range st.Series {
		for _, occ := range core.ExpandOccurrences(&st.Series[i], from, to) {
			dtos = append(dtos, toOccurrenceDTO(&st, occ))
		}
	}
	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].Date != dtos[j].Date {
			return dtos[i].Date < dtos[j].Date
		}
		return dtos[i].SeriesID < dtos[j].SeriesID
	})
	writeJSON(w, http.StatusOK, dtos)
}

// CancelOccurrence cancels or restores one date of one series. The series
// definition itself is never touched.
func (h *Handler) CancelOccurrence(w http.ResponseWriter, r *http.Request) {
	var req CancelOccurrenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if _, ok := h.dispatch(w, core.SetOccurrenceCancelled{
		Occurrence: core.Occurrence{SeriesID: core.SeriesID(req.SeriesID), Date: date},
		Cancelled:  req.Cancelled,
	}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VISIT HANDLERS
// =============================================================================

// ListVisits returns the attendance sheet for one date.
func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	st := h.Store.State()
	dtos := []VisitDTO{}
	for _, v := range st.Visits {
		if v.Date.Equal(date) {
			dtos = append(dtos, toVisitDTO(v))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ToggleVisit marks attendance, or unmarks it if already marked.
func (h *Handler) ToggleVisit(w http.ResponseWriter, r *http.Request) {
	var req ToggleVisitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	st, ok := h.dispatch(w, core.ToggleVisit{
		StudentID: core.StudentID(req.StudentID),
		SeriesID:  core.SeriesID(req.SeriesID),
		Date:      date,
	})
	if !ok {
		return
	}
	visit := st.VisitAt(date, core.SeriesID(req.SeriesID), core.StudentID(req.StudentID))
	writeJSON(w, http.StatusOK, map[string]any{"present": visit != nil})
}

// CorrectMissed records a backdated visit for a missed occurrence,
// removing it from the missed list and consuming one credit.
func (h *Handler) CorrectMissed(w http.ResponseWriter, r *http.Request) {
	var req ToggleVisitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if _, ok := h.dispatch(w, core.RemoveMissedLesson{
		StudentID:  core.StudentID(req.StudentID),
		Occurrence: core.Occurrence{SeriesID: core.SeriesID(req.SeriesID), Date: date},
	}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetConfig returns the membership config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	st := h.Store.State()
	writeJSON(w, http.StatusOK, st.Config)
}

// UpdateConfig replaces the membership config.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg core.MembershipConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	if cfg.LessonsPerPayment <= 0 {
		writeError(w, http.StatusBadRequest, "lessonsPerPayment must be positive", nil)
		return
	}
	st, ok := h.dispatch(w, core.UpdateConfig{Config: cfg})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Config)
}

// ExportBackup streams the full state as a CSV document.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := export.Backup(h.Store.State())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Export failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="studio-backup.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// ImportBackup replaces the whole state from an uploaded backup. Accepts
// the CSV format and the legacy base64 format.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	st, err := export.Restore(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unrecognized backup format", err)
		return
	}
	if _, ok := h.dispatch(w, core.ReplaceState{State: st}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"students": len(st.Students),
		"series":   len(st.Series),
		"visits":   len(st.Visits),
	})
}

// LoadSeed replaces the state with generated demo data.
func (h *Handler) LoadSeed(w http.ResponseWriter, r *http.Request) {
	var opts seed.Options
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &opts) {
			return
		}
	}
	opts.Today = h.today()
	st := seed.Generate(opts)
	if _, ok := h.dispatch(w, core.ReplaceState{State: st}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"students": len(st.Students),
		"series":   len(st.Series),
	})
}

// =============================================================================
// RECOVERY HANDLERS
// =============================================================================

// ListRevisions returns the retained snapshot revisions, newest first.
func (h *Handler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	if h.Revisions == nil {
		writeError(w, http.StatusNotFound, "Recovery is not enabled", nil)
		return
	}
	infos, err := h.Revisions.Revisions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list revisions", err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// RestoreRevision replaces the live state with a retained snapshot.
func (h *Handler) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	if h.Revisions == nil {
		writeError(w, http.StatusNotFound, "Recovery is not enabled", nil)
		return
	}
	revision, err := strconv.ParseInt(chi.URLParam(r, "revision"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid revision", err)
		return
	}
	doc, err := h.Revisions.LoadRevision(r.Context(), revision)
	if err != nil {
		writeError(w, http.StatusNotFound, "Revision not found", err)
		return
	}
	st, err := core.DecodeState(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored snapshot is unreadable", err)
		return
	}
	if _, ok := h.dispatch(w, core.ReplaceState{State: st}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": revision})
}

// =============================================================================
// SYNC HANDLERS
// =============================================================================

// GetDocument serves the full state document to a syncing peer.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := core.EncodeState(h.Store.State())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Encode failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// PutDocument accepts a full state document from a syncing peer. Last
// writer wins: the pushed document replaces local state wholesale. It is
// applied through the remote origin so it is not echoed back out.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	st, err := core.DecodeState(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable document", err)
		return
	}
	if _, err := h.Store.DispatchRemote(core.ReplaceState{State: st}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
