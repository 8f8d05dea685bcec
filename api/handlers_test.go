/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Student CRUD and balance responses
- Payment recording, threshold rejection, and undo
- Visit toggling and occurrence cancellation
- Backup round-trip and the peer sync document endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigtop/studio-engine/core"
)

// =============================================================================
// FIXTURE
// =============================================================================

var testToday = core.NewDate(2024, 2, 5) // a Monday

// newTestHandler builds a handler over a deterministic store: Wednesday
// series, one active student with 8 credits anchored at Jan 8.
func newTestHandler() *Handler {
	st := core.NewState()
	st.Coaches = []core.Coach{{ID: "coach-1", Name: "Sarah Johnson"}}
	st.Series = []core.ClassSeries{{
		ID:           "s1",
		Name:         "Aerial Silks",
		DayOfWeek:    "Wednesday",
		StartTime:    "18:00",
		CoachID:      "coach-1",
		StartDate:    core.NewDate(2024, 1, 1),
		EndDate:      core.NewDate(2024, 12, 31),
		Participants: []core.StudentID{"alice"},
	}}
	st.Students = []core.Student{{
		ID:              "alice",
		Name:            "Alice",
		IsActive:        true,
		ClassSeries:     []core.SeriesID{"s1"},
		LastPaymentDate: core.NewDate(2024, 1, 8),
		LessonsCount:    8,
	}}

	store := core.NewStore(st)
	store.Now = func() core.Date { return testToday }
	ids := 0
	store.NewID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return NewHandler(store, nil)
}

func doRequest(h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// =============================================================================
// STUDENT TESTS
// =============================================================================

func TestListStudents_IncludesBalance(t *testing.T) {
	// GIVEN: Alice with 8 credits and no visits since her anchor
	h := newTestHandler()

	// WHEN: Listing students
	rec := doRequest(h, "GET", "/api/students", nil)

	// THEN: Her live remaining balance rides along
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	students := decode[[]StudentDTO](t, rec)
	if len(students) != 1 {
		t.Fatalf("Expected 1 student, got %d", len(students))
	}
	if students[0].Remaining != 8 {
		t.Errorf("Expected remaining 8, got %d", students[0].Remaining)
	}
}

func TestCreateStudent_StartsActiveWithAssignedID(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, "POST", "/api/students", CreateStudentRequest{Name: "Bob"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	dto := decode[StudentDTO](t, rec)
	if dto.ID != "id-1" {
		t.Errorf("Expected assigned ID id-1, got %q", dto.ID)
	}
	if !dto.IsActive {
		t.Error("New students should start active")
	}
}

func TestCreateStudent_RequiresName(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, "POST", "/api/students", CreateStudentRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestUpdateStudent_CounterEditRequiresNote(t *testing.T) {
	// GIVEN: A manual counter edit without an audit note
	h := newTestHandler()
	count := 12

	// WHEN: Updating
	rec := doRequest(h, "PUT", "/api/students/alice", UpdateStudentRequest{
		LessonsCount: &count,
	})

	// THEN: Rejected before reaching the store
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	st := h.Store.State()
	if got := st.StudentByID("alice").LessonsCount; got != 8 {
		t.Errorf("Counter should be untouched, got %d", got)
	}
}

func TestUpdateStudent_PartialBodyLeavesOtherFields(t *testing.T) {
	// GIVEN: A PUT carrying only a new name
	h := newTestHandler()

	// WHEN: Updating with the raw partial body a client would send
	req := httptest.NewRequest("PUT", "/api/students/alice",
		bytes.NewReader([]byte(`{"name":"Alice Cooper"}`)))
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)

	// THEN: Name changes, active flag and counter do not
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	dto := decode[StudentDTO](t, rec)
	if dto.Name != "Alice Cooper" {
		t.Errorf("Expected updated name, got %q", dto.Name)
	}
	if !dto.IsActive {
		t.Error("A name-only edit must not deactivate the student")
	}
	if dto.LessonsCount != 8 {
		t.Errorf("Counter should be untouched, got %d", dto.LessonsCount)
	}
}

func TestGetStudent_NotFound(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, "GET", "/api/students/nobody", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// BALANCE TESTS
// =============================================================================

func TestGetBalance_ListsMissedWithoutDeducting(t *testing.T) {
	// GIVEN: Four Wednesdays elapsed since the anchor, none attended
	h := newTestHandler()

	// WHEN: Fetching the balance report
	rec := doRequest(h, "GET", "/api/students/alice/balance", nil)

	// THEN: All four show as missed but remaining stays 8
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	balance := decode[BalanceDTO](t, rec)
	if balance.Remaining != 8 {
		t.Errorf("Expected remaining 8, got %d", balance.Remaining)
	}
	if len(balance.Missed) != 4 {
		t.Errorf("Expected 4 missed occurrences, got %d", len(balance.Missed))
	}
	if !balance.HasAnchor {
		t.Error("Expected an anchored report")
	}
}

func TestGetBalance_AsOfOverride(t *testing.T) {
	h := newTestHandler()

	// WHEN: Asking for the balance as of the first Wednesday after the anchor
	rec := doRequest(h, "GET", "/api/students/alice/balance?asOf=2024-01-10", nil)

	// THEN: Only one occurrence is in window and its day is not over yet
	balance := decode[BalanceDTO](t, rec)
	if len(balance.Scheduled) != 1 {
		t.Errorf("Expected 1 scheduled occurrence, got %d", len(balance.Scheduled))
	}
	if len(balance.Missed) != 0 {
		t.Errorf("Expected no missed occurrences, got %d", len(balance.Missed))
	}
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestRecordPayment_ThresholdRejected(t *testing.T) {
	// GIVEN: Alice still holds 8 credits, equal to the payment size
	h := newTestHandler()

	// WHEN: Recording another payment
	rec := doRequest(h, "POST", "/api/students/alice/payments", RecordPaymentRequest{Credits: 8})

	// THEN: 409 and no state change
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	st := h.Store.State()
	if student := st.StudentByID("alice"); len(student.Payments) != 0 {
		t.Errorf("Expected no payment recorded, got %d", len(student.Payments))
	}
}

func TestRecordPayment_AndUndo(t *testing.T) {
	// GIVEN: Alice spent down to 3 credits
	h := newTestHandler()
	for _, day := range []int{10, 17, 24, 31} {
		rec := doRequest(h, "POST", "/api/visits/toggle", ToggleVisitRequest{
			StudentID: "alice", SeriesID: "s1",
			Date: core.NewDate(2024, 1, day).String(),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("Toggle failed: %d %s", rec.Code, rec.Body.String())
		}
	}
	rec := doRequest(h, "POST", "/api/visits/toggle", ToggleVisitRequest{
		StudentID: "alice", SeriesID: "s1", Date: "2024-02-05",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Toggle failed: %d", rec.Code)
	}

	// WHEN: Recording an 8-lesson payment
	rec = doRequest(h, "POST", "/api/students/alice/payments", RecordPaymentRequest{Credits: 8})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[map[string]json.RawMessage](t, rec)
	var paymentID string
	json.Unmarshal(result["paymentId"], &paymentID)

	// THEN: Counter is remaining-before plus credits, anchor moved to today
	afterPay := h.Store.State()
	student := afterPay.StudentByID("alice")
	if student.LessonsCount != 11 {
		t.Errorf("Expected counter 11 (3 remaining + 8), got %d", student.LessonsCount)
	}
	if !student.LastPaymentDate.Equal(testToday) {
		t.Errorf("Expected anchor %s, got %s", testToday, student.LastPaymentDate)
	}

	// WHEN: Undoing the payment
	rec = doRequest(h, "DELETE", "/api/students/alice/payments/"+paymentID, nil)

	// THEN: The pre-payment snapshot is back
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	afterUndo := h.Store.State()
	student = afterUndo.StudentByID("alice")
	if student.LessonsCount != 8 {
		t.Errorf("Expected counter restored to 8, got %d", student.LessonsCount)
	}
	if len(student.Payments) != 0 {
		t.Errorf("Expected payment list restored to empty, got %d", len(student.Payments))
	}
}

func TestUndoPayment_UnknownSnapshotRejected(t *testing.T) {
	// GIVEN: A payment that exists in state but was never recorded by
	// this handler, so no snapshot is retained
	h := newTestHandler()
	st := h.Store.State()
	st.Students[0].Payments = []core.Payment{{ID: "p-old", Date: core.NewDate(2024, 1, 8), Lessons: 8}}
	if _, err := h.Store.Dispatch(core.ReplaceState{State: st}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	// WHEN: Undoing it
	rec := doRequest(h, "DELETE", "/api/students/alice/payments/p-old", nil)

	// THEN: Refused as a business-rule conflict
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// SCHEDULE AND VISIT TESTS
// =============================================================================

func TestGetSchedule_CancellationFlagged(t *testing.T) {
	// GIVEN: January 17 cancelled
	h := newTestHandler()
	rec := doRequest(h, "POST", "/api/schedule/cancellations", CancelOccurrenceRequest{
		SeriesID: "s1", Date: "2024-01-17", Cancelled: true,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Cancel failed: %d %s", rec.Code, rec.Body.String())
	}

	// WHEN: Expanding January
	rec = doRequest(h, "GET", "/api/schedule?from=2024-01-01&to=2024-01-31", nil)

	// THEN: All five Wednesdays return, the 17th flagged
	occs := decode[[]OccurrenceDTO](t, rec)
	if len(occs) != 5 {
		t.Fatalf("Expected 5 occurrences, got %d", len(occs))
	}
	cancelled := 0
	for _, o := range occs {
		if o.Cancelled {
			cancelled++
			if o.Date != "2024-01-17" {
				t.Errorf("Wrong occurrence flagged: %s", o.Date)
			}
		}
	}
	if cancelled != 1 {
		t.Errorf("Expected exactly 1 cancelled occurrence, got %d", cancelled)
	}
}

func TestToggleVisit_RoundTrip(t *testing.T) {
	h := newTestHandler()
	req := ToggleVisitRequest{StudentID: "alice", SeriesID: "s1", Date: "2024-01-10"}

	rec := doRequest(h, "POST", "/api/visits/toggle", req)
	if got := decode[map[string]bool](t, rec); !got["present"] {
		t.Error("First toggle should mark present")
	}

	rec = doRequest(h, "POST", "/api/visits/toggle", req)
	if got := decode[map[string]bool](t, rec); got["present"] {
		t.Error("Second toggle should unmark")
	}
	if visits := h.Store.State().Visits; len(visits) != 0 {
		t.Errorf("Expected no visits after round trip, got %d", len(visits))
	}
}

func TestCorrectMissed_ConsumesCredit(t *testing.T) {
	// GIVEN: January 10 was missed
	h := newTestHandler()

	// WHEN: Recording the late correction
	rec := doRequest(h, "POST", "/api/visits/corrections", ToggleVisitRequest{
		StudentID: "alice", SeriesID: "s1", Date: "2024-01-10",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	// THEN: The balance drops and the missed list shrinks
	balance := decode[BalanceDTO](t, doRequest(h, "GET", "/api/students/alice/balance", nil))
	if balance.Remaining != 7 {
		t.Errorf("Expected remaining 7, got %d", balance.Remaining)
	}
	if len(balance.Missed) != 3 {
		t.Errorf("Expected 3 missed, got %d", len(balance.Missed))
	}
}

// =============================================================================
// ADMIN TESTS
// =============================================================================

func TestBackup_RoundTrip(t *testing.T) {
	// GIVEN: The fixture state exported as CSV
	h := newTestHandler()
	rec := doRequest(h, "GET", "/api/backup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Export failed: %d", rec.Code)
	}
	backup := rec.Body.Bytes()

	// WHEN: Importing it into a fresh handler
	h2 := newTestHandler()
	req := httptest.NewRequest("POST", "/api/backup", bytes.NewReader(backup))
	rec2 := httptest.NewRecorder()
	NewRouter(h2).ServeHTTP(rec2, req)

	// THEN: The data survives
	if rec2.Code != http.StatusOK {
		t.Fatalf("Import failed: %d %s", rec2.Code, rec2.Body.String())
	}
	st := h2.Store.State()
	if len(st.Students) != 1 || st.Students[0].ID != "alice" {
		t.Errorf("Expected alice to survive the round trip, got %+v", st.Students)
	}
}

func TestUpdateConfig_RejectsNonPositiveThreshold(t *testing.T) {
	h := newTestHandler()

	rec := doRequest(h, "PUT", "/api/config", core.MembershipConfig{LessonsPerPayment: 0})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

// =============================================================================
// SYNC TESTS
// =============================================================================

func TestSyncDocument_RoundTrip(t *testing.T) {
	// GIVEN: A peer fetches the document
	h := newTestHandler()
	rec := doRequest(h, "GET", "/api/sync/document", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Fetch failed: %d", rec.Code)
	}
	doc := rec.Body.Bytes()

	// WHEN: Pushing it into a second instance
	h2 := NewHandler(core.NewStore(core.NewState()), nil)
	req := httptest.NewRequest("PUT", "/api/sync/document", bytes.NewReader(doc))
	rec2 := httptest.NewRecorder()
	NewRouter(h2).ServeHTTP(rec2, req)

	// THEN: The second instance now holds the same students
	if rec2.Code != http.StatusNoContent {
		t.Fatalf("Push failed: %d %s", rec2.Code, rec2.Body.String())
	}
	if st := h2.Store.State(); len(st.Students) != 1 {
		t.Errorf("Expected pushed document applied, got %d students", len(st.Students))
	}
}

func TestSyncDocument_PushUpgradesOldSchema(t *testing.T) {
	// GIVEN: A v1-era document from the tool this replaces
	h := newTestHandler()
	v1 := []byte(`{
		"students": [{"id": "s1", "name": "Old Timer", "classes": [], "lessonsRemaining": 3}],
		"lessons": [], "visits": []
	}`)

	// WHEN: A peer pushes it
	req := httptest.NewRequest("PUT", "/api/sync/document", bytes.NewReader(v1))
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)

	// THEN: It lands migrated to the current schema
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Push failed: %d %s", rec.Code, rec.Body.String())
	}
	st := h.Store.State()
	if st.SchemaVersion != core.CurrentSchemaVersion {
		t.Errorf("Expected schema %d, got %d", core.CurrentSchemaVersion, st.SchemaVersion)
	}
	if got := st.StudentByID("s1"); got == nil || got.LessonsCount != 3 {
		t.Errorf("Expected migrated student with 3 credits, got %+v", got)
	}
}
