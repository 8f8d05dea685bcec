/*
migrate.go - Versioned snapshot ingestion

PURPOSE:
  The snapshot document on disk (or pushed from a sync peer) may predate
  the series+occurrence model: schema v1 stored flat lesson records with a
  per-lesson cancelled flag, student enrollment by class NAME, and a
  live-decrementing lessonsRemaining counter. Ingestion upgrades any such
  document to the current schema exactly once, here, before a single core
  operation runs. Business logic never branches on "does this look
  old-shaped".

V1 -> V2 MAPPING:
  lesson.className            -> series.Name (id preserved)
  lesson (no dates)           -> series with zero dates; malformed by
                                 definition, contributes no occurrences
                                 until the operator edits the window
  lesson.cancelled            -> dropped; a series-level flag has no date,
                                 so there is no occurrence to pin it to
  student.classes (names)     -> student.classSeries (ids) + participants
  student.lessonsRemaining    -> student.lessonsCount (no anchor: with no
                                 payment history the ledger reports 0 and
                                 the stored counter is what the operator
                                 edits after the first real payment)
  visits                      -> unchanged

SEE ALSO:
  - types.go: CurrentSchemaVersion, State
*/
package core

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// SNAPSHOT CODEC
// =============================================================================

// EncodeState serializes the snapshot document for storage and sync.
func EncodeState(st State) ([]byte, error) {
	return json.Marshal(st)
}

// DecodeState ingests a raw snapshot document of any supported schema
// version and returns it upgraded and normalized to the current shape.
func DecodeState(raw []byte) (State, error) {
	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return State{}, fmt.Errorf("snapshot document: %w", err)
	}

	if probe.SchemaVersion >= CurrentSchemaVersion {
		var st State
		if err := json.Unmarshal(raw, &st); err != nil {
			return State{}, fmt.Errorf("snapshot document (v%d): %w", probe.SchemaVersion, err)
		}
		return normalize(st), nil
	}

	return upgradeV1(raw)
}

// normalize fills the defaults a hand-edited or partial document may lack.
func normalize(st State) State {
	st.SchemaVersion = CurrentSchemaVersion
	if st.Overlay == nil {
		st.Overlay = NewOverlay()
	}
	if st.Config.LessonsPerPayment <= 0 {
		st.Config.LessonsPerPayment = DefaultMembershipConfig().LessonsPerPayment
	}
	if st.Config.FreeSkipLessons < 0 {
		st.Config.FreeSkipLessons = 0
	}
	for i := range st.Students {
		if st.Students[i].ClassSeries == nil {
			st.Students[i].ClassSeries = []SeriesID{}
		}
	}
	for i := range st.Series {
		if st.Series[i].Participants == nil {
			st.Series[i].Participants = []StudentID{}
		}
	}
	return st
}

// =============================================================================
// V1 UPGRADE
// =============================================================================

type v1Document struct {
	Students []struct {
		ID               StudentID `json:"id"`
		Name             string    `json:"name"`
		Classes          []string  `json:"classes"`
		LessonsRemaining int       `json:"lessonsRemaining"`
	} `json:"students"`
	Coaches []Coach `json:"coaches"`
	Lessons []struct {
		ID        SeriesID `json:"id"`
		ClassName string   `json:"className"`
		DayOfWeek string   `json:"dayOfWeek"`
		Time      string   `json:"time"`
		CoachID   CoachID  `json:"coachId"`
		Cancelled bool     `json:"cancelled"`
	} `json:"lessons"`
	Visits []Visit           `json:"visits"`
	Config *MembershipConfig `json:"membershipConfig"`
}

func upgradeV1(raw []byte) (State, error) {
	var doc v1Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return State{}, fmt.Errorf("snapshot document (v1): %w", err)
	}

	st := NewState()
	st.Coaches = doc.Coaches
	st.Visits = doc.Visits
	if doc.Config != nil {
		st.Config = *doc.Config
	}

	byName := make(map[string]SeriesID, len(doc.Lessons))
	for _, l := range doc.Lessons {
		series := ClassSeries{
			ID:           l.ID,
			Name:         l.ClassName,
			DayOfWeek:    l.DayOfWeek,
			StartTime:    l.Time,
			CoachID:      l.CoachID,
			Participants: []StudentID{},
		}
		st.Series = append(st.Series, series)
		if _, dup := byName[l.ClassName]; !dup {
			byName[l.ClassName] = l.ID
		}
	}

	for _, s := range doc.Students {
		student := Student{
			ID:           s.ID,
			Name:         s.Name,
			IsActive:     true,
			ClassSeries:  []SeriesID{},
			LessonsCount: s.LessonsRemaining,
			Payments:     []Payment{},
		}
		for _, className := range s.Classes {
			seriesID, ok := byName[className]
			if !ok {
				continue
			}
			student.ClassSeries = append(student.ClassSeries, seriesID)
			if series := seriesByIDSlice(st.Series, seriesID); series != nil {
				series.Participants = append(series.Participants, student.ID)
			}
		}
		st.Students = append(st.Students, student)
	}

	return normalize(st), nil
}

func seriesByIDSlice(series []ClassSeries, id SeriesID) *ClassSeries {
	for i := range series {
		if series[i].ID == id {
			return &series[i]
		}
	}
	return nil
}
