package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtop/studio-engine/core"
)

func TestDecodeState_V1Document_Upgraded(t *testing.T) {
	// GIVEN: A pre-series flat document (no schemaVersion, class-name
	//        enrollment, lessonsRemaining counter)
	// WHEN: Ingesting it
	// THEN: Business logic sees only the current schema

	raw := []byte(`{
		"students": [
			{"id": "student_1", "name": "Emma Smith", "classes": ["Aerial Silks"], "lessonsRemaining": 5}
		],
		"coaches": [{"id": "coach1", "name": "Sarah Johnson"}],
		"lessons": [
			{"id": "lesson_1", "className": "Aerial Silks", "dayOfWeek": "Wednesday", "time": "18:00", "coachId": "coach1", "cancelled": true}
		],
		"visits": [
			{"id": "v1", "date": "2024-01-10", "lessonId": "lesson_1", "studentId": "student_1", "coachId": "coach1", "className": "Aerial Silks"}
		],
		"membershipConfig": {"lessonsPerPayment": 8, "freeSkipLessons": 1}
	}`)

	st, err := core.DecodeState(raw)
	require.NoError(t, err)

	assert.Equal(t, core.CurrentSchemaVersion, st.SchemaVersion)

	student := st.StudentByID("student_1")
	require.NotNil(t, student)
	assert.Equal(t, 5, student.LessonsCount)
	assert.True(t, student.IsActive)
	assert.Equal(t, []core.SeriesID{"lesson_1"}, student.ClassSeries)

	series := st.SeriesByID("lesson_1")
	require.NotNil(t, series)
	assert.Equal(t, "Aerial Silks", series.Name)
	assert.Equal(t, "18:00", series.StartTime)
	assert.True(t, series.HasParticipant("student_1"), "enrollment upgraded bidirectionally")
	assert.False(t, series.Valid(), "flat lessons carry no window until the operator sets one")

	assert.Len(t, st.Visits, 1)
}

func TestDecodeState_CurrentSchema_Passthrough(t *testing.T) {
	st := ledgerFixture()
	st.Overlay = st.Overlay.SetCancelled(occ("s1", 2024, time.January, 17).Key(), true)

	raw, err := core.EncodeState(st)
	require.NoError(t, err)

	decoded, err := core.DecodeState(raw)
	require.NoError(t, err)

	assert.Equal(t, st.Students, decoded.Students)
	assert.Equal(t, st.Series, decoded.Series)
	assert.True(t, decoded.Overlay.IsCancelled(occ("s1", 2024, time.January, 17).Key()))
	assert.Equal(t, st.Config, decoded.Config)
}

func TestDecodeState_PartialDocument_NormalizedDefaults(t *testing.T) {
	raw := []byte(`{"schemaVersion": 2, "students": [{"id": "a", "name": "A", "isActive": true}]}`)

	st, err := core.DecodeState(raw)
	require.NoError(t, err)

	assert.NotNil(t, st.Overlay)
	assert.Equal(t, 8, st.Config.LessonsPerPayment)
	assert.NotNil(t, st.StudentByID("a").ClassSeries)
}

func TestDecodeState_Garbage_Error(t *testing.T) {
	_, err := core.DecodeState([]byte(`{]`))
	assert.Error(t, err)
}
