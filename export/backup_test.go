package export_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtop/studio-engine/core"
	"github.com/bigtop/studio-engine/export"
)

func backupFixture() core.State {
	st := core.NewState()
	st.Coaches = []core.Coach{{ID: "coach1", Name: "Sarah Johnson", Email: "sarah@studio.test"}}
	st.Series = []core.ClassSeries{{
		ID:           "s1",
		Name:         "Aerial Silks",
		DayOfWeek:    "Wednesday",
		StartTime:    "18:00",
		CoachID:      "coach1",
		StartDate:    core.NewDate(2024, time.January, 1),
		EndDate:      core.NewDate(2024, time.December, 31),
		Participants: []core.StudentID{"alice"},
	}}
	st.Students = []core.Student{{
		ID:              "alice",
		Name:            "Alice",
		IsActive:        true,
		ClassSeries:     []core.SeriesID{"s1"},
		LastPaymentDate: core.NewDate(2024, time.January, 8),
		LessonsCount:    8,
	}}
	st.Visits = []core.Visit{{
		ID: "v1", Date: core.NewDate(2024, time.January, 10),
		LessonID: "s1", StudentID: "alice", CoachID: "coach1", ClassName: "Aerial Silks",
	}}
	st.Overlay = st.Overlay.SetCancelled(core.Occurrence{SeriesID: "s1", Date: core.NewDate(2024, time.January, 17)}.Key(), true)
	return st
}

func TestBackup_RoundTrip(t *testing.T) {
	st := backupFixture()

	raw, err := export.Backup(st)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "section,id,data\n"))

	restored, err := export.Restore(raw)
	require.NoError(t, err)

	assert.Equal(t, st.Students, restored.Students)
	assert.Equal(t, st.Coaches, restored.Coaches)
	assert.Equal(t, st.Series, restored.Series)
	assert.Equal(t, st.Visits, restored.Visits)
	assert.True(t, restored.Overlay.IsCancelled(core.Occurrence{SeriesID: "s1", Date: core.NewDate(2024, time.January, 17)}.Key()))
	assert.Equal(t, st.Config, restored.Config)
}

func TestRestore_LegacyBase64(t *testing.T) {
	// The legacy backup was the raw snapshot JSON wrapped in base64; it
	// must come back through the same ingestion upgrade path.
	legacy := base64.StdEncoding.EncodeToString([]byte(`{
		"students": [{"id": "s", "name": "S", "classes": [], "lessonsRemaining": 4}],
		"lessons": []
	}`))

	st, err := export.Restore([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, core.CurrentSchemaVersion, st.SchemaVersion)
	require.NotNil(t, st.StudentByID("s"))
	assert.Equal(t, 4, st.StudentByID("s").LessonsCount)
}

func TestRestore_Garbage_Error(t *testing.T) {
	_, err := export.Restore([]byte("definitely not a backup!!"))
	assert.Error(t, err)
}

func TestRestore_UnknownSection_Error(t *testing.T) {
	raw := "section,id,data\nwidget,w1,{}\n"
	_, err := export.Restore([]byte(raw))
	assert.Error(t, err)
}
