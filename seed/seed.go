// Package seed generates a demo dataset: a couple of coaches, ten weekly
// class series with one-year windows, and a couple hundred students
// chaotically enrolled across them, with recent payment anchors and mixed
// credit balances. Useful for demos and load-shaped manual testing.
package seed

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/bigtop/studio-engine/core"
)

var firstNames = []string{
	"Emma", "Liam", "Olivia", "Noah", "Ava", "Ethan", "Sophia", "Mason",
	"Isabella", "James", "Mia", "Benjamin", "Charlotte", "Lucas", "Amelia",
	"Henry", "Harper", "Alexander", "Evelyn", "Michael", "Abigail", "Daniel",
	"Emily", "Matthew", "Elizabeth", "Aiden", "Sofia", "Joseph", "Avery", "David",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson",
	"Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee",
}

var classNames = []string{
	"Aerial Silks", "Acrobatics", "Juggling", "Clowning", "Tightrope",
	"Trapeze", "Aerial Hoop", "Hand Balancing", "Contortion", "Tumbling",
}

var daysOfWeek = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var timeSlots = []string{"09:00", "10:00", "11:00", "17:00", "18:00", "19:00", "20:00"}

// Options tune the generated dataset.
type Options struct {
	Students int
	Series   int
	Today    core.Date
	Seed     int64
}

func defaults(opts Options) Options {
	if opts.Students <= 0 {
		opts.Students = 200
	}
	if opts.Series <= 0 {
		opts.Series = 10
	}
	if opts.Today.IsZero() {
		opts.Today = core.Today()
	}
	return opts
}

// Generate builds a populated snapshot. The same seed yields the same data.
func Generate(opts Options) core.State {
	opts = defaults(opts)
	rng := rand.New(rand.NewSource(opts.Seed))
	st := core.NewState()

	st.Coaches = []core.Coach{
		{ID: "coach1", Name: "Sarah Johnson", Email: "sarah@studio.test", Phone: "+1-555-0101"},
		{ID: "coach2", Name: "Michael Chen", Email: "michael@studio.test", Phone: "+1-555-0102"},
	}

	// Series start 30 days ago and run a year.
	start := opts.Today.AddDays(-30)
	end := start.AddDays(365)
	for i := 0; i < opts.Series; i++ {
		st.Series = append(st.Series, core.ClassSeries{
			ID:           core.SeriesID(fmt.Sprintf("lesson_%d", i+1)),
			Name:         classNames[i%len(classNames)],
			DayOfWeek:    daysOfWeek[rng.Intn(len(daysOfWeek))],
			StartTime:    timeSlots[rng.Intn(len(timeSlots))],
			CoachID:      st.Coaches[rng.Intn(len(st.Coaches))].ID,
			StartDate:    start,
			EndDate:      end,
			Participants: []core.StudentID{},
		})
	}

	for i := 0; i < opts.Students; i++ {
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		paymentDate := opts.Today.AddDays(-rng.Intn(90))
		student := core.Student{
			ID:              core.StudentID(fmt.Sprintf("student_%d", i+1)),
			Name:            name,
			IsActive:        true,
			ClassSeries:     []core.SeriesID{},
			LastPaymentDate: paymentDate,
			LessonsCount:    rng.Intn(10) - 1, // -1..8, some students owe
			Payments: []core.Payment{{
				ID:      core.PaymentID(fmt.Sprintf("payment_%d", i+1)),
				Date:    paymentDate,
				Lessons: 8,
				Amount:  decimal.NewFromInt(120),
			}},
		}

		// 1-4 random classes each, both enrollment sides kept consistent.
		classes := 1 + rng.Intn(4)
		if classes > len(st.Series) {
			classes = len(st.Series)
		}
		for _, idx := range rng.Perm(len(st.Series))[:classes] {
			series := &st.Series[idx]
			student.ClassSeries = append(student.ClassSeries, series.ID)
			series.Participants = append(series.Participants, student.ID)
		}
		st.Students = append(st.Students, student)
	}

	return st
}
