package plan

import (
	"math"
	"time"

	"github.com/bassista/go_gym/internal/repository"
)

// RecordLookup returns the records of one exercise. progress.Repository and
// repository.ProgressDocument both provide one.
type RecordLookup func(exercise string) []repository.ExerciseRecord

// WeekRange returns the Monday and Sunday (as midnight in now's location) of
// the week containing now.
func WeekRange(now time.Time) (monday, sunday time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	offset := (int(today.Weekday()) + 6) % 7
	monday = today.AddDate(0, 0, -offset)
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}

// CompletedThisWeek reports whether any record falls inside the week of now.
// Records with unparsable dates are ignored.
func CompletedThisWeek(records []repository.ExerciseRecord, now time.Time) bool {
	monday, sunday := WeekRange(now)
	from := monday.Format(repository.DateLayout)
	to := sunday.Format(repository.DateLayout)
	for _, r := range records {
		if _, err := time.Parse(repository.DateLayout, r.Date); err != nil {
			continue
		}
		// ISO dates compare lexically
		if r.Date >= from && r.Date <= to {
			return true
		}
	}
	return false
}

// Stats is the weekly completion summary.
type Stats struct {
	Monday     string  `json:"monday"`
	Sunday     string  `json:"sunday"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// WeekStats counts planned exercises with at least one record this week.
// Days flagged SkipStats are left out; the percentage is 0 for an empty plan.
func WeekStats(p *Plan, lookup RecordLookup, now time.Time) Stats {
	monday, sunday := WeekRange(now)
	st := Stats{
		Monday: monday.Format(repository.DateLayout),
		Sunday: sunday.Format(repository.DateLayout),
	}
	if p == nil {
		return st
	}

	for _, d := range p.Days {
		if d.SkipStats {
			continue
		}
		for _, e := range d.Exercises {
			st.Total++
			if CompletedThisWeek(lookup(e.Name), now) {
				st.Completed++
			}
		}
	}
	if st.Total > 0 {
		st.Percentage = math.Round(float64(st.Completed)/float64(st.Total)*1000) / 10
	}
	return st
}

// DayStatus is a plan day annotated with this week's completion.
type DayStatus struct {
	Name      string           `json:"name"`
	Title     string           `json:"title"`
	SkipStats bool             `json:"skipStats"`
	Exercises []ExerciseStatus `json:"exercises"`
}

type ExerciseStatus struct {
	Exercise
	Completed bool `json:"completed"`
}

// Annotate marks each exercise of the plan as completed or not for the week of now.
func Annotate(p *Plan, lookup RecordLookup, now time.Time) []DayStatus {
	if p == nil {
		return []DayStatus{}
	}
	out := make([]DayStatus, 0, len(p.Days))
	for _, d := range p.Days {
		ds := DayStatus{Name: d.Name, Title: d.Title, SkipStats: d.SkipStats, Exercises: make([]ExerciseStatus, 0, len(d.Exercises))}
		for _, e := range d.Exercises {
			ds.Exercises = append(ds.Exercises, ExerciseStatus{Exercise: e, Completed: CompletedThisWeek(lookup(e.Name), now)})
		}
		out = append(out, ds)
	}
	return out
}
