package repository

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar date format used for records on disk and on the wire.
const DateLayout = "2006-01-02"

// ExerciseRecord is a single logged result: a weight (or a time for cardio) on a date.
type ExerciseRecord struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Weight float64 `json:"weight" validate:"finite,gte=0"`
}

// NewValidator returns a validator that knows the "finite" tag used by
// ExerciseRecord. JSON cannot encode NaN or ±Inf, so a document holding one
// could never be written again.
func NewValidator() *validator.Validate {
	v := validator.New()
	// only fails on a duplicate or empty tag name
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Float32, reflect.Float64:
			x := f.Float()
			return !math.IsNaN(x) && !math.IsInf(x, 0)
		}
		return true
	})
	return v
}

// ProgressDocument maps an exercise name to its records, oldest first.
// It is persisted as a bare JSON object with no envelope.
type ProgressDocument map[string][]ExerciseRecord

// NewProgressDocument returns an empty document, the valid "no history" state.
func NewProgressDocument() ProgressDocument {
	return ProgressDocument{}
}

// Append adds rec under name and restores date order for that exercise only.
// Records sharing a date keep their insertion order.
func (d ProgressDocument) Append(name string, rec ExerciseRecord) {
	records := append(d[name], rec)
	slices.SortStableFunc(records, func(a, b ExerciseRecord) int {
		return cmp.Compare(a.Date, b.Date)
	})
	d[name] = records
}

// Records returns a copy of the records for name, never nil.
func (d ProgressDocument) Records(name string) []ExerciseRecord {
	records := d[name]
	out := make([]ExerciseRecord, len(records))
	copy(out, records)
	return out
}

// Clone deep-copies the document so cache and callers never share slices.
func (d ProgressDocument) Clone() ProgressDocument {
	out := make(ProgressDocument, len(d))
	for name, records := range d {
		out[name] = slices.Clone(records)
	}
	return out
}

// Count returns the total number of records across all exercises.
func (d ProgressDocument) Count() int {
	n := 0
	for _, records := range d {
		n += len(records)
	}
	return n
}

// Validate checks exercise names and every record.
func (d ProgressDocument) Validate(v *validator.Validate) error {
	for name, records := range d {
		if name == "" {
			return errors.New("exercise name must not be empty")
		}
		for i := range records {
			if err := v.Struct(&records[i]); err != nil {
				return fmt.Errorf("exercise %q record %d: %w", name, i, err)
			}
		}
	}
	return nil
}

// Summary condenses an exercise history: the latest weight, the best one and
// the change from the first record to the latest. Change is 0 with a single record.
type Summary struct {
	Count  int     `json:"count"`
	Last   float64 `json:"last"`
	Best   float64 `json:"best"`
	Change float64 `json:"change"`
}

// Summarize computes the Summary of records sorted oldest first.
// An empty history yields the zero Summary.
func Summarize(records []ExerciseRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	first, last := records[0].Weight, records[len(records)-1].Weight
	best := first
	for _, r := range records[1:] {
		best = max(best, r.Weight)
	}
	return Summary{Count: len(records), Last: last, Best: best, Change: last - first}
}

// AreDocumentsEqual compares two documents record by record.
func AreDocumentsEqual(a, b ProgressDocument) bool {
	if len(a) != len(b) {
		return false
	}
	for name, records := range a {
		other, ok := b[name]
		if !ok || !slices.Equal(records, other) {
			return false
		}
	}
	return true
}
