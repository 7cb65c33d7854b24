package intake

import (
	"math"
	"strings"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/validate"
)

// Answer is one explicit structured value carried by a turn. The set of
// variants is closed; every variant lives in this file.
type Answer interface {
	validate() error
	apply(r *Record)
}

// SymptomsAnswer replaces the symptom description.
type SymptomsAnswer struct{ Text string }

// SeverityAnswer sets severity on a 1-10 scale.
type SeverityAnswer struct{ Value int }

// DurationAnswer sets symptom duration in hours.
type DurationAnswer struct{ Hours float64 }

// AgeAnswer sets age in years.
type AgeAnswer struct{ Years int }

// SexAnswer sets sex assigned at birth.
type SexAnswer struct{ Sex decision.Sex }

// PregnancyAnswer sets pregnancy status.
type PregnancyAnswer struct{ Pregnant bool }

// SkipAnswer declares an optional slot. Only severity, duration and age may be skipped.
type SkipAnswer struct{ Slot Slot }

func (a SymptomsAnswer) validate() error {
	if strings.TrimSpace(a.Text) == "" {
		return validate.Errorf("text", "symptom description must not be blank")
	}
	return nil
}

func (a SymptomsAnswer) apply(r *Record) { r.FreeText = strings.TrimSpace(a.Text) }

func (a SeverityAnswer) validate() error { return validate.IntRange("severity", a.Value, 1, 10) }

func (a SeverityAnswer) apply(r *Record) {
	v := a.Value
	r.Severity = &v
}

func (a DurationAnswer) validate() error {
	if math.IsNaN(a.Hours) || math.IsInf(a.Hours, 0) || a.Hours < 0 {
		return validate.Errorf("durationHours", "must be a non-negative number of hours")
	}
	return nil
}

func (a DurationAnswer) apply(r *Record) {
	v := a.Hours
	r.DurationHours = &v
}

func (a AgeAnswer) validate() error { return validate.IntRange("ageYears", a.Years, 0, 130) }

func (a AgeAnswer) apply(r *Record) {
	v := a.Years
	r.AgeYears = &v
}

func (a SexAnswer) validate() error {
	if !a.Sex.Valid() {
		return validate.Errorf("sexAtBirth", "unknown value %q", a.Sex)
	}
	return nil
}

func (a SexAnswer) apply(r *Record) {
	v := a.Sex
	r.SexAtBirth = &v
}

func (a PregnancyAnswer) validate() error { return nil }

func (a PregnancyAnswer) apply(r *Record) {
	v := a.Pregnant
	r.Pregnant = &v
}

func (a SkipAnswer) validate() error {
	switch a.Slot {
	case SlotSeverity, SlotDuration, SlotAge:
		return nil
	}
	return validate.Errorf("skip", "slot %q cannot be skipped", a.Slot)
}

func (a SkipAnswer) apply(r *Record) {
	switch a.Slot {
	case SlotSeverity:
		r.SkipSeverity = true
	case SlotDuration:
		r.SkipDuration = true
	case SlotAge:
		r.SkipAge = true
	}
}

// Turn is one inbound user turn: explicit answers plus optional free text.
type Turn struct {
	Answers []Answer
	Text    string
}

// has reports whether the turn carries an explicit answer for slot.
func (t Turn) has(s Slot) bool {
	for _, a := range t.Answers {
		switch a.(type) {
		case SymptomsAnswer:
			if s == SlotSymptoms {
				return true
			}
		case SeverityAnswer:
			if s == SlotSeverity {
				return true
			}
		case DurationAnswer:
			if s == SlotDuration {
				return true
			}
		case AgeAnswer:
			if s == SlotAge {
				return true
			}
		}
	}
	return false
}

// Merge validates t and folds it into a copy of prev (nil for a new session).
// Explicit answers overwrite the same slot regardless of what was awaited.
// Free text is appended to FreeText and never overwrites a structured field,
// except that a structured value parsed from it may fill the awaited slot
// when the turn has no explicit answer for that slot and it is still empty.
// The returned record has Awaiting advanced. prev is not modified.
func Merge(prev *Record, t Turn) (*Record, error) {
	for _, a := range t.Answers {
		if a == nil {
			return nil, validate.Errorf("answers", "nil answer")
		}
		if err := a.validate(); err != nil {
			return nil, err
		}
	}

	r := prev.Clone()
	if r == nil {
		r = &Record{}
	}
	awaiting := r.Awaiting
	if prev == nil {
		awaiting = SlotSymptoms
	}

	for _, a := range t.Answers {
		a.apply(r)
	}

	text := strings.TrimSpace(t.Text)
	if text != "" {
		if !t.has(awaiting) && !r.filled(awaiting) {
			if a, ok := parseSlot(awaiting, text); ok {
				a.apply(r)
			}
		}
		if r.FreeText == "" {
			r.FreeText = text
		} else if r.FreeText != text {
			r.FreeText += "\n" + text
		}
	}

	Advance(r)
	return r, nil
}
