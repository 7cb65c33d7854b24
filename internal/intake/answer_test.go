package intake

import (
	"math"
	"strings"
	"testing"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/validate"
)

func TestMerge_NewSession(t *testing.T) {
	t.Parallel()

	r, err := Merge(nil, Turn{Text: "I have a sore throat"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if r.FreeText != "I have a sore throat" {
		t.Errorf("FreeText = %q", r.FreeText)
	}
	if r.Awaiting != SlotSeverity {
		t.Errorf("Awaiting = %q, want severity", r.Awaiting)
	}
}

func TestMerge_ExplicitOverwrites(t *testing.T) {
	t.Parallel()

	prev := &Record{FreeText: "cough", Severity: intp(3), Awaiting: SlotDuration}
	r, err := Merge(prev, Turn{Answers: []Answer{SeverityAnswer{Value: 6}}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if *r.Severity != 6 {
		t.Errorf("Severity = %d, want 6", *r.Severity)
	}
	if *prev.Severity != 3 {
		t.Error("Merge modified prev")
	}
}

func TestMerge_OutOfOrderAccepted(t *testing.T) {
	t.Parallel()

	r, err := Merge(nil, Turn{
		Text:    "dizzy",
		Answers: []Answer{AgeAnswer{Years: 70}, DurationAnswer{Hours: 3}},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if r.AgeYears == nil || *r.AgeYears != 70 {
		t.Errorf("AgeYears = %v, want 70", r.AgeYears)
	}
	if r.DurationHours == nil || *r.DurationHours != 3 {
		t.Errorf("DurationHours = %v, want 3", r.DurationHours)
	}
	// order governs what is asked next, not what is accepted
	if r.Awaiting != SlotSeverity {
		t.Errorf("Awaiting = %q, want severity", r.Awaiting)
	}
}

func TestMerge_FreeTextNeverOverwritesStructured(t *testing.T) {
	t.Parallel()

	prev := &Record{FreeText: "back pain", Severity: intp(4), Awaiting: SlotDuration}
	r, err := Merge(prev, Turn{Text: "actually it's 9/10 now"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if *r.Severity != 4 {
		t.Errorf("Severity = %d, want 4 (free text must not overwrite)", *r.Severity)
	}
	if !strings.Contains(r.FreeText, "back pain") || !strings.Contains(r.FreeText, "9/10") {
		t.Errorf("FreeText = %q, want both turns", r.FreeText)
	}
}

func TestMerge_FreeTextFillsAwaitedSlot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		awaiting Slot
		text     string
		check    func(*Record) bool
		next     Slot
	}{
		{"severity out of ten", SlotSeverity, "about 7/10", func(r *Record) bool { return r.Severity != nil && *r.Severity == 7 }, SlotDuration},
		{"severity lone number", SlotSeverity, "8", func(r *Record) bool { return r.Severity != nil && *r.Severity == 8 }, SlotDuration},
		{"duration days", SlotDuration, "for 3 days", func(r *Record) bool { return r.DurationHours != nil && *r.DurationHours == 72 }, SlotAge},
		{"duration words", SlotDuration, "two weeks", func(r *Record) bool { return r.DurationHours != nil && *r.DurationHours == 336 }, SlotAge},
		{"duration relative", SlotDuration, "since yesterday", func(r *Record) bool { return r.DurationHours != nil && *r.DurationHours == 24 }, SlotAge},
		{"age years", SlotAge, "I'm 45 years old", func(r *Record) bool { return r.AgeYears != nil && *r.AgeYears == 45 }, SlotNone},
		{"age out of range ignored", SlotAge, "200", func(r *Record) bool { return r.AgeYears == nil }, SlotAge},
		{"severity out of range ignored", SlotSeverity, "12/10", func(r *Record) bool { return r.Severity == nil }, SlotSeverity},
		{"duration text not read as severity", SlotSeverity, "started 3 days ago", func(r *Record) bool { return r.Severity == nil && r.DurationHours == nil }, SlotSeverity},
		{"duration text not read as age", SlotAge, "for 2 days now", func(r *Record) bool { return r.AgeYears == nil }, SlotAge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prev := &Record{FreeText: "cough", Awaiting: tt.awaiting}
			switch tt.awaiting {
			case SlotDuration:
				prev.Severity = intp(5)
			case SlotAge:
				prev.Severity = intp(5)
				prev.DurationHours = floatp(1)
			}
			r, err := Merge(prev, Turn{Text: tt.text})
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			if !tt.check(r) {
				t.Errorf("slot %q not filled as expected from %q: %+v", tt.awaiting, tt.text, r)
			}
			if r.Awaiting != tt.next {
				t.Errorf("Awaiting = %q, want %q", r.Awaiting, tt.next)
			}
		})
	}
}

func TestMerge_ExplicitAnswerBeatsParsedText(t *testing.T) {
	t.Parallel()

	prev := &Record{FreeText: "cough", Awaiting: SlotSeverity}
	r, err := Merge(prev, Turn{Text: "maybe 9/10", Answers: []Answer{SeverityAnswer{Value: 3}}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if *r.Severity != 3 {
		t.Errorf("Severity = %d, want 3", *r.Severity)
	}
}

func TestMerge_Skip(t *testing.T) {
	t.Parallel()

	r, err := Merge(nil, Turn{Text: "rash", Answers: []Answer{
		SkipAnswer{Slot: SlotSeverity},
		SkipAnswer{Slot: SlotDuration},
		SkipAnswer{Slot: SlotAge},
	}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if r.Awaiting != SlotNone {
		t.Errorf("Awaiting = %q, want none", r.Awaiting)
	}
}

func TestMerge_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		a     Answer
		field string
	}{
		{"blank symptoms", SymptomsAnswer{Text: "  "}, "text"},
		{"severity low", SeverityAnswer{Value: 0}, "severity"},
		{"severity high", SeverityAnswer{Value: 11}, "severity"},
		{"duration negative", DurationAnswer{Hours: -2}, "durationHours"},
		{"duration NaN", DurationAnswer{Hours: math.NaN()}, "durationHours"},
		{"age high", AgeAnswer{Years: 131}, "ageYears"},
		{"sex", SexAnswer{Sex: "x"}, "sexAtBirth"},
		{"skip symptoms", SkipAnswer{Slot: SlotSymptoms}, "skip"},
		{"nil", nil, "answers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prev := &Record{FreeText: "x", Severity: intp(2), Awaiting: SlotDuration}
			_, err := Merge(prev, Turn{Answers: []Answer{tt.a}})
			ve, ok := validate.As(err)
			if !ok {
				t.Fatalf("Merge error = %v, want validation error", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if *prev.Severity != 2 {
				t.Error("prev modified on validation failure")
			}
		})
	}
}

func TestRecord_Input(t *testing.T) {
	t.Parallel()

	sex := decision.SexFemale
	r := &Record{FreeText: "x", SexAtBirth: &sex, Severity: intp(3)}
	in := r.Input()
	if in.SexAtBirth != decision.SexFemale || in.Text != "x" || *in.Severity != 3 {
		t.Errorf("Input = %+v", in)
	}
	if (&Record{}).Input().SexAtBirth != "" {
		t.Error("nil sex should map to empty")
	}
}
