package intake

import (
	"log/slog"
	"time"

	"github.com/linnemanlabs/carepath/internal/decision"
)

// Slot is one required field of the intake conversation.
type Slot string

const (
	// SlotNone means nothing is awaited.
	SlotNone     Slot = ""
	SlotSymptoms Slot = "symptoms"
	SlotSeverity Slot = "severity"
	SlotDuration Slot = "duration"
	SlotAge      Slot = "age"
)

// slotOrder is the fixed order slots are requested in.
var slotOrder = []Slot{SlotSymptoms, SlotSeverity, SlotDuration, SlotAge}

// Record is the intake data collected for one conversation. FreeText is
// only held un-redacted in process memory; Service redacts it before writing.
type Record struct {
	FreeText      string        `json:"freeText,omitempty"`
	AgeYears      *int          `json:"ageYears,omitempty"`
	Severity      *int          `json:"severity,omitempty"`
	DurationHours *float64      `json:"durationHours,omitempty"`
	SexAtBirth    *decision.Sex `json:"sexAtBirth,omitempty"`
	Pregnant      *bool         `json:"pregnant,omitempty"`
	Awaiting      Slot          `json:"awaiting,omitempty"`
	SkipSeverity  bool          `json:"skipSeverity,omitempty"`
	SkipDuration  bool          `json:"skipDuration,omitempty"`
	SkipAge       bool          `json:"skipAge,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.AgeYears != nil {
		v := *r.AgeYears
		cp.AgeYears = &v
	}
	if r.Severity != nil {
		v := *r.Severity
		cp.Severity = &v
	}
	if r.DurationHours != nil {
		v := *r.DurationHours
		cp.DurationHours = &v
	}
	if r.SexAtBirth != nil {
		v := *r.SexAtBirth
		cp.SexAtBirth = &v
	}
	if r.Pregnant != nil {
		v := *r.Pregnant
		cp.Pregnant = &v
	}
	return &cp
}

// Input converts the record into decision engine input.
func (r *Record) Input() decision.Input {
	in := decision.Input{
		Text:          r.FreeText,
		AgeYears:      r.AgeYears,
		Severity:      r.Severity,
		DurationHours: r.DurationHours,
		Pregnant:      r.Pregnant,
	}
	if r.SexAtBirth != nil {
		in.SexAtBirth = *r.SexAtBirth
	}
	return in
}

// filled reports whether the slot has a value.
func (r *Record) filled(s Slot) bool {
	switch s {
	case SlotSymptoms:
		return r.FreeText != ""
	case SlotSeverity:
		return r.Severity != nil
	case SlotDuration:
		return r.DurationHours != nil
	case SlotAge:
		return r.AgeYears != nil
	}
	return true
}

// skipped reports whether the caller declared the slot optional.
func (r *Record) skipped(s Slot) bool {
	switch s {
	case SlotSeverity:
		return r.SkipSeverity
	case SlotDuration:
		return r.SkipDuration
	case SlotAge:
		return r.SkipAge
	}
	return false
}

// LogValue keeps free text out of logs.
func (r *Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("awaiting", string(r.Awaiting)),
		slog.Int("text_len", len(r.FreeText)),
		slog.Bool("has_severity", r.Severity != nil),
		slog.Bool("has_duration", r.DurationHours != nil),
		slog.Bool("has_age", r.AgeYears != nil),
		slog.Time("updated_at", r.UpdatedAt),
	)
}

// SessionRecord is the persistence wrapper around a Record.
type SessionRecord struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	State     Record    `json:"state"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the record is logically absent at now.
func (s *SessionRecord) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
