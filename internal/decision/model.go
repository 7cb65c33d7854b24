package decision

import (
	"fmt"
	"slices"
)

// SystemAction is the top-level action of a verdict.
type SystemAction string

const (
	// ActionNormal means the urgency tier came from composite scoring.
	ActionNormal SystemAction = "normal"

	// ActionEmergencyBreaker means a red-flag rule fired. It is final.
	ActionEmergencyBreaker SystemAction = "emergency_circuit_breaker"
)

// UrgencyTier is the triage outcome presented to the caller.
type UrgencyTier string

const (
	TierRoutine   UrgencyTier = "routine"
	TierUrgent    UrgencyTier = "urgent"
	TierEmergency UrgencyTier = "emergency"
)

// Sex is sex assigned at birth as reported by the user.
type Sex string

const (
	SexFemale   Sex = "female"
	SexMale     Sex = "male"
	SexIntersex Sex = "intersex"
	SexUnknown  Sex = "unknown"
)

// Valid reports whether s is one of the known values. Empty is not valid.
func (s Sex) Valid() bool {
	switch s {
	case SexFemale, SexMale, SexIntersex, SexUnknown:
		return true
	}
	return false
}

// Input is the clinical data a verdict is computed from.
type Input struct {
	Text          string   `json:"text"`
	AgeYears      *int     `json:"ageYears,omitempty"`
	Severity      *int     `json:"severity,omitempty"`
	DurationHours *float64 `json:"durationHours,omitempty"`
	SexAtBirth    Sex      `json:"sexAtBirth,omitempty"`
	Pregnant      *bool    `json:"pregnant,omitempty"`
}

// Verdict is the deterministic triage outcome. Prose is non-authoritative
// and is the only field augmentation may touch.
type Verdict struct {
	SystemAction SystemAction `json:"systemAction"`
	UrgencyTier  UrgencyTier  `json:"urgencyTier"`
	Rationale    []string     `json:"rationale"`
	Score        *int         `json:"score,omitempty"`
	Prose        string       `json:"prose,omitempty"`
}

// IsBreaker reports whether the emergency circuit breaker fired.
func (v Verdict) IsBreaker() bool {
	return v.SystemAction == ActionEmergencyBreaker
}

func (v Verdict) clone() Verdict {
	cp := v
	cp.Rationale = slices.Clone(v.Rationale)
	if v.Score != nil {
		s := *v.Score
		cp.Score = &s
	}
	return cp
}

// SafetyViolation is the panic value raised when something attempts to
// change the authoritative fields of a verdict after it was decided.
type SafetyViolation struct {
	Before Verdict
	After  Verdict
}

func (s SafetyViolation) Error() string {
	return fmt.Sprintf("decision: authoritative verdict changed after decision (%s/%s -> %s/%s)",
		s.Before.SystemAction, s.Before.UrgencyTier, s.After.SystemAction, s.After.UrgencyTier)
}

// mustPreserve panics if after differs from before in anything but Prose.
func mustPreserve(before, after Verdict) {
	if before.SystemAction != after.SystemAction ||
		before.UrgencyTier != after.UrgencyTier ||
		!slices.Equal(before.Rationale, after.Rationale) ||
		!sameScore(before.Score, after.Score) {
		panic(SafetyViolation{Before: before, After: after})
	}
}

func sameScore(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
