package decision

import (
	"fmt"
	"math"
)

// Scoring band ids.
const (
	BandEmergency = "SC_EMERGENCY"
	BandUrgent    = "SC_URGENT"
	BandRoutine   = "SC_ROUTINE"
)

// Modifier ids, in evaluation order.
const (
	ModSeverityUnknown  = "MOD_SEVERITY_UNKNOWN"
	ModAgeInfant        = "MOD_AGE_INFANT"
	ModAgeChild         = "MOD_AGE_CHILD"
	ModAgeOlder         = "MOD_AGE_OLDER"
	ModAgeElderly       = "MOD_AGE_ELDERLY"
	ModPregnant         = "MOD_PREGNANT"
	ModPregnancyUnknown = "MOD_PREGNANCY_UNKNOWN"
	ModAcuteSevere      = "MOD_ACUTE_SEVERE"
	ModPersistent       = "MOD_PERSISTENT"
	ModChronicMild      = "MOD_CHRONIC_MILD"
)

// unknownSeverity is the base score when the severity slot was skipped.
const unknownSeverity = 5

type modifier struct {
	id      string
	delta   int
	applies func(in *Input, severity int) bool
}

var modifiers = []modifier{
	{ModSeverityUnknown, 0, func(in *Input, _ int) bool { return in.Severity == nil }},
	{ModAgeInfant, 3, func(in *Input, _ int) bool { return ageIn(in, 0, 2) }},
	{ModAgeChild, 1, func(in *Input, _ int) bool { return ageIn(in, 2, 12) }},
	{ModAgeOlder, 1, func(in *Input, _ int) bool { return ageIn(in, 65, 75) }},
	{ModAgeElderly, 2, func(in *Input, _ int) bool { return ageIn(in, 75, math.MaxInt) }},
	{ModPregnant, 2, func(in *Input, _ int) bool { return in.Pregnant != nil && *in.Pregnant }},
	{ModPregnancyUnknown, 1, func(in *Input, _ int) bool {
		return in.Pregnant == nil && in.SexAtBirth == SexFemale && ageIn(in, 12, 51)
	}},
	{ModAcuteSevere, 1, func(in *Input, sev int) bool {
		return in.DurationHours != nil && *in.DurationHours <= 24 && sev >= 7
	}},
	{ModPersistent, 1, func(in *Input, sev int) bool {
		return in.DurationHours != nil && *in.DurationHours >= 72 && *in.DurationHours < 336 && sev >= 5
	}},
	{ModChronicMild, -1, func(in *Input, sev int) bool {
		return in.DurationHours != nil && *in.DurationHours >= 336 && sev <= 4
	}},
}

// band covers scores in [min, max).
type band struct {
	id   string
	tier UrgencyTier
	min  int
	max  int
}

// bands is evaluated top-down. checkBands enforces that it is sorted
// descending, contiguous and covers every int, so exactly one band matches.
var bands = []band{
	{BandEmergency, TierEmergency, 11, math.MaxInt},
	{BandUrgent, TierUrgent, 7, 11},
	{BandRoutine, TierRoutine, math.MinInt, 7},
}

func init() {
	if err := checkBands(bands); err != nil {
		panic(err)
	}
}

func checkBands(bs []band) error {
	if len(bs) == 0 {
		return fmt.Errorf("decision: empty band table")
	}
	if bs[0].max != math.MaxInt {
		return fmt.Errorf("decision: band %s does not extend to +inf", bs[0].id)
	}
	if bs[len(bs)-1].min != math.MinInt {
		return fmt.Errorf("decision: band %s does not extend to -inf", bs[len(bs)-1].id)
	}
	for i, b := range bs {
		if b.min >= b.max {
			return fmt.Errorf("decision: band %s is empty [%d, %d)", b.id, b.min, b.max)
		}
		if i > 0 && bs[i-1].min != b.max {
			return fmt.Errorf("decision: bands %s and %s overlap or leave a gap", bs[i-1].id, b.id)
		}
	}
	return nil
}

// score computes the composite score and the ids of the modifiers applied.
func score(in *Input) (int, []string) {
	sev := unknownSeverity
	if in.Severity != nil {
		sev = *in.Severity
	}

	total := sev
	var applied []string
	for _, m := range modifiers {
		if m.applies(in, sev) {
			total += m.delta
			applied = append(applied, m.id)
		}
	}
	return total, applied
}

func bandFor(s int) band {
	for _, b := range bands {
		if s >= b.min && s < b.max {
			return b
		}
	}
	// unreachable: checkBands guarantees full coverage
	panic(fmt.Sprintf("decision: no band for score %d", s))
}

func ageIn(in *Input, lo, hi int) bool {
	return in.AgeYears != nil && *in.AgeYears >= lo && *in.AgeYears < hi
}
