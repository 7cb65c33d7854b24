package decision

import (
	"strings"
	"unicode"
)

// Red-flag rule ids, in evaluation priority order.
const (
	RuleCardioRespiratory = "RF_CARDIORESPIRATORY"
	RuleChestPainRadiates = "RF_CHEST_PAIN_RADIATING"
	RuleStroke            = "RF_STROKE_PATTERN"
	RuleThunderclap       = "RF_THUNDERCLAP_HEADACHE"
	RuleAnaphylaxis       = "RF_ANAPHYLAXIS"
	RuleUnconscious       = "RF_UNCONSCIOUS_OR_SEIZURE"
	RuleMajorBleeding     = "RF_MAJOR_BLEEDING"
	RuleSelfHarm          = "RF_SELF_HARM"
	RuleObstetric         = "RF_OBSTETRIC"
	RuleMaxSeverityAcute  = "RF_MAX_SEVERITY_ACUTE"
)

// maxSeverityAcuteHours is the onset window in which a 10/10 severity alone
// trips the breaker.
const maxSeverityAcuteHours = 6.0

var (
	chestPain = phrases(
		"chest pain", "chest pressure", "chest tightness", "tight chest", "tightness in my chest",
		"crushing chest", "pain in my chest", "pressure in my chest", "heart attack",
	)
	breathing = phrases(
		"shortness of breath", "short of breath", "cant breathe", "can't breathe", "cannot breathe",
		"difficulty breathing", "trouble breathing", "hard to breathe", "breathless", "struggling to breathe",
		"gasping", "out of breath",
	)
	radiation = phrases(
		"left arm", "into my arm", "down my arm", "jaw", "cold sweat", "sweating", "clammy",
	)
	stroke = phrases(
		"face drooping", "facial droop", "drooping face", "face is drooping", "slurred speech", "slurring",
		"sudden numbness", "numb on one side", "one side of my body", "one sided weakness", "one-sided weakness",
		"arm weakness", "cant move my arm", "can't move my arm", "sudden confusion", "cant speak", "can't speak",
		"trouble speaking", "sudden vision loss", "lost vision", "loss of vision",
	)
	thunderclap = phrases(
		"worst headache of my life", "worst headache ever", "thunderclap headache", "sudden severe headache",
	)
	anaphylaxis = phrases(
		"throat swelling", "throat is swelling", "throat closing", "throat is closing", "swollen tongue",
		"tongue swelling", "lips swelling", "anaphylaxis", "anaphylactic",
	)
	unconscious = phrases(
		"unconscious", "unresponsive", "passed out", "fainted", "not breathing", "seizure", "seizures",
		"convulsing", "convulsion", "convulsions",
	)
	bleeding = phrases(
		"vomiting blood", "throwing up blood", "coughing up blood", "blood in vomit", "heavy bleeding",
		"bleeding heavily", "wont stop bleeding", "won't stop bleeding", "severe bleeding", "black tarry stool",
	)
	selfHarm = phrases(
		"suicidal", "kill myself", "end my life", "want to die", "hurt myself", "self harm", "self-harm",
		"overdose", "overdosed",
	)
	obstetric = phrases(
		"vaginal bleeding", "bleeding", "severe abdominal pain", "severe stomach pain", "water broke",
		"reduced fetal movement", "baby not moving", "baby isnt moving", "baby isn't moving",
	)
)

type redFlagRule struct {
	id    string
	match func(in *Input, t normText) bool
}

// redFlagRules is evaluated in order; the order is the rationale order.
var redFlagRules = []redFlagRule{
	{RuleCardioRespiratory, func(_ *Input, t normText) bool { return t.any(chestPain) && t.any(breathing) }},
	{RuleChestPainRadiates, func(_ *Input, t normText) bool { return t.any(chestPain) && t.any(radiation) }},
	{RuleStroke, func(_ *Input, t normText) bool { return t.any(stroke) }},
	{RuleThunderclap, func(_ *Input, t normText) bool { return t.any(thunderclap) }},
	{RuleAnaphylaxis, func(_ *Input, t normText) bool { return t.any(anaphylaxis) }},
	{RuleUnconscious, func(_ *Input, t normText) bool { return t.any(unconscious) }},
	{RuleMajorBleeding, func(_ *Input, t normText) bool { return t.any(bleeding) }},
	{RuleSelfHarm, func(_ *Input, t normText) bool { return t.any(selfHarm) }},
	{RuleObstetric, func(in *Input, t normText) bool {
		return in.Pregnant != nil && *in.Pregnant && t.any(obstetric)
	}},
	{RuleMaxSeverityAcute, func(in *Input, _ normText) bool {
		return in.Severity != nil && *in.Severity == 10 &&
			in.DurationHours != nil && *in.DurationHours <= maxSeverityAcuteHours
	}},
}

// Screen returns the ids of every red-flag rule matching in, in priority order.
// An empty result means no emergency short-circuit applies.
func Screen(in Input) []string {
	t := normalize(in.Text)
	var matched []string
	for _, r := range redFlagRules {
		if r.match(&in, t) {
			matched = append(matched, r.id)
		}
	}
	return matched
}

// RedFlagRuleIDs lists every red-flag rule id in priority order.
func RedFlagRuleIDs() []string {
	ids := make([]string, len(redFlagRules))
	for i, r := range redFlagRules {
		ids[i] = r.id
	}
	return ids
}

// normText is lowercase text with every non-alphanumeric run collapsed to a
// single space and padded with spaces, so phrase lookups match whole words.
type normText string

func normalize(s string) normText {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if r == '\'' || r == '’' {
			// "can't" and "cant" normalize the same way
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return normText(b.String())
}

type phraseSet []normText

func phrases(ps ...string) phraseSet {
	out := make(phraseSet, 0, len(ps))
	for _, p := range ps {
		out = append(out, normalize(p))
	}
	return out
}

func (t normText) any(set phraseSet) bool {
	for _, p := range set {
		if strings.Contains(string(t), string(p)) {
			return true
		}
	}
	return false
}
