package intake

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	severityOutOf = regexp.MustCompile(`\b(\d{1,2})\s*(?:/|out of)\s*10\b`)
	bareNumber    = regexp.MustCompile(`^(\d{1,3})$`)
	durationUnit  = regexp.MustCompile(`\b(?:(\d+(?:\.\d+)?)\s*|(an?|one|two|three|four|five|six|seven|eight|nine|ten|twelve)\s+)(minutes?|mins?|hours?|hrs?|h|days?|d|weeks?|wks?|w|months?)\b`)
	ageYears      = regexp.MustCompile(`\b(\d{1,3})\s*(?:years?|yrs?|y/?o)\b|\b(?:i am|im|i'm|aged?)\s+(\d{1,3})\b`)
)

var wordNumbers = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "twelve": 12,
}

var unitHours = map[string]float64{
	"minute": 1.0 / 60, "minutes": 1.0 / 60, "min": 1.0 / 60, "mins": 1.0 / 60,
	"hour": 1, "hours": 1, "hr": 1, "hrs": 1, "h": 1,
	"day": 24, "days": 24, "d": 24,
	"week": 168, "weeks": 168, "wk": 168, "wks": 168, "w": 168,
	"month": 720, "months": 720,
}

var relativeDurations = []struct {
	phrase string
	hours  float64
}{
	{"since yesterday", 24},
	{"since last night", 12},
	{"since this morning", 6},
	{"since today", 6},
	{"just now", 0},
	{"since last week", 168},
}

// parseSlot extracts a value for slot from free text. Values outside the
// slot's valid range are rejected rather than clamped. Severity and age are
// only read from text that names them ("7/10", "45 years") or is a bare
// number, and never from text that states a duration.
func parseSlot(slot Slot, text string) (Answer, bool) {
	low := strings.ToLower(strings.TrimSpace(text))
	switch slot {
	case SlotSeverity:
		if mentionsDuration(low) {
			return nil, false
		}
		return parseSeverity(low)
	case SlotDuration:
		return parseDuration(low)
	case SlotAge:
		if mentionsDuration(low) {
			return nil, false
		}
		return parseAge(low)
	}
	return nil, false
}

func mentionsDuration(low string) bool {
	if durationUnit.MatchString(low) {
		return true
	}
	for _, rd := range relativeDurations {
		if strings.Contains(low, rd.phrase) {
			return true
		}
	}
	return false
}

func parseSeverity(low string) (Answer, bool) {
	raw := ""
	if m := severityOutOf.FindStringSubmatch(low); m != nil {
		raw = m[1]
	} else if m := bareNumber.FindStringSubmatch(low); m != nil {
		raw = m[1]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	a := SeverityAnswer{Value: n}
	if a.validate() != nil {
		return nil, false
	}
	return a, true
}

func parseDuration(low string) (Answer, bool) {
	if m := durationUnit.FindStringSubmatch(low); m != nil {
		qty, ok := wordNumbers[m[2]]
		if !ok {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, false
			}
			qty = v
		}
		a := DurationAnswer{Hours: qty * unitHours[m[3]]}
		if a.validate() != nil {
			return nil, false
		}
		return a, true
	}
	for _, rd := range relativeDurations {
		if strings.Contains(low, rd.phrase) {
			return DurationAnswer{Hours: rd.hours}, true
		}
	}
	return nil, false
}

func parseAge(low string) (Answer, bool) {
	raw := ""
	if m := ageYears.FindStringSubmatch(low); m != nil {
		raw = m[1]
		if raw == "" {
			raw = m[2]
		}
	} else if m := bareNumber.FindStringSubmatch(low); m != nil {
		raw = m[1]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	a := AgeAnswer{Years: n}
	if a.validate() != nil {
		return nil, false
	}
	return a, true
}
