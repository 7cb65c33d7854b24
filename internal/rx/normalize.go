package rx

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	dosage        = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s*(?:mg|mcg|µg|ug|g|ml|meq|iu|units?|%)(?:\s*/\s*(?:ml|dose|tab|hr|h))?\b|\b\d+(?:[.,]\d+)?%`)
	nonWord       = regexp.MustCompile(`[^a-z0-9 ]+`)
	bareNumber    = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// noiseWords are dosage forms, routes, schedules and salt suffixes that do
// not change which drug is meant.
var noiseWords = map[string]bool{
	"tablet": true, "tablets": true, "tab": true, "tabs": true,
	"capsule": true, "capsules": true, "cap": true, "caps": true,
	"oral": true, "po": true, "solution": true, "suspension": true, "syrup": true,
	"injection": true, "inj": true, "iv": true, "im": true, "cream": true, "patch": true,
	"er": true, "xr": true, "sr": true, "cr": true, "dr": true, "ec": true, "xl": true,
	"daily": true, "qd": true, "bid": true, "tid": true, "qid": true, "prn": true, "qhs": true,
	"once": true, "twice": true, "nightly": true,
	"hydrochloride": true, "hcl": true, "sodium": true, "besylate": true,
	"tartrate": true, "succinate": true, "mesylate": true, "maleate": true,
}

// Medication is one normalized input name.
type Medication struct {
	Input   string `json:"input"`
	Generic string `json:"generic"`
	Known   bool   `json:"known"`
}

// Normalize maps a free-form medication string to its generic name. Names
// the tables do not know are returned case-folded and cleaned, with Known
// false; Normalize never fails.
func Normalize(name string) Medication {
	m := Medication{Input: name}
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "-", " ")

	if g, ok := lookup(collapse(nonWord.ReplaceAllString(s, " "))); ok {
		m.Generic, m.Known = g, true
		return m
	}

	s = parenthetical.ReplaceAllString(s, " ")
	s = dosage.ReplaceAllString(s, " ")
	s = nonWord.ReplaceAllString(s, " ")
	s = bareNumber.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !noiseWords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		// the whole input was noise words; keep them rather than return nothing
		kept = words
	}
	s = strings.Join(kept, " ")

	if g, ok := lookup(s); ok {
		m.Generic, m.Known = g, true
		return m
	}
	m.Generic = s
	return m
}

func lookup(s string) (string, bool) {
	if g, ok := aliases[s]; ok {
		return g, true
	}
	if known[s] {
		return s, true
	}
	return "", false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
