// Package labs extracts structured analyte values from the plain text of a
// lab report.
//
// Input is whatever an upstream OCR or PDF step produced, so the extractor
// is tolerant: each line is tried on its own, lines it cannot read are
// skipped, and extraction never fails. An empty result means nothing was
// recognized. The same text always yields the same values.
package labs

import (
	"fmt"
	"iter"
	"strings"
)

// Flag classifies a value against its reference range.
type Flag string

const (
	// FlagNone means no reference range was known for the value.
	FlagNone        Flag = ""
	FlagNormal      Flag = "normal"
	FlagLow         Flag = "low"
	FlagHigh        Flag = "high"
	FlagUnparseable Flag = "unparseable-skip"
)

// Range is a reference range. Either bound may be open.
type Range struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
	// Source is "inline" when the range came from the report line and
	// "default" when it came from the built-in table.
	Source string `json:"source"`
}

// Classify places v relative to the range. Bounds are inclusive.
func (r Range) Classify(v float64) Flag {
	switch {
	case r.Low != nil && v < *r.Low:
		return FlagLow
	case r.High != nil && v > *r.High:
		return FlagHigh
	default:
		return FlagNormal
	}
}

// Value is one analyte read from a report line.
type Value struct {
	Name       string  `json:"name"`
	SourceName string  `json:"sourceName"`
	Value      float64 `json:"value"`
	Comparator string  `json:"comparator,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Range      *Range  `json:"range,omitempty"`
	Flag       Flag    `json:"flag"`
	Line       int     `json:"line"`
}

// Result is the output of Extract.
type Result struct {
	Values   []Value  `json:"values"`
	Warnings []string `json:"warnings"`
}

// Values lazily yields every value recognized in text, in line order.
func Values(text string) iter.Seq[Value] {
	return func(yield func(Value) bool) {
		scan(text, yield, func(string) {})
	}
}

// Extract reads every recognized value in text and collects human-readable
// warnings about lines that were only partly understood.
func Extract(text string) Result {
	res := Result{Values: []Value{}, Warnings: []string{}}
	if strings.TrimSpace(text) == "" {
		res.Warnings = append(res.Warnings, "no text extracted")
		return res
	}
	scan(text, func(v Value) bool {
		res.Values = append(res.Values, v)
		return true
	}, func(w string) {
		res.Warnings = append(res.Warnings, w)
	})
	if len(res.Values) == 0 {
		res.Warnings = append(res.Warnings, "no lab values recognized")
	}
	return res
}

func scan(text string, yield func(Value) bool, warn func(string)) {
	n := 0
	for line := range strings.Lines(text) {
		n++
		v, ok, w := parseLine(line)
		if w != "" {
			warn(fmt.Sprintf("line %d: %s", n, w))
		}
		if !ok {
			continue
		}
		v.Line = n
		if !yield(v) {
			return
		}
	}
}
