// Package rx checks a proposed prescription against a patient's current
// medications and pregnancy status using fixed interaction tables.
//
// Check is pure: the same request always yields the same report, and the
// pairwise result does not depend on argument order. Names the tables do
// not recognize are reported but never cause an error.
package rx

import (
	"cmp"
	"context"
	"slices"

	"github.com/linnemanlabs/go-core/log"
)

// Finding kinds.
const (
	KindInteraction = "interaction"
	KindPregnancy   = "pregnancy"
	KindDuplicate   = "duplicate_therapy"
)

// Request is the input to Check. An empty Candidate checks every pair of
// current medications instead.
type Request struct {
	CurrentMeds []string `json:"currentMeds"`
	Candidate   string   `json:"newPrescription"`
	Pregnant    bool     `json:"pregnant"`
}

// Finding is one detected problem. For drug pairs DrugA sorts before DrugB.
type Finding struct {
	Kind      string   `json:"kind"`
	DrugA     string   `json:"drugA"`
	DrugB     string   `json:"drugB,omitempty"`
	Condition string   `json:"condition,omitempty"`
	Severity  Severity `json:"severity"`
	Rationale string   `json:"rationale"`
}

// Report aggregates findings. OverallRisk is the highest finding severity,
// or SeverityNone when there are no findings.
type Report struct {
	Medications  []Medication `json:"medications"`
	Findings     []Finding    `json:"findings"`
	OverallRisk  Severity     `json:"overallRisk"`
	Unrecognized []string     `json:"unrecognized,omitempty"`
}

// Check evaluates req against the interaction, pregnancy and duplicate
// therapy tables.
func Check(req Request) Report {
	var current []Medication
	for _, raw := range req.CurrentMeds {
		if m := Normalize(raw); m.Generic != "" {
			current = append(current, m)
		}
	}
	var candidate *Medication
	if m := Normalize(req.Candidate); m.Generic != "" {
		candidate = &m
	}

	rep := Report{Medications: slices.Clone(current), Findings: []Finding{}}
	if candidate != nil {
		rep.Medications = append(rep.Medications, *candidate)
	}

	seen := make(map[Finding]bool)
	add := func(f Finding) {
		if !seen[f] {
			seen[f] = true
			rep.Findings = append(rep.Findings, f)
		}
	}

	if candidate != nil {
		for _, m := range current {
			checkPair(m, *candidate, add)
		}
	} else {
		for i := range current {
			for j := i + 1; j < len(current); j++ {
				checkPair(current[i], current[j], add)
			}
		}
	}

	if req.Pregnant {
		for _, m := range rep.Medications {
			if risk, ok := pregnancyRisks[m.Generic]; ok {
				add(Finding{
					Kind:      KindPregnancy,
					DrugA:     m.Generic,
					Condition: "pregnancy",
					Severity:  risk.severity,
					Rationale: risk.rationale,
				})
			}
		}
	}

	unrecognized := make(map[string]bool)
	for _, m := range rep.Medications {
		if !m.Known && !unrecognized[m.Generic] {
			unrecognized[m.Generic] = true
			rep.Unrecognized = append(rep.Unrecognized, m.Generic)
		}
	}
	slices.Sort(rep.Unrecognized)

	slices.SortFunc(rep.Findings, func(a, b Finding) int {
		if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DrugA, b.DrugA); c != 0 {
			return c
		}
		return cmp.Compare(a.DrugB, b.DrugB)
	})
	for _, f := range rep.Findings {
		rep.OverallRisk = max(rep.OverallRisk, f.Severity)
	}
	return rep
}

// checkPair screens one pair. A repeated name only counts as duplicate
// therapy when the tables know the drug.
func checkPair(mx, my Medication, add func(Finding)) {
	x, y := mx.Generic, my.Generic
	p := newPair(x, y)
	if x == y {
		if !mx.Known {
			return
		}
		add(Finding{
			Kind:      KindDuplicate,
			DrugA:     p.a,
			DrugB:     p.b,
			Severity:  SeverityModerate,
			Rationale: "same drug listed more than once",
		})
		return
	}
	if in, ok := interactions[p]; ok {
		add(Finding{
			Kind:      KindInteraction,
			DrugA:     p.a,
			DrugB:     p.b,
			Severity:  in.severity,
			Rationale: in.rationale,
		})
	}
	if cx, ok := classOf[x]; ok && cx == classOf[y] {
		add(Finding{
			Kind:      KindDuplicate,
			DrugA:     p.a,
			DrugB:     p.b,
			Severity:  SeverityModerate,
			Rationale: "duplicate " + cx + " therapy",
		})
	}
}

// CheckerHooks observe completed checks.
type CheckerHooks struct {
	OnCheck func(Report)
}

// Checker wraps Check with logging and metrics hooks.
type Checker struct {
	logger log.Logger
	hooks  CheckerHooks
}

// NewChecker returns a Checker. A nil logger discards output.
func NewChecker(logger log.Logger, hooks CheckerHooks) *Checker {
	if logger == nil {
		logger = log.Nop()
	}
	return &Checker{logger: logger, hooks: hooks}
}

// Check runs Check and reports the result to the hooks.
func (c *Checker) Check(ctx context.Context, req Request) Report {
	rep := Check(req)
	if c.hooks.OnCheck != nil {
		c.hooks.OnCheck(rep)
	}
	if len(rep.Unrecognized) > 0 {
		c.logger.Info(ctx, "unrecognized medication names", "count", len(rep.Unrecognized))
	}
	if rep.OverallRisk >= SeverityMajor {
		c.logger.Info(ctx, "high-risk prescription check",
			"overall_risk", rep.OverallRisk.String(),
			"findings", len(rep.Findings),
		)
	}
	return rep
}
