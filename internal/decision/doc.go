// Package decision turns collected intake data into a triage verdict.
//
// Red-flag rules are evaluated first and, when any match, force the emergency
// circuit breaker. Otherwise a composite score is mapped onto an ordered,
// non-overlapping band table. Evaluation is pure and deterministic. An
// optional Augmenter may append explanatory prose to a verdict but can never
// change its action, tier or rationale.
package decision
