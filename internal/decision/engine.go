package decision

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carepath/internal/validate"
)

// Augmenter attaches non-authoritative prose to an already decided verdict.
// It receives a copy of the verdict and returns it with Prose set; the engine
// panics with SafetyViolation if any other field comes back changed.
type Augmenter interface {
	Augment(ctx context.Context, in Input, v Verdict) (Verdict, error)
}

// EngineHooks are optional callbacks for instrumentation.
type EngineHooks struct {
	OnVerdict func(v Verdict)
	OnAugment func(duration float64, err error)
}

// Engine evaluates verdicts. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	augmenter Augmenter
	logger    log.Logger
	hooks     EngineHooks
}

// Option configures an Engine.
type Option func(*Engine)

// WithAugmenter enables prose augmentation. Leaving it unset disables augmentation;
// it is never enabled implicitly.
func WithAugmenter(a Augmenter) Option {
	return func(e *Engine) { e.augmenter = a }
}

// WithHooks installs instrumentation callbacks.
func WithHooks(h EngineHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// NewEngine creates a decision engine.
func NewEngine(logger log.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	e := &Engine{logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Decide validates in, evaluates it and, if configured, augments the result with prose.
// Augmentation failures are logged and leave Prose empty.
func (e *Engine) Decide(ctx context.Context, in Input) (Verdict, error) {
	if err := Validate(in); err != nil {
		return Verdict{}, err
	}

	v := Evaluate(in)
	if e.hooks.OnVerdict != nil {
		e.hooks.OnVerdict(v)
	}

	if e.augmenter == nil {
		return v, nil
	}
	return e.augment(ctx, in, v), nil
}

func (e *Engine) augment(ctx context.Context, in Input, v Verdict) Verdict {
	start := time.Now()

	out, err := e.augmenter.Augment(ctx, in, v.clone())
	if e.hooks.OnAugment != nil {
		e.hooks.OnAugment(time.Since(start).Seconds(), err)
	}
	if err != nil {
		e.logger.Warn(ctx, "verdict augmentation failed, returning verdict without prose",
			"error", err,
			"system_action", v.SystemAction,
			"urgency_tier", v.UrgencyTier,
		)
		return v
	}

	out.Prose = strings.TrimSpace(out.Prose)
	mustPreserve(v, out)
	return out
}

// Evaluate computes the verdict for in without validation or augmentation.
// Identical input always yields an identical verdict.
func Evaluate(in Input) Verdict {
	if flags := Screen(in); len(flags) > 0 {
		return Verdict{
			SystemAction: ActionEmergencyBreaker,
			UrgencyTier:  TierEmergency,
			Rationale:    flags,
		}
	}

	s, applied := score(&in)
	b := bandFor(s)

	rationale := make([]string, 0, len(applied)+1)
	rationale = append(rationale, b.id)
	rationale = append(rationale, applied...)

	return Verdict{
		SystemAction: ActionNormal,
		UrgencyTier:  b.tier,
		Rationale:    rationale,
		Score:        &s,
	}
}

// Validate checks the ranges of every supplied field. Text is required.
func Validate(in Input) error {
	if strings.TrimSpace(in.Text) == "" {
		return validate.Errorf("text", "symptom description is required")
	}
	if in.Severity != nil {
		if err := validate.IntRange("severity", *in.Severity, 1, 10); err != nil {
			return err
		}
	}
	if in.AgeYears != nil {
		if err := validate.IntRange("ageYears", *in.AgeYears, 0, 130); err != nil {
			return err
		}
	}
	if in.DurationHours != nil {
		d := *in.DurationHours
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return validate.Errorf("durationHours", "must be a non-negative number of hours")
		}
	}
	if in.SexAtBirth != "" && !in.SexAtBirth.Valid() {
		return validate.Errorf("sexAtBirth", "unknown value %q", in.SexAtBirth)
	}
	return nil
}
