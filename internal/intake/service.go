package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/validate"
)

var tracer = otel.Tracer("github.com/linnemanlabs/carepath/internal/intake")

const (
	maxSessionIDLen = 128
	notifyTimeout   = 15 * time.Second
)

// TurnStatus is the outcome of a single turn.
type TurnStatus string

const (
	// StatusNeedsInput means a slot is still outstanding; Prompt asks for it.
	StatusNeedsInput TurnStatus = "needs_input"

	// StatusComplete means the record was handed to the decision engine.
	StatusComplete TurnStatus = "complete"
)

// TurnResult is returned to the caller after each turn.
type TurnResult struct {
	SessionID string            `json:"sessionId"`
	Status    TurnStatus        `json:"status"`
	Awaiting  Slot              `json:"awaiting,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Verdict   *decision.Verdict `json:"verdict,omitempty"`
	// Degraded is set when the store failed and the turn proceeded fail-open.
	Degraded bool `json:"degraded,omitempty"`
}

// Decider produces a verdict from completed intake data.
type Decider interface {
	Decide(ctx context.Context, in decision.Input) (decision.Verdict, error)
}

// Notifier is told about emergency circuit-breaker verdicts. Calls run in
// the background under a bounded context; the notifier reports its own
// failures.
type Notifier interface {
	NotifyEmergency(ctx context.Context, sessionID string, v decision.Verdict)
}

// ServiceHooks are optional callbacks for instrumentation.
type ServiceHooks struct {
	OnTurn       func(status TurnStatus, duration float64)
	OnStoreError func(op string, failOpen bool)
	OnEarlyExit  func()
}

// Service is the business boundary for intake conversations.
type Service struct {
	store        Store
	decider      Decider
	logger       log.Logger
	notifier     Notifier
	failOpen     bool
	earlyRedFlag bool
	now          func() time.Time
	hooks        ServiceHooks

	notifying sync.WaitGroup
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFailOpen makes store failures start a fresh session (on read) or
// continue unsaved (on write) instead of failing the turn. Either way the
// in-progress intake may be lost.
func WithFailOpen(on bool) ServiceOption {
	return func(s *Service) { s.failOpen = on }
}

// WithEarlyRedFlag stops asking for further slots as soon as the collected
// data trips a red-flag rule.
func WithEarlyRedFlag(on bool) ServiceOption {
	return func(s *Service) { s.earlyRedFlag = on }
}

// WithNotifier sets the emergency notifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithServiceHooks installs instrumentation callbacks.
func WithServiceHooks(h ServiceHooks) ServiceOption {
	return func(s *Service) { s.hooks = h }
}

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an intake service. It panics if store or decider is nil.
func NewService(store Store, decider Decider, logger log.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic(xerrors.New("intake.NewService: store is nil"))
	}
	if decider == nil {
		panic(xerrors.New("intake.NewService: decider is nil"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:   store,
		decider: decider,
		logger:  logger,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HandleTurn applies one turn to a session. An empty sessionID starts a new
// session with a fresh id; an unknown or expired id starts a new session
// under that id. Validation failures are returned as validate errors and
// leave the stored session untouched.
func (s *Service) HandleTurn(ctx context.Context, sessionID, userID string, t Turn) (*TurnResult, error) {
	start := time.Now()

	if len(sessionID) > maxSessionIDLen {
		return nil, validate.Errorf("sessionId", "longer than %d characters", maxSessionIDLen)
	}
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	ctx, span := tracer.Start(ctx, "intake.HandleTurn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	L := s.logger.With("session_id", sessionID)

	res, err := s.handleTurn(ctx, L, sessionID, userID, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("intake.status", string(res.Status)),
		attribute.String("intake.awaiting", string(res.Awaiting)),
	)
	if s.hooks.OnTurn != nil {
		s.hooks.OnTurn(res.Status, time.Since(start).Seconds())
	}
	return res, nil
}

func (s *Service) handleTurn(ctx context.Context, L log.Logger, sessionID, userID string, t Turn) (*TurnResult, error) {
	res := &TurnResult{SessionID: sessionID}

	prev, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !s.failOpen {
			s.storeError("get", false)
			return nil, fmt.Errorf("%w: get session: %w", ErrStoreUnavailable, err)
		}
		s.storeError("get", true)
		L.Warn(ctx, "session store read failed, starting fresh intake", "error", err)
		res.Degraded = true
		prev, ok = nil, false
	}
	if !ok {
		prev = nil
	}

	rec, err := Merge(prev, t)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.now()

	complete := rec.Awaiting == SlotNone
	if !complete && s.earlyRedFlag && rec.FreeText != "" && len(decision.Screen(rec.Input())) > 0 {
		complete = true
		if s.hooks.OnEarlyExit != nil {
			s.hooks.OnEarlyExit()
		}
	}

	if complete {
		return s.complete(ctx, L, res, rec)
	}

	stored := rec.Clone()
	stored.FreeText = RedactPII(stored.FreeText)
	if err := s.store.Set(ctx, sessionID, stored, userID); err != nil {
		if !s.failOpen {
			s.storeError("set", false)
			return nil, fmt.Errorf("%w: save session: %w", ErrStoreUnavailable, err)
		}
		s.storeError("set", true)
		L.Warn(ctx, "session store write failed, continuing unsaved", "error", err)
		res.Degraded = true
	}

	res.Status = StatusNeedsInput
	res.Awaiting = rec.Awaiting
	res.Prompt = Prompt(rec.Awaiting)

	L.Info(ctx, "intake turn recorded", "record", rec)
	return res, nil
}

func (s *Service) complete(ctx context.Context, L log.Logger, res *TurnResult, rec *Record) (*TurnResult, error) {
	v, err := s.decider.Decide(ctx, rec.Input())
	if err != nil {
		return nil, err
	}

	// the session is consumed once decided
	if err := s.store.Delete(ctx, res.SessionID); err != nil {
		s.storeError("delete", true)
		L.Warn(ctx, "failed to delete completed session, it will expire", "error", err)
	}

	if v.IsBreaker() && s.notifier != nil {
		s.notify(ctx, res.SessionID, v)
	}

	res.Status = StatusComplete
	res.Verdict = &v

	L.Info(ctx, "intake complete",
		"system_action", v.SystemAction,
		"urgency_tier", v.UrgencyTier,
		"rationale", v.Rationale,
	)
	return res, nil
}

// notify dispatches the emergency notification without holding up the turn.
func (s *Service) notify(ctx context.Context, sessionID string, v decision.Verdict) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.notifying.Go(func() {
		defer cancel()
		s.notifier.NotifyEmergency(nctx, sessionID, v)
	})
}

// Drain waits for in-flight emergency notifications, or until ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifying.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear deletes a session explicitly.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return validate.Errorf("sessionId", "required")
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.storeError("delete", false)
		return fmt.Errorf("%w: delete session: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) storeError(op string, failOpen bool) {
	if s.hooks.OnStoreError != nil {
		s.hooks.OnStoreError(op, failOpen)
	}
}
