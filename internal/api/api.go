// Package api exposes the triage operations over HTTP.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/carepath/internal/authmw"
	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/lifecycle"
	"github.com/linnemanlabs/carepath/internal/rx"
)

// IntakeService runs the intake conversation.
type IntakeService interface {
	HandleTurn(ctx context.Context, sessionID, userID string, t intake.Turn) (*intake.TurnResult, error)
	Clear(ctx context.Context, sessionID string) error
}

// Decider evaluates a complete input in one shot.
type Decider interface {
	Decide(ctx context.Context, in decision.Input) (decision.Verdict, error)
}

// RxChecker screens a prescription against current medications.
type RxChecker interface {
	Check(ctx context.Context, req rx.Request) rx.Report
}

// SessionManager sweeps and reports on stored sessions.
type SessionManager interface {
	Sweep(ctx context.Context) (lifecycle.SweepResult, error)
	Stats(ctx context.Context) (lifecycle.Stats, error)
}

// Deps are the services behind the routes. All are required.
type Deps struct {
	Intake   IntakeService
	Decider  Decider
	Rx       RxChecker
	Sessions SessionManager
}

// Hooks are optional callbacks for instrumentation.
type Hooks struct {
	OnError     func(route string, status int)
	OnLabValues func(flag string, n int)
	OnAuthFail  func(reason string)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	deps       Deps
	adminToken string
	hooks      Hooks
}

// Option configures an API.
type Option func(*API)

// WithAdminToken protects the session sweep route with a bearer token.
func WithAdminToken(token string) Option {
	return func(a *API) { a.adminToken = token }
}

// WithHooks installs instrumentation callbacks.
func WithHooks(h Hooks) Option {
	return func(a *API) { a.hooks = h }
}

// New creates the HTTP API. It panics if any dependency is missing.
func New(logger log.Logger, deps Deps, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	switch {
	case deps.Intake == nil:
		panic(xerrors.New("api.New: intake service is required"))
	case deps.Decider == nil:
		panic(xerrors.New("api.New: decider is required"))
	case deps.Rx == nil:
		panic(xerrors.New("api.New: rx checker is required"))
	case deps.Sessions == nil:
		panic(xerrors.New("api.New: session manager is required"))
	}
	a := &API{logger: logger, deps: deps}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/intake/turns", a.handleTurn)
		r.Delete("/intake/sessions/{id}", a.handleClearSession)
		r.Post("/decisions", a.handleDecide)
		r.Post("/prescriptions/check", a.handleRxCheck)
		r.Post("/reports/extract", a.handleExtract)

		r.Get("/sessions/stats", a.handleStats)
		r.With(authmw.AdminToken(a.adminToken, authmw.Options{
			OnReject: a.onAuthReject,
		})).Post("/sessions/sweep", a.handleSweep)
	})
}
