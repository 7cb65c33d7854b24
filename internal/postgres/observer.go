package postgres

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// QueryObserver receives per-query timings (wired by main for Prometheus).
type QueryObserver interface {
	ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, method, route, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration) {
	f(ctx, method, route, outcome, dur)
}

type observerBox struct{ QueryObserver }

var queryObserver atomic.Pointer[observerBox]

// SetQueryObserver installs the process-wide query observer. nil removes it.
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&observerBox{QueryObserver: o})
}

// observe reports one finished query, labelled by request method and chi
// route when the query ran inside an HTTP request.
func observe(ctx context.Context, dur time.Duration, err error) {
	box := queryObserver.Load()
	if box == nil || dur <= 0 {
		return
	}

	method := httpMethodFromContext(ctx)
	if method == "" {
		method = "UNKNOWN"
	}
	route := "unknown"
	if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	box.ObserveQuery(ctx, method, route, outcome, dur)
}
