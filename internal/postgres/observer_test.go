package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Not parallel: the observer is process-wide.
func TestObserve_LabelsFromRequest(t *testing.T) {
	defer SetQueryObserver(nil)

	type call struct{ method, route, outcome string }
	var calls []call
	SetQueryObserver(QueryObserverFunc(func(_ context.Context, method, route, outcome string, _ time.Duration) {
		calls = append(calls, call{method, route, outcome})
	}))

	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{"/api/v1/intake/turns"}
	ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rc)
	ctx = WithHTTPMethod(ctx, "POST")

	observe(ctx, time.Millisecond, nil)
	observe(context.Background(), time.Millisecond, errors.New("boom"))
	observe(ctx, 0, nil)

	want := []call{
		{"POST", "/api/v1/intake/turns", "ok"},
		{"UNKNOWN", "unknown", "error"},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v, want %+v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}

	SetQueryObserver(nil)
	observe(ctx, time.Millisecond, nil)
	if len(calls) != len(want) {
		t.Error("observer called after removal")
	}
}
