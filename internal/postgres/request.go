package postgres

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

type requestStatsKey struct{}

// RequestStats accumulates the queries issued while serving one request.
type RequestStats struct {
	mu      sync.Mutex
	queries int
	errors  int
	total   time.Duration
}

// StatsSnapshot is a point-in-time copy of RequestStats.
type StatsSnapshot struct {
	Queries  int
	Errors   int
	Duration time.Duration
}

// Add records one query.
func (s *RequestStats) Add(dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.total += dur
	if err != nil {
		s.errors++
	}
}

// Snapshot returns the current counters.
func (s *RequestStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{Queries: s.queries, Errors: s.errors, Duration: s.total}
}

// WithRequestStats attaches an empty RequestStats to ctx.
func WithRequestStats(ctx context.Context) (context.Context, *RequestStats) {
	s := &RequestStats{}
	return context.WithValue(ctx, requestStatsKey{}, s), s
}

// RequestStatsFrom returns the RequestStats attached to ctx, if any.
func RequestStatsFrom(ctx context.Context) (*RequestStats, bool) {
	s, ok := ctx.Value(requestStatsKey{}).(*RequestStats)
	return s, ok
}

// WithHTTPMethod stores the HTTP method in the context for query metrics labelling.
func WithHTTPMethod(ctx context.Context, method string) context.Context {
	if method == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyHTTPMethod, method)
}

func httpMethodFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyHTTPMethod).(string); ok {
		return v
	}
	return ""
}

// TrackRequests returns middleware that labels queries with the request
// method and totals them per request. Requests that touched the database get
// one summary log line and span attributes; onDone, when set, sees the
// totals too.
func TrackRequests(onDone func(r *http.Request, s StatsSnapshot)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, stats := WithRequestStats(WithHTTPMethod(r.Context(), r.Method))
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)

			snap := stats.Snapshot()
			if snap.Queries == 0 {
				return
			}
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("db.query_count", snap.Queries),
				attribute.Int("db.error_count", snap.Errors),
				attribute.Float64("db.total_duration", snap.Duration.Seconds()),
			)
			log.FromContext(ctx).Info(ctx, "request db stats",
				"db.queries", snap.Queries,
				"db.errors", snap.Errors,
				"db.duration", snap.Duration.Seconds(),
			)
			if onDone != nil {
				onDone(r, snap)
			}
		})
	}
}
