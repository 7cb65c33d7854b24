// Package postgres holds the shared pgx pool constructor, the query tracer
// used by the postgres-backed intake store, and per-request query totals.
package postgres

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

type ctxKey string

const ctxKeyHTTPMethod ctxKey = "http.method"

type queryInfoKey struct{}

// queryInfo is carried from TraceQueryStart to TraceQueryEnd.
type queryInfo struct {
	sql      string
	argCount int
	start    time.Time
	caller   string
	handler  string
}

// loggingTracer wraps another pgx.QueryTracer (otelpgx in production) and
// adds timing, metrics and a structured log line per query. Bind arguments
// are never logged: they carry serialized intake state.
type loggingTracer struct {
	inner pgx.QueryTracer
	// minDuration suppresses log lines for successful queries faster than
	// it. Zero logs every query.
	minDuration time.Duration
}

func wrapQueryTracer(inner pgx.QueryTracer, minDuration time.Duration) pgx.QueryTracer {
	return loggingTracer{inner: inner, minDuration: minDuration}
}

func (t loggingTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	qi := &queryInfo{
		sql:      data.SQL,
		argCount: len(data.Args),
		start:    time.Now(),
	}
	qi.caller, qi.handler = findDBCallerAndHandler()

	// inner tracer first so its span is the current one
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		if qi.caller != "" {
			span.SetAttributes(attribute.String("db.caller", qi.caller))
		}
		if qi.handler != "" {
			span.SetAttributes(attribute.String("db.handler", qi.handler))
		}
	}
	return context.WithValue(ctx, queryInfoKey{}, qi)
}

func (t loggingTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	qi, _ := ctx.Value(queryInfoKey{}).(*queryInfo)
	if qi == nil {
		qi = &queryInfo{}
	}
	var dur time.Duration
	if !qi.start.IsZero() {
		dur = time.Since(qi.start)
	}

	if s, ok := RequestStatsFrom(ctx); ok {
		s.Add(dur, data.Err)
	}
	observe(ctx, dur, data.Err)

	if data.Err == nil && t.minDuration > 0 && dur < t.minDuration {
		return
	}

	L := log.FromContext(ctx)
	fields := queryLogFields(qi, dur, data)
	if data.Err != nil {
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

func queryLogFields(qi *queryInfo, dur time.Duration, data pgx.TraceQueryEndData) []any {
	fields := []any{
		"db.statement", qi.sql,
		"db.args.count", qi.argCount,
		"db.duration", dur.Seconds(),
	}

	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		if op, _, _ := strings.Cut(tag, " "); op != "" {
			fields = append(fields, "db.operation.name", strings.ToUpper(op))
		}
		fields = append(fields, "pg.command_tag", tag, "db.rows", data.CommandTag.RowsAffected())
	}
	if qi.caller != "" {
		fields = append(fields, "db.caller", qi.caller)
	}
	if qi.handler != "" {
		fields = append(fields, "db.handler", qi.handler)
	}

	var pgErr *pgconn.PgError
	if errors.As(data.Err, &pgErr) {
		fields = append(fields,
			"db.error_code", pgErr.Code,
			"db.error_constraint", pgErr.ConstraintName,
		)
	}
	return fields
}

// findDBCallerAndHandler walks the stack to find:
//   - caller: the store method actually issuing the query
//   - handler: the first frame above the store (service or HTTP handler)
func findDBCallerAndHandler() (caller, handler string) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		fr, more := frames.Next()
		if !more {
			break
		}

		fn := fr.Function
		if isNoiseFrame(fn) {
			continue
		}
		if caller == "" {
			caller = shortenFuncName(fn)
			continue
		}
		if isStoreFrame(fn) {
			continue
		}
		handler = shortenFuncName(fn)
		break
	}
	return caller, handler
}

// isNoiseFrame reports runtime, driver and tracer frames.
func isNoiseFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.Contains(fn, "github.com/jackc/pgx/v5") ||
		strings.Contains(fn, "github.com/exaring/otelpgx") ||
		strings.Contains(fn, "loggingTracer.TraceQuery")
}

// isStoreFrame reports whether fn belongs to the pool helpers or the
// intake postgres store, which are never the interesting handler frame.
func isStoreFrame(fn string) bool {
	return strings.Contains(fn, "github.com/linnemanlabs/carepath/internal/postgres.") ||
		strings.Contains(fn, "github.com/linnemanlabs/carepath/internal/intake/pgstore.")
}

func shortenFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 && i+1 < len(fn) {
		fn = fn[i+1:]
	}
	if dot := strings.Index(fn, "."); dot >= 0 && dot+1 < len(fn) {
		fn = fn[dot+1:]
	}
	return fn
}
