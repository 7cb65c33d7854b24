// Package pgstore provides a PostgreSQL implementation of intake.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/carepath/internal/intake"
)

var tracer = otel.Tracer("github.com/linnemanlabs/carepath/internal/intake/pgstore")

//go:embed schema.sql
var schema string

// Store persists intake sessions in PostgreSQL. Expiry is evaluated against
// the injected clock rather than the database clock so that replicas agree
// with the process that wrote the row.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides intake.DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithClock overrides the clock used to stamp and expire records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New applies the schema on pool and returns a ready Store. The caller owns the pool.
func New(ctx context.Context, pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s := &Store{
		pool: pool,
		ttl:  intake.DefaultTTL,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Get returns the session state. An expired row is deleted and reported absent.
func (s *Store) Get(ctx context.Context, id string) (*intake.Record, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	var raw []byte
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT state, expires_at FROM intake_sessions WHERE session_id = $1`, id,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, spanErr(span, fmt.Errorf("select session: %w", err))
	}

	now := s.now()
	if !now.Before(expiresAt) {
		// conditional so a concurrent Set that slid the expiry is kept
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM intake_sessions WHERE session_id = $1 AND expires_at <= $2`, id, now,
		); err != nil {
			// absent either way; the sweep retries the removal
			span.RecordError(err)
		}
		span.SetAttributes(attribute.Bool("intake.expired", true))
		return nil, false, nil
	}

	var r intake.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, spanErr(span, fmt.Errorf("decode session state: %w", err))
	}
	return &r, true, nil
}

// Set upserts the full record and slides expires_at to now + TTL.
func (s *Store) Set(ctx context.Context, id string, r *intake.Record, userID string) error {
	ctx, span := startSpan(ctx, "pgstore.Set", "UPSERT")
	defer span.End()

	b, err := json.Marshal(r)
	if err != nil {
		return spanErr(span, fmt.Errorf("encode session state: %w", err))
	}
	now := s.now()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO intake_sessions (session_id, user_id, state, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			user_id    = EXCLUDED.user_id,
			state      = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`,
		id, userID, b, now, now.Add(s.ttl))
	if err != nil {
		return spanErr(span, fmt.Errorf("upsert session: %w", err))
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := startSpan(ctx, "pgstore.Delete", "DELETE")
	defer span.End()

	if _, err := s.pool.Exec(ctx, `DELETE FROM intake_sessions WHERE session_id = $1`, id); err != nil {
		return spanErr(span, fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// SweepExpired deletes every session expired at now.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.SweepExpired", "DELETE")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM intake_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, spanErr(span, fmt.Errorf("sweep sessions: %w", err))
	}
	span.SetAttributes(attribute.Int64("db.rows", tag.RowsAffected()))
	return int(tag.RowsAffected()), nil
}

// Stats counts active and expired-but-present sessions at now.
func (s *Store) Stats(ctx context.Context, now time.Time) (intake.StoreStats, error) {
	ctx, span := startSpan(ctx, "pgstore.Stats", "SELECT")
	defer span.End()

	var st intake.StoreStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE expires_at > $1),
			COUNT(*) FILTER (WHERE expires_at <= $1)
		FROM intake_sessions`, now,
	).Scan(&st.Active, &st.Expired)
	if err != nil {
		return intake.StoreStats{}, spanErr(span, fmt.Errorf("count sessions: %w", err))
	}
	return st, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
