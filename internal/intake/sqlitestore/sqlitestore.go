// Package sqlitestore provides a SQLite implementation of intake.Store for
// single-node deployments.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	_ "modernc.org/sqlite"

	"github.com/linnemanlabs/carepath/internal/intake"
)

var tracer = otel.Tracer("github.com/linnemanlabs/carepath/internal/intake/sqlitestore")

const schema = `
PRAGMA busy_timeout = 5000;
CREATE TABLE IF NOT EXISTS intake_sessions (
	session_id TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	state_json TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_intake_sessions_expires ON intake_sessions(expires_at);
`

const (
	maxRetries = 3
	baseDelay  = 50 * time.Millisecond
)

// Store persists intake sessions in a SQLite database file.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger log.Logger
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

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New opens (creating if needed) the database at path and applies the schema.
func New(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		ttl:    intake.DefaultTTL,
		now:    time.Now,
		logger: log.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the session state. An expired row is deleted and reported absent.
func (s *Store) Get(ctx context.Context, id string) (*intake.Record, bool, error) {
	ctx, span := startSpan(ctx, "sqlitestore.Get", "SELECT")
	defer span.End()

	var stateJSON string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json, expires_at FROM intake_sessions WHERE session_id = ?`, id,
	).Scan(&stateJSON, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, spanErr(span, fmt.Errorf("select session: %w", err))
	}

	now := s.now()
	if now.UnixMilli() >= expiresAt {
		// conditional delete so a concurrent Set that slid the expiry wins
		err := s.retry(ctx, "lazy expire", func() error {
			_, err := s.db.ExecContext(ctx,
				`DELETE FROM intake_sessions WHERE session_id = ? AND expires_at <= ?`, id, now.UnixMilli())
			return err
		})
		if err != nil {
			s.logger.Warn(ctx, "lazy expiry delete failed, sweep will remove it", "error", err)
		}
		return nil, false, nil
	}

	var r intake.Record
	if err := json.Unmarshal([]byte(stateJSON), &r); err != nil {
		return nil, false, spanErr(span, fmt.Errorf("decode session state: %w", err))
	}
	return &r, true, nil
}

// Set upserts the full record and slides expires_at to now + TTL.
func (s *Store) Set(ctx context.Context, id string, r *intake.Record, userID string) error {
	ctx, span := startSpan(ctx, "sqlitestore.Set", "UPSERT")
	defer span.End()

	b, err := json.Marshal(r)
	if err != nil {
		return spanErr(span, fmt.Errorf("encode session state: %w", err))
	}
	now := s.now()

	err = s.retry(ctx, "set", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO intake_sessions (session_id, user_id, state_json, updated_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				user_id = excluded.user_id,
				state_json = excluded.state_json,
				updated_at = excluded.updated_at,
				expires_at = excluded.expires_at`,
			id, userID, string(b), now.UnixMilli(), now.Add(s.ttl).UnixMilli())
		return err
	})
	if err != nil {
		return spanErr(span, fmt.Errorf("upsert session: %w", err))
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := startSpan(ctx, "sqlitestore.Delete", "DELETE")
	defer span.End()

	err := s.retry(ctx, "delete", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM intake_sessions WHERE session_id = ?`, id)
		return err
	})
	if err != nil {
		return spanErr(span, fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// SweepExpired deletes every session expired at now.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := startSpan(ctx, "sqlitestore.SweepExpired", "DELETE")
	defer span.End()

	var n int64
	err := s.retry(ctx, "sweep", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM intake_sessions WHERE expires_at <= ?`, now.UnixMilli())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, spanErr(span, fmt.Errorf("sweep sessions: %w", err))
	}
	span.SetAttributes(attribute.Int64("db.rows", n))
	return int(n), nil
}

// Stats counts active and expired-but-present sessions at now.
func (s *Store) Stats(ctx context.Context, now time.Time) (intake.StoreStats, error) {
	ctx, span := startSpan(ctx, "sqlitestore.Stats", "SELECT")
	defer span.End()

	var st intake.StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM intake_sessions`, now.UnixMilli(), now.UnixMilli(),
	).Scan(&st.Active, &st.Expired)
	if err != nil {
		return intake.StoreStats{}, spanErr(span, fmt.Errorf("count sessions: %w", err))
	}
	return st, nil
}

// retry runs fn, retrying with exponential backoff while SQLite reports the
// database busy or locked.
func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := range maxRetries {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		s.logger.Warn(ctx, "sqlite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxRetries, err)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
