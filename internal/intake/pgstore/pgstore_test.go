package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/intake/storetest"
	"github.com/linnemanlabs/carepath/internal/postgres"
)

func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("CAREPATH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CAREPATH_TEST_DATABASE_URL not set, skipping integration test")
	}
	pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestStoreConformance(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T, clk *storetest.Clock) intake.Store {
		s, err := New(ctx, pool, WithClock(clk.Now))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := pool.Exec(ctx, `TRUNCATE intake_sessions`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}

func TestSetStoresUserID(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()

	s, err := New(ctx, pool)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(ctx, "pg-user-id") })

	if err := s.Set(ctx, "pg-user-id", &intake.Record{FreeText: "x"}, "user-42"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var userID string
	if err := pool.QueryRow(ctx, `SELECT user_id FROM intake_sessions WHERE session_id = $1`, "pg-user-id").Scan(&userID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("user_id = %q, want user-42", userID)
	}
}
