// Package sessionstore opens the intake session store a configuration selects.
package sessionstore

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carepath/internal/cfg"
	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/intake/memstore"
	"github.com/linnemanlabs/carepath/internal/intake/pgstore"
	"github.com/linnemanlabs/carepath/internal/intake/sqlitestore"
	"github.com/linnemanlabs/carepath/internal/postgres"
)

// Open builds the session store selected by c. The returned close function
// releases the backing pool or file and is non-nil whenever err is nil.
func Open(ctx context.Context, L log.Logger, c *cfg.Config) (intake.Store, func(), error) {
	switch c.StoreKind() {
	case cfg.StorePostgres:
		pool, err := postgres.NewPool(ctx, c.DatabaseURL, postgres.PoolConfig{
			MaxConns:  int32(c.DBMaxConns), //nolint:gosec // G115: bounded to 0..1000 by Validate
			SlowQuery: c.DBSlowQuery,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		s, err := pgstore.New(ctx, pool, pgstore.WithTTL(c.SessionTTL))
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgstore init: %w", err)
		}
		L.Info(ctx, "using postgres session store")
		return s, pool.Close, nil

	case cfg.StoreSQLite:
		s, err := sqlitestore.New(ctx, c.SQLitePath, sqlitestore.WithTTL(c.SessionTTL), sqlitestore.WithLogger(L))
		if err != nil {
			return nil, nil, fmt.Errorf("sqlitestore init: %w", err)
		}
		L.Info(ctx, "using sqlite session store", "path", c.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				L.Error(context.Background(), err, "close sqlite store")
			}
		}, nil

	default:
		L.Info(ctx, "using in-memory session store (no database-url or sqlite-path configured)")
		return memstore.New(memstore.WithTTL(c.SessionTTL)), func() {}, nil
	}
}
