// Package lifecycle sweeps expired intake sessions and reports aggregate
// session statistics.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/carepath/internal/cache"
	"github.com/linnemanlabs/carepath/internal/intake"
)

const (
	DefaultInterval       = time.Minute
	DefaultStatsFreshness = 5 * time.Second
)

// SweepResult reports one sweep.
type SweepResult struct {
	DeletedCount int `json:"deletedCount"`
}

// Stats is a snapshot of session counts plus sweep counters. Session counts
// may be up to the configured freshness window old.
type Stats struct {
	ActiveSessions   int        `json:"activeSessions"`
	ExpiredPending   int        `json:"expiredPending"`
	Sweeps           int64      `json:"sweeps"`
	SweepErrors      int64      `json:"sweepErrors"`
	TotalDeleted     int64      `json:"totalDeleted"`
	LastSweepAt      *time.Time `json:"lastSweepAt,omitempty"`
	LastSweepDeleted int        `json:"lastSweepDeleted"`
}

// Hooks observe manager activity.
type Hooks struct {
	OnSweep func(deleted int, duration float64, err error)
	OnStats func(intake.StoreStats)
}

// Manager runs periodic sweeps against a Store. Sweep is safe to call
// concurrently with the worker and with itself.
type Manager struct {
	store     intake.Store
	logger    log.Logger
	now       func() time.Time
	interval  time.Duration
	freshness time.Duration
	hooks     Hooks
	ticker    func(time.Duration) (<-chan time.Time, func())

	stats *cache.Value[intake.StoreStats]

	mu           sync.Mutex
	sweeps       int64
	sweepErrors  int64
	totalDeleted int64
	lastSweepAt  time.Time
	lastDeleted  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to decide expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithInterval sets how often Run sweeps.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithStatsFreshness sets how long Stats may serve cached session counts.
func WithStatsFreshness(d time.Duration) Option {
	return func(m *Manager) { m.freshness = d }
}

// WithHooks sets callbacks for sweeps and stats loads.
func WithHooks(h Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

// NewManager returns a Manager for store. It panics if store is nil.
func NewManager(store intake.Store, logger log.Logger, opts ...Option) *Manager {
	if store == nil {
		panic(xerrors.New("lifecycle.NewManager: store is nil"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	m := &Manager{
		store:     store,
		logger:    logger,
		now:       time.Now,
		interval:  DefaultInterval,
		freshness: DefaultStatsFreshness,
		ticker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, o := range opts {
		o(m)
	}
	m.stats = cache.New(m.loadStats, m.freshness, cache.WithClock[intake.StoreStats](m.now))
	return m
}

func (m *Manager) loadStats(ctx context.Context) (intake.StoreStats, error) {
	st, err := m.store.Stats(ctx, m.now())
	if err != nil {
		return intake.StoreStats{}, fmt.Errorf("%w: stats: %w", intake.ErrStoreUnavailable, err)
	}
	if m.hooks.OnStats != nil {
		m.hooks.OnStats(st)
	}
	return st, nil
}

// Sweep removes every session expired at the current time. It is idempotent:
// a sweep with nothing to remove returns a zero result and no error.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	began := time.Now()
	start := m.now()
	n, err := m.store.SweepExpired(ctx, start)
	elapsed := time.Since(began).Seconds()
	if m.hooks.OnSweep != nil {
		m.hooks.OnSweep(n, elapsed, err)
	}

	m.mu.Lock()
	m.sweeps++
	if err != nil {
		m.sweepErrors++
	} else {
		m.totalDeleted += int64(n)
		m.lastSweepAt = start
		m.lastDeleted = n
	}
	m.mu.Unlock()

	if err != nil {
		return SweepResult{}, fmt.Errorf("%w: sweep: %w", intake.ErrStoreUnavailable, err)
	}
	m.stats.Invalidate()
	if n > 0 {
		m.logger.Info(ctx, "swept expired sessions", "deleted", n)
	}
	return SweepResult{DeletedCount: n}, nil
}

// Stats returns session counts and sweep counters.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	st, err := m.stats.Get(ctx)
	if err != nil {
		return Stats{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := Stats{
		ActiveSessions:   st.Active,
		ExpiredPending:   st.Expired,
		Sweeps:           m.sweeps,
		SweepErrors:      m.sweepErrors,
		TotalDeleted:     m.totalDeleted,
		LastSweepDeleted: m.lastDeleted,
	}
	if !m.lastSweepAt.IsZero() {
		at := m.lastSweepAt
		out.LastSweepAt = &at
	}
	return out, nil
}

// Run sweeps every interval until ctx is done. Sweep failures are logged
// and the worker keeps running.
func (m *Manager) Run(ctx context.Context) {
	tick, stop := m.ticker(m.interval)
	defer stop()

	m.logger.Info(ctx, "session sweeper started", "interval", m.interval.String())
	for {
		select {
		case <-tick:
			if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error(ctx, err, "session sweep failed")
			}
		case <-ctx.Done():
			m.logger.Info(ctx, "session sweeper stopped", "reason", context.Cause(ctx).Error())
			return
		}
	}
}

// Start runs Run in a new goroutine and returns a channel closed when it exits.
func (m *Manager) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	return done
}
