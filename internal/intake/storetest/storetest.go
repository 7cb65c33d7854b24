// Package storetest is a conformance suite shared by intake.Store implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/carepath/internal/intake"
)

// Clock is a manually advanced clock for injection into stores under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock fixed at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory returns an empty store using clk and intake.DefaultTTL.
type Factory func(t *testing.T, clk *Clock) intake.Store

// Run exercises the intake.Store contract against stores built by newStore.
// Session ids are prefixed per subtest so stores backed by shared databases
// can be reused.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		clk := NewClock(start)
		s := newStore(t, clk)

		sev := 6
		in := &intake.Record{FreeText: "cough", Severity: &sev, Awaiting: intake.SlotDuration, UpdatedAt: start}
		if err := s.Set(ctx, "set-get", in, "user-1"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, ok, err := s.Get(ctx, "set-get")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !ok {
			t.Fatal("Get ok=false, want true")
		}
		if got.FreeText != "cough" || got.Severity == nil || *got.Severity != 6 || got.Awaiting != intake.SlotDuration {
			t.Errorf("Get = %+v", got)
		}

		// returned record is a copy
		*got.Severity = 1
		again, _, _ := s.Get(ctx, "set-get")
		if *again.Severity != 6 {
			t.Error("mutating returned record changed the stored one")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		_, ok, err := s.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok {
			t.Error("Get ok=true for missing session")
		}
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		clk := NewClock(start)
		s := newStore(t, clk)

		if err := s.Set(ctx, "ttl", &intake.Record{FreeText: "x"}, ""); err != nil {
			t.Fatalf("Set: %v", err)
		}
		clk.Advance(29 * time.Minute)
		if _, ok, err := s.Get(ctx, "ttl"); err != nil || !ok {
			t.Fatalf("at T+29m: ok=%v err=%v, want present", ok, err)
		}
		clk.Advance(2 * time.Minute)
		if _, ok, err := s.Get(ctx, "ttl"); err != nil || ok {
			t.Fatalf("at T+31m: ok=%v err=%v, want absent", ok, err)
		}
	})

	t.Run("LazyExpiryRemoves", func(t *testing.T) {
		clk := NewClock(start)
		s := newStore(t, clk)

		if err := s.Set(ctx, "lazy", &intake.Record{FreeText: "x"}, ""); err != nil {
			t.Fatalf("Set: %v", err)
		}
		clk.Advance(31 * time.Minute)
		if _, ok, _ := s.Get(ctx, "lazy"); ok {
			t.Fatal("expired session returned")
		}
		n, err := s.SweepExpired(ctx, clk.Now())
		if err != nil {
			t.Fatalf("SweepExpired: %v", err)
		}
		if n != 0 {
			t.Errorf("SweepExpired = %d, want 0 after lazy removal", n)
		}
	})

	t.Run("SlidingWindow", func(t *testing.T) {
		clk := NewClock(start)
		s := newStore(t, clk)

		for range 3 {
			if err := s.Set(ctx, "slide", &intake.Record{FreeText: "x"}, ""); err != nil {
				t.Fatalf("Set: %v", err)
			}
			clk.Advance(20 * time.Minute)
		}
		// last write was 20m ago, 60m after the first
		if _, ok, _ := s.Get(ctx, "slide"); !ok {
			t.Error("session expired despite sliding writes")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t, NewClock(start))

		sev := 3
		_ = s.Set(ctx, "ow", &intake.Record{FreeText: "a", Severity: &sev}, "")
		_ = s.Set(ctx, "ow", &intake.Record{FreeText: "b"}, "")
		got, _, _ := s.Get(ctx, "ow")
		if got.FreeText != "b" || got.Severity != nil {
			t.Errorf("Get = %+v, want full overwrite", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t, NewClock(start))

		_ = s.Set(ctx, "del", &intake.Record{FreeText: "x"}, "")
		if err := s.Delete(ctx, "del"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "del"); ok {
			t.Error("deleted session returned")
		}
		if err := s.Delete(ctx, "del"); err != nil {
			t.Errorf("Delete missing: %v", err)
		}
	})

	t.Run("SweepAndStats", func(t *testing.T) {
		clk := NewClock(start)
		s := newStore(t, clk)

		n, err := s.SweepExpired(ctx, clk.Now())
		if err != nil || n != 0 {
			t.Fatalf("empty sweep = %d, %v; want 0, nil", n, err)
		}

		for i := range 3 {
			_ = s.Set(ctx, fmt.Sprintf("old-%d", i), &intake.Record{FreeText: "x"}, "")
		}
		clk.Advance(20 * time.Minute)
		_ = s.Set(ctx, "fresh", &intake.Record{FreeText: "x"}, "")
		clk.Advance(15 * time.Minute)

		st, err := s.Stats(ctx, clk.Now())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if st.Active != 1 || st.Expired != 3 {
			t.Errorf("Stats = %+v, want {Active:1 Expired:3}", st)
		}

		n, err = s.SweepExpired(ctx, clk.Now())
		if err != nil {
			t.Fatalf("SweepExpired: %v", err)
		}
		if n != 3 {
			t.Errorf("SweepExpired = %d, want 3", n)
		}
		n, err = s.SweepExpired(ctx, clk.Now())
		if err != nil || n != 0 {
			t.Errorf("second sweep = %d, %v; want 0, nil", n, err)
		}
		if _, ok, _ := s.Get(ctx, "fresh"); !ok {
			t.Error("sweep removed an active session")
		}
	})

	t.Run("GetRacingSweep", func(t *testing.T) {
		clk := NewClock(start)
		s := newStore(t, clk)

		for i := range 20 {
			_ = s.Set(ctx, fmt.Sprintf("race-%d", i), &intake.Record{FreeText: "x"}, "")
		}
		clk.Advance(time.Hour)

		var wg sync.WaitGroup
		errs := make(chan error, 21)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SweepExpired(ctx, clk.Now()); err != nil {
				errs <- err
			}
		}()
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, ok, err := s.Get(ctx, fmt.Sprintf("race-%d", i))
				if err != nil {
					errs <- err
					return
				}
				if ok {
					errs <- fmt.Errorf("race-%d: expired session returned", i)
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
	})
}
