package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/intake/storetest"
)

func TestStoreConformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(_ *testing.T, clk *storetest.Clock) intake.Store {
		return New(WithClock(clk.Now))
	})
}

func TestStore_CustomTTL(t *testing.T) {
	t.Parallel()

	clk := storetest.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(WithClock(clk.Now), WithTTL(time.Minute))
	ctx := context.Background()

	if err := s.Set(ctx, "a", &intake.Record{FreeText: "x"}, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clk.Advance(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "a"); !ok {
		t.Error("expected present before TTL")
	}
	clk.Advance(time.Second)
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("expected absent at TTL")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", n)
			_ = s.Set(ctx, id, &intake.Record{FreeText: "x"}, "")
			_, _, _ = s.Get(ctx, id)
			_, _ = s.Stats(ctx, time.Now())
		}(i)
	}

	wg.Wait()

	st, _ := s.Stats(ctx, time.Now())
	if st.Active != 50 {
		t.Errorf("Active = %d, want 50", st.Active)
	}
}
