package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/validate"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu       sync.Mutex
	records  map[string]*Record
	users    map[string]string
	getErr   error
	setErr   error
	delErr   error
	deleted  []string
	setCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		records: make(map[string]*Record),
		users:   make(map[string]string),
	}
}

func (m *mockStore) Get(_ context.Context, id string) (*Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (m *mockStore) Set(_ context.Context, id string, r *Record, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.records[id] = r.Clone()
	m.users[id] = userID
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStore) SweepExpired(context.Context, time.Time) (int, error) { return 0, nil }

func (m *mockStore) Stats(context.Context, time.Time) (StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StoreStats{Active: len(m.records)}, nil
}

func (m *mockStore) record(id string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

// mockNotifier records emergency notifications.
type mockNotifier struct {
	mu    sync.Mutex
	calls []decision.Verdict
}

func (n *mockNotifier) NotifyEmergency(_ context.Context, _ string, v decision.Verdict) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, v)
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// blockingNotifier holds each notification until release is closed.
type blockingNotifier struct {
	release  chan struct{}
	deadline chan bool
}

func (n *blockingNotifier) NotifyEmergency(ctx context.Context, _ string, _ decision.Verdict) {
	_, ok := ctx.Deadline()
	n.deadline <- ok
	<-n.release
}

func newTestService(store Store, opts ...ServiceOption) *Service {
	return NewService(store, decision.NewEngine(log.Nop()), log.Nop(), opts...)
}

func TestNewService_PanicsOnNil(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"store":   func() { NewService(nil, decision.NewEngine(nil), log.Nop()) },
		"decider": func() { NewService(newMockStore(), nil, log.Nop()) },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestHandleTurn_FullConversation(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.HandleTurn(ctx, "", "user-1", Turn{Text: "sore throat and a mild cough"})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	if res.Status != StatusNeedsInput || res.Awaiting != SlotSeverity {
		t.Fatalf("turn 1: status %q awaiting %q", res.Status, res.Awaiting)
	}
	if res.Prompt == "" {
		t.Error("turn 1: expected prompt")
	}
	id := res.SessionID

	res, err = svc.HandleTurn(ctx, id, "user-1", Turn{Answers: []Answer{SeverityAnswer{Value: 3}}})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if res.Awaiting != SlotDuration {
		t.Fatalf("turn 2: awaiting %q", res.Awaiting)
	}

	res, err = svc.HandleTurn(ctx, id, "user-1", Turn{Text: "2 days"})
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	if res.Awaiting != SlotAge {
		t.Fatalf("turn 3: awaiting %q", res.Awaiting)
	}

	res, err = svc.HandleTurn(ctx, id, "user-1", Turn{Answers: []Answer{AgeAnswer{Years: 34}}})
	if err != nil {
		t.Fatalf("turn 4: %v", err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("turn 4: status %q", res.Status)
	}
	if res.Verdict == nil || res.Verdict.UrgencyTier != decision.TierRoutine {
		t.Errorf("turn 4: verdict %+v, want routine", res.Verdict)
	}
	if _, ok := store.record(id); ok {
		t.Error("completed session should be deleted")
	}
	if store.users[id] != "user-1" {
		t.Errorf("userID = %q", store.users[id])
	}
}

func TestHandleTurn_OutOfOrderDurationLeavesSeverityOpen(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.HandleTurn(ctx, "s-1", "", Turn{Text: "headache"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	res, err := svc.HandleTurn(ctx, "s-1", "", Turn{Text: "started 3 days ago"})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if res.Awaiting != SlotSeverity {
		t.Errorf("Awaiting = %q, want severity", res.Awaiting)
	}
	r, ok := store.record("s-1")
	if !ok {
		t.Fatal("expected stored session")
	}
	if r.Severity != nil {
		t.Errorf("Severity = %d, want unset", *r.Severity)
	}
}

func TestHandleTurn_EarlyRedFlag(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	n := &mockNotifier{}
	svc := newTestService(store, WithEarlyRedFlag(true), WithNotifier(n))

	res, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{
		Text:    "crushing chest pain and shortness of breath",
		Answers: []Answer{SeverityAnswer{Value: 3}},
	})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("Status = %q, want complete", res.Status)
	}
	if res.Verdict.SystemAction != decision.ActionEmergencyBreaker {
		t.Errorf("SystemAction = %q", res.Verdict.SystemAction)
	}
	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n.count() != 1 {
		t.Errorf("notifier calls = %d, want 1", n.count())
	}
	if store.setCalls != 0 {
		t.Errorf("Set calls = %d, want 0", store.setCalls)
	}
}

func TestHandleTurn_SlowNotifierDoesNotBlockVerdict(t *testing.T) {
	t.Parallel()

	n := &blockingNotifier{release: make(chan struct{}), deadline: make(chan bool, 1)}
	svc := newTestService(newMockStore(), WithEarlyRedFlag(true), WithNotifier(n))

	ctx, cancel := context.WithCancel(context.Background())
	res, err := svc.HandleTurn(ctx, "s-1", "", Turn{Text: "crushing chest pain and shortness of breath"})
	cancel()
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if res.Verdict == nil || !res.Verdict.IsBreaker() {
		t.Fatalf("verdict = %+v, want breaker", res.Verdict)
	}

	select {
	case ok := <-n.deadline:
		if !ok {
			t.Error("notification context has no deadline")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was not called")
	}

	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	if err := svc.Drain(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain with pending notification = %v, want deadline exceeded", err)
	}

	close(n.release)
	if err := svc.Drain(context.Background()); err != nil {
		t.Errorf("Drain after release: %v", err)
	}
}

func TestHandleTurn_NoEarlyExitWhenDisabled(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	res, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{Text: "crushing chest pain and shortness of breath"})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if res.Status != StatusNeedsInput {
		t.Errorf("Status = %q, want needs_input", res.Status)
	}
}

func TestHandleTurn_RedFlagAtCompletion(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	res, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{
		Text: "crushing chest pain and shortness of breath",
		Answers: []Answer{
			SeverityAnswer{Value: 3},
			DurationAnswer{Hours: 1},
			AgeAnswer{Years: 50},
		},
	})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if res.Verdict == nil || !res.Verdict.IsBreaker() {
		t.Errorf("verdict = %+v, want breaker", res.Verdict)
	}
}

func TestHandleTurn_RedactsBeforePersist(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{Text: "rash, email me at pat@example.com"})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	r, ok := store.record("s-1")
	if !ok {
		t.Fatal("expected stored session")
	}
	if strings.Contains(r.FreeText, "pat@example.com") {
		t.Errorf("stored FreeText not redacted: %q", r.FreeText)
	}
}

func TestHandleTurn_ValidationLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.HandleTurn(ctx, "s-1", "", Turn{Text: "cough"}); err != nil {
		t.Fatal(err)
	}
	before := store.setCalls

	_, err := svc.HandleTurn(ctx, "s-1", "", Turn{Answers: []Answer{SeverityAnswer{Value: 42}}})
	if !validate.Is(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if store.setCalls != before {
		t.Error("store written on validation failure")
	}

	_, err = svc.HandleTurn(ctx, strings.Repeat("x", 200), "", Turn{Text: "cough"})
	if !validate.Is(err) {
		t.Errorf("long session id: err = %v, want validation error", err)
	}
}

func TestHandleTurn_StoreUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		getErr   error
		setErr   error
		failOpen bool
		wantErr  bool
	}{
		{"read fails closed", errors.New("conn refused"), nil, false, true},
		{"write fails closed", nil, errors.New("conn refused"), false, true},
		{"read fails open", errors.New("conn refused"), nil, true, false},
		{"write fails open", nil, errors.New("conn refused"), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newMockStore()
			store.getErr = tt.getErr
			store.setErr = tt.setErr
			svc := newTestService(store, WithFailOpen(tt.failOpen))

			res, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{Text: "cough"})
			if tt.wantErr {
				if !errors.Is(err, ErrStoreUnavailable) {
					t.Fatalf("err = %v, want ErrStoreUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("HandleTurn: %v", err)
			}
			if !res.Degraded {
				t.Error("expected Degraded result")
			}
			if res.Awaiting != SlotSeverity {
				t.Errorf("Awaiting = %q, want severity", res.Awaiting)
			}
		})
	}
}

func TestHandleTurn_DeleteFailureStillReturnsVerdict(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.delErr = errors.New("timeout")
	svc := newTestService(store)

	res, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{
		Text:    "itchy eyes",
		Answers: []Answer{SkipAnswer{Slot: SlotSeverity}, SkipAnswer{Slot: SlotDuration}, SkipAnswer{Slot: SlotAge}},
	})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if res.Verdict == nil {
		t.Fatal("expected verdict")
	}
}

func TestHandleTurn_ExpiredSessionRestarts(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)

	res, err := svc.HandleTurn(context.Background(), "gone", "", Turn{Answers: []Answer{SeverityAnswer{Value: 5}}})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if res.SessionID != "gone" || res.Awaiting != SlotSymptoms {
		t.Errorf("res = %+v, want new session awaiting symptoms", res)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.HandleTurn(ctx, "s-1", "", Turn{Text: "cough"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(ctx, "s-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.record("s-1"); ok {
		t.Error("session still present")
	}
	if err := svc.Clear(ctx, ""); !validate.Is(err) {
		t.Errorf("Clear(\"\") = %v, want validation error", err)
	}

	store.delErr = errors.New("down")
	if err := svc.Clear(ctx, "s-1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Clear = %v, want ErrStoreUnavailable", err)
	}
}

func TestMetricsHooks(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := newMockStore()
	svc := newTestService(store, WithServiceHooks(m.Hooks()), WithEarlyRedFlag(true), WithFailOpen(true))
	ctx := context.Background()

	if _, err := svc.HandleTurn(ctx, "a", "", Turn{Text: "cough"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleTurn(ctx, "b", "", Turn{Text: "I want to kill myself"}); err != nil {
		t.Fatal(err)
	}
	store.getErr = errors.New("down")
	if _, err := svc.HandleTurn(ctx, "c", "", Turn{Text: "cough"}); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("needs_input")); got != 2 {
		t.Errorf("needs_input turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("complete")); got != 1 {
		t.Errorf("complete turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EarlyExitsTotal); got != 1 {
		t.Errorf("early exits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("get", "true")); got != 1 {
		t.Errorf("store errors = %v, want 1", got)
	}
}

func TestHandleTurn_UsesClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	svc := newTestService(store, WithClock(func() time.Time { return fixed }))

	if _, err := svc.HandleTurn(context.Background(), "s-1", "", Turn{Text: "cough"}); err != nil {
		t.Fatal(err)
	}
	r, _ := store.record("s-1")
	if !r.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", r.UpdatedAt, fixed)
	}
}

func TestHandleTurn_CreatesSpan(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	svc := newTestService(newMockStore())
	if _, err := svc.HandleTurn(context.Background(), "span-1", "", Turn{Text: "mild cough"}); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if _, err := svc.HandleTurn(context.Background(), "span-1", "", Turn{Answers: []Answer{SeverityAnswer{Value: 42}}}); err == nil {
		t.Fatal("expected validation error")
	}

	var turns []sdktrace.ReadOnlySpan
	for _, s := range exporter.GetSpans().Snapshots() {
		if s.Name() == "intake.HandleTurn" {
			turns = append(turns, s)
		}
	}
	if len(turns) != 2 {
		t.Fatalf("intake.HandleTurn spans = %d, want 2", len(turns))
	}

	attrs := make(map[string]any)
	for _, a := range turns[0].Attributes() {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	if attrs["session.id"] != "span-1" {
		t.Errorf("session.id = %v, want span-1", attrs["session.id"])
	}
	if attrs["intake.status"] != string(StatusNeedsInput) {
		t.Errorf("intake.status = %v, want needs_input", attrs["intake.status"])
	}
	for _, a := range turns[0].Attributes() {
		if strings.Contains(a.Value.Emit(), "cough") {
			t.Errorf("span attribute %s leaks symptom text", a.Key)
		}
	}

	if turns[1].Status().Code.String() != "Error" {
		t.Errorf("failed turn span status = %v, want Error", turns[1].Status().Code)
	}
}
