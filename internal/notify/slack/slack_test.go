package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carepath/internal/decision"
)

var breaker = decision.Verdict{
	SystemAction: decision.ActionEmergencyBreaker,
	UrgencyTier:  decision.TierEmergency,
	Rationale:    []string{decision.RuleCardioRespiratory, decision.RuleMajorBleeding},
	Prose:        "Call emergency services now.",
}

func TestSend_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Send(context.Background(), Alert{
		SessionID: "01JN123",
		Verdict:   breaker,
		At:        time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}
	// header, divider, fields, divider, context = 5 blocks
	if len(blocks) != 5 {
		t.Errorf("blocks count = %d, want 5", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Emergency circuit breaker") || !strings.Contains(headerText, "\U0001f534") {
		t.Errorf("header text = %q", headerText)
	}

	raw, _ := json.Marshal(got)
	payload := string(raw)
	for _, want := range []string{decision.RuleCardioRespiratory, decision.RuleMajorBleeding, "01JN123", "2026-02-26 14:23 UTC"} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %q", want)
		}
	}
	if strings.Contains(payload, breaker.Prose) {
		t.Error("payload must not carry prose")
	}
}

func TestSend_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.Send(context.Background(), Alert{Verdict: breaker}); err != nil {
		t.Fatalf("Send with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Send(context.Background(), Alert{SessionID: "01JN789", Verdict: breaker})
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}

func TestNotifyEmergency_SwallowsErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	n.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	n.NotifyEmergency(context.Background(), "s1", breaker)

	if calls.Load() != 1 {
		t.Errorf("webhook calls = %d, want 1", calls.Load())
	}
}

func TestTierEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier decision.UrgencyTier
		want string
	}{
		{decision.TierEmergency, "\U0001f534"},
		{decision.TierUrgent, "\U0001f7e1"},
		{decision.TierRoutine, "\U0001f7e2"},
		{"", "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			t.Parallel()
			if got := tierEmoji(tt.tier); got != tt.want {
				t.Errorf("tierEmoji(%q) = %q, want %q", tt.tier, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("01JN123", "RF_CARDIORESPIRATORY")
	f.Add("", "")
	f.Add("<@U123> mention", "*bold* _italic_ ~strike~")
	f.Add("id\x00\x01\x02", "rule\nline")
	f.Add(strings.Repeat("A", 5000), strings.Repeat("x", 10000))

	f.Fuzz(func(t *testing.T, sessionID, rule string) {
		a := Alert{
			SessionID: sessionID,
			Verdict: decision.Verdict{
				SystemAction: decision.ActionEmergencyBreaker,
				UrgencyTier:  decision.TierEmergency,
				Rationale:    []string{rule},
			},
			At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		data, err := json.Marshal(buildMessage(a))
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}
		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 5 {
			t.Fatalf("blocks count = %d, want 5", len(blocks))
		}
	})
}
