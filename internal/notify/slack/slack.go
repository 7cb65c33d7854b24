// Package slack posts emergency triage notifications to Slack via incoming
// webhooks. Messages carry the session id and matched rule ids only; symptom
// text never leaves the service through this channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carepath/internal/decision"
)

const httpTimeout = 10 * time.Second

// Alert is one emergency notification.
type Alert struct {
	SessionID string
	Verdict   decision.Verdict
	At        time.Time
}

// Notifier sends emergency alerts to a Slack webhook. It implements intake.Notifier.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
	now        func() time.Time
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// NotifyEmergency sends an alert for a circuit-breaker verdict and logs any failure.
func (n *Notifier) NotifyEmergency(ctx context.Context, sessionID string, v decision.Verdict) {
	if err := n.Send(ctx, Alert{SessionID: sessionID, Verdict: v, At: n.now()}); err != nil {
		n.logger.Error(ctx, err, "emergency notification failed", "session_id", sessionID)
	}
}

// Send posts an alert to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, a Alert) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(a))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(a Alert) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(a),
			{"type": "divider"},
			fieldsBlock(a),
			{"type": "divider"},
			contextBlock(a),
		},
	}
}

func headerBlock(a Alert) map[string]any {
	title := "Triage escalation"
	if a.Verdict.IsBreaker() {
		title = "Emergency circuit breaker"
	}
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s", tierEmoji(a.Verdict.UrgencyTier), title),
		},
	}
}

func fieldsBlock(a Alert) map[string]any {
	rules := strings.Join(a.Verdict.Rationale, ", ")
	if rules == "" {
		rules = "_none_"
	}
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Action:* %s", a.Verdict.SystemAction),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Urgency:* %s", a.Verdict.UrgencyTier),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Rules:* %s", rules),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(a Alert) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("carepath • session %s • %s", a.SessionID, a.At.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func tierEmoji(tier decision.UrgencyTier) string {
	switch tier {
	case decision.TierEmergency:
		return "\U0001f534" // red circle
	case decision.TierUrgent:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}
