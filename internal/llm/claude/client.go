// Package claude explains triage verdicts in plain language through the
// Claude Messages API. Output is prose only; it never changes a verdict.
package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/intake"
)

const (
	defaultMaxTokens = 400
	requestTimeout   = 20 * time.Second
)

var tracer = otel.Tracer("github.com/linnemanlabs/carepath/internal/llm/claude")

const systemPrompt = `You write short, calm explanations of a symptom triage result for the patient who received it.
The triage level and recommended action have already been decided by a clinical rules engine and are final.
Never suggest a lower or higher level of care than the one given, never offer a diagnosis, and never contradict the result.
If the action is an emergency, tell the patient to call emergency services or go to the nearest emergency department now.
Reply in at most four sentences of plain text.`

// Client implements decision.Augmenter.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Claude client for model. Extra request options are applied
// after the API key, so tests can point the client at a local server.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(requestTimeout),
	}
	return &Client{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

// Augment returns v with Prose set to Explain's text. No other field is touched.
func (c *Client) Augment(ctx context.Context, in decision.Input, v decision.Verdict) (decision.Verdict, error) {
	prose, err := c.Explain(ctx, in, v)
	if err != nil {
		return v, err
	}
	v.Prose = prose
	return v, nil
}

// Explain returns a short patient-facing explanation of v.
func (c *Client) Explain(ctx context.Context, in decision.Input, v decision.Verdict) (string, error) {
	ctx, span := tracer.Start(ctx, "claude.Explain", trace.WithAttributes(
		attribute.String("gen_ai.system", "anthropic"),
		attribute.String("gen_ai.request.model", c.model),
		attribute.String("triage.urgency_tier", string(v.UrgencyTier)),
	))
	defer span.End()

	msg, err := c.client.Messages.New(ctx, buildParams(c.model, c.maxTokens, in, v))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("claude: create message: %w", err)
	}
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", msg.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", msg.Usage.OutputTokens),
		attribute.String("gen_ai.response.finish_reason", string(msg.StopReason)),
	)

	text := textOf(msg)
	if text == "" {
		err := errors.New("claude: response contained no text")
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func buildParams(model string, maxTokens int64, in decision.Input, v decision.Verdict) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(in, v))),
		},
	}
}

// userPrompt describes the case. Symptom text is redacted of contact
// details and identifiers before it leaves the process.
func userPrompt(in decision.Input, v decision.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Triage result: action=%s, urgency=%s\n", v.SystemAction, v.UrgencyTier)
	fmt.Fprintf(&b, "Matched rules: %s\n", strings.Join(v.Rationale, ", "))
	if in.AgeYears != nil {
		fmt.Fprintf(&b, "Age: %d\n", *in.AgeYears)
	}
	if in.SexAtBirth != "" {
		fmt.Fprintf(&b, "Sex at birth: %s\n", in.SexAtBirth)
	}
	if in.Pregnant != nil && *in.Pregnant {
		b.WriteString("Pregnant: yes\n")
	}
	if in.Severity != nil {
		fmt.Fprintf(&b, "Self-reported severity: %d/10\n", *in.Severity)
	}
	if in.DurationHours != nil {
		fmt.Fprintf(&b, "Duration: %g hours\n", *in.DurationHours)
	}
	fmt.Fprintf(&b, "Symptoms as described: %s\n", intake.RedactPII(in.Text))
	return b.String()
}

func textOf(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, strings.TrimSpace(block.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}
