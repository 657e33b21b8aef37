package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records streaming and tool-loop measurements through the global
// meter provider. With no meter provider installed the instruments are no-ops,
// so recording is always safe.
type Metrics struct {
	ttft             metric.Float64Histogram
	tokensPerSecond  metric.Float64Histogram
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	cachedTokens     metric.Int64Counter
	toolCalls        metric.Int64Counter
	loopIterations   metric.Int64Counter
}

// NewMetrics creates the instrument set used by the streaming core.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/sweetpotato0/aura")

	ttft, err := meter.Float64Histogram("llm.time_to_first_token",
		metric.WithDescription("Seconds from request start to first streamed token"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create ttft histogram: %w", err)
	}
	tps, err := meter.Float64Histogram("llm.tokens_per_second",
		metric.WithDescription("Decode speed reported by the provider"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create tokens-per-second histogram: %w", err)
	}
	prompt, err := meter.Int64Counter("llm.prompt_tokens",
		metric.WithDescription("Prompt tokens consumed"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create prompt token counter: %w", err)
	}
	completion, err := meter.Int64Counter("llm.completion_tokens",
		metric.WithDescription("Completion tokens produced"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create completion token counter: %w", err)
	}
	cached, err := meter.Int64Counter("llm.cached_tokens",
		metric.WithDescription("Prompt tokens served from provider cache"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create cached token counter: %w", err)
	}
	calls, err := meter.Int64Counter("llm.tool_calls",
		metric.WithDescription("Tool calls executed by the loop"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create tool call counter: %w", err)
	}
	iters, err := meter.Int64Counter("llm.loop_iterations",
		metric.WithDescription("Tool loop iterations run"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create iteration counter: %w", err)
	}

	return &Metrics{
		ttft:             ttft,
		tokensPerSecond:  tps,
		promptTokens:     prompt,
		completionTokens: completion,
		cachedTokens:     cached,
		toolCalls:        calls,
		loopIterations:   iters,
	}, nil
}

// RecordTTFT records the time-to-first-token for one provider call.
func (m *Metrics) RecordTTFT(ctx context.Context, seconds float64, provider string) {
	if m == nil || seconds <= 0 {
		return
	}
	m.ttft.Record(ctx, seconds, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordTokens records usage counters for one provider call.
func (m *Metrics) RecordTokens(ctx context.Context, prompt, completion, cached int64, provider string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	if prompt > 0 {
		m.promptTokens.Add(ctx, prompt, attrs)
	}
	if completion > 0 {
		m.completionTokens.Add(ctx, completion, attrs)
	}
	if cached > 0 {
		m.cachedTokens.Add(ctx, cached, attrs)
	}
}

// RecordDecodeSpeed records provider-reported tokens per second.
func (m *Metrics) RecordDecodeSpeed(ctx context.Context, tokensPerSecond float64, provider string) {
	if m == nil || tokensPerSecond <= 0 {
		return
	}
	m.tokensPerSecond.Record(ctx, tokensPerSecond, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordToolCalls counts executed tool calls.
func (m *Metrics) RecordToolCalls(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.toolCalls.Add(ctx, n)
}

// RecordIteration counts one tool loop iteration.
func (m *Metrics) RecordIteration(ctx context.Context) {
	if m == nil {
		return
	}
	m.loopIterations.Add(ctx, 1)
}
