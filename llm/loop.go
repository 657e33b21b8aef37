package llm

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/aura/config"
	"github.com/sweetpotato0/aura/errors"
	"github.com/sweetpotato0/aura/history"
	"github.com/sweetpotato0/aura/message"
	"github.com/sweetpotato0/aura/pkg/logging"
	"github.com/sweetpotato0/aura/pkg/telemetry"
	"github.com/sweetpotato0/aura/tool"
)

const (
	// DefaultMaxIterations bounds provider round-trips per user turn.
	DefaultMaxIterations = 5

	// apologyText is spoken when the iteration bound is exhausted without a
	// final answer.
	apologyText = "I'm sorry, I couldn't finish working on that. Could you try asking again?"

	// FinishSkipFollowup marks a response synthesized directly from tool
	// output without a followup model call.
	FinishSkipFollowup = "skip_followup"
	// FinishMaxIterations marks the apology response after the iteration
	// bound was hit.
	FinishMaxIterations = "max_iterations"
)

// LoopParams configures one run of the tool iteration loop.
type LoopParams struct {
	History *history.History
	Input   string
	Vision  []tool.Vision

	// Provider handles the first call; Providers maps protocol families for
	// mid-conversation switches. Resolver supplies the current model
	// selection and is re-consulted after every tool exchange.
	Provider  Provider
	Providers map[config.Family]Provider
	Resolver  config.Resolver

	Registry   *tool.Registry
	Dispatcher tool.Dispatcher
	Compactor  Compactor

	// Interrupt is polled between iterations; true abandons the loop.
	Interrupt func() bool

	OnText     func(string)
	OnThinking func(string)

	DisableThinking bool
	MaxIterations   int
	SessionID       string

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Run drives the tool iteration loop: generate, execute requested tools,
// record the exchange in the provider's native shape, and loop until the
// model answers in plain text or the iteration bound is hit.
func Run(ctx context.Context, p *LoopParams) (resp *Response, err error) {
	tracer := otel.Tracer("github.com/sweetpotato0/aura/llm")
	ctx, span := tracer.Start(ctx, "llm.Run", trace.WithAttributes(
		attribute.String("session.id", p.SessionID),
	))
	defer func() { telemetry.End(span, err) }()

	logger := p.Logger
	if logger == nil {
		logger = logging.WithComponent("llm")
	}
	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	provider := p.Provider
	cfg, cfgErr := p.resolve()
	if cfgErr != nil {
		return nil, cfgErr
	}
	if alt, ok := p.Providers[cfg.Family]; ok {
		provider = alt
	}
	if provider == nil {
		return nil, errors.ErrInvalidInput
	}

	if p.Input != "" {
		p.History.Append(message.NewMessage(message.RoleUser, p.Input))
	}
	vision := p.Vision
	disableTools := false
	forcedFinal := false

	for iter := 0; iter < maxIter; iter++ {
		p.Metrics.RecordIteration(ctx)

		if p.Compactor != nil {
			if cerr := p.Compactor.Compact(ctx, p.History, p.SessionID); cerr != nil {
				logger.Warn("history compaction failed", "error", cerr)
			}
		}

		req := &Request{
			History:         p.History,
			Vision:          vision,
			BaseURL:         cfg.BaseURL,
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			DisableTools:    disableTools,
			DisableThinking: p.DisableThinking || (p.Resolver != nil && !cfg.SupportsThinking),
			OnText:          p.OnText,
			OnThinking:      p.OnThinking,
			Iteration:       iter,
			SessionID:       p.SessionID,
		}
		if !disableTools && p.Registry != nil {
			req.Tools = p.Registry.List()
		}

		resp, err = provider.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		p.recordUsage(ctx, provider.Name(), resp.Usage)

		if !resp.HasToolCalls() {
			return resp, nil
		}

		// Spoken text before tool calls needs a paragraph break from
		// whatever the followup call streams.
		if resp.Text != "" && p.OnText != nil {
			p.OnText("\n\n")
		}

		if !forcedFinal && IsDuplicateCall(provider.Format(), p.History, resp.ToolCalls) {
			logger.Info("repeated tool call suppressed",
				"tool", resp.ToolCalls[0].Name, "session", p.SessionID)
			AppendSteering(p.History, resp.ToolCalls[0].Name)
			disableTools = true
			forcedFinal = true
			vision = nil
			// The steering turn replaces this iteration instead of spending
			// it, so the tools-disabled final call happens even when the
			// duplicate lands on the last iteration. forcedFinal guarantees
			// this runs at most once.
			iter--
			continue
		}

		results, derr := p.Dispatcher.Execute(ctx, resp.ToolCalls)
		if derr != nil {
			return nil, derr
		}
		p.Metrics.RecordToolCalls(ctx, int64(len(resp.ToolCalls)))

		// Tools may answer the user directly; in that case the exchange
		// stays out of history and the loop ends here.
		if results.SkipFollowup() {
			direct := results.DirectResponse()
			if p.OnText != nil {
				p.OnText(direct)
			}
			return &Response{
				Text:         direct,
				FinishReason: FinishSkipFollowup,
				Usage:        resp.Usage,
			}, nil
		}

		AppendExchange(provider.Format(), p.History, resp, results)

		if v := results.PendingVision(); v != nil {
			vision = []tool.Vision{*v}
		} else {
			vision = nil
		}

		if p.Interrupt != nil && p.Interrupt() {
			return nil, errors.ErrInterrupted
		}

		// A tool may have switched models or providers; pick up the new
		// selection before the followup call.
		next, rerr := p.resolve()
		if rerr != nil {
			logger.Warn("provider re-resolve failed", "error", rerr)
		} else {
			if next.Family != cfg.Family {
				if alt, ok := p.Providers[next.Family]; ok {
					provider = alt
				} else {
					logger.Warn("no provider registered for family", "family", next.Family)
					next = cfg
				}
			}
			cfg = next
		}
	}

	if p.OnText != nil {
		p.OnText(apologyText)
	}
	return &Response{Text: apologyText, FinishReason: FinishMaxIterations}, nil
}

func (p *LoopParams) resolve() (config.Provider, error) {
	if p.Resolver == nil {
		return config.Provider{}, nil
	}
	return p.Resolver.Resolve()
}

func (p *LoopParams) recordUsage(ctx context.Context, provider string, u Usage) {
	if u.TTFT > 0 {
		p.Metrics.RecordTTFT(ctx, u.TTFT.Seconds(), provider)
	}
	p.Metrics.RecordTokens(ctx, int64(u.PromptTokens), int64(u.CompletionTokens), int64(u.CachedTokens), provider)
	if u.TokensPerSecond > 0 {
		p.Metrics.RecordDecodeSpeed(ctx, u.TokensPerSecond, provider)
	}
}
