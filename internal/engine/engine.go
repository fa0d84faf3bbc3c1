// Package engine orchestrates one RAG-enhanced conversation exchange:
// system prompt, optional retrieved context, history replay, the user
// turn, and the completion call with usage accounting.
package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/klarifai/queen-rag/internal/domain"
	"github.com/klarifai/queen-rag/internal/llm"
	"github.com/klarifai/queen-rag/internal/usage"
)

// Config carries the completion parameters and the default search depth.
type Config struct {
	Temperature float64
	MaxTokens   int
	TopK        int
}

// Request is one chat exchange. History is replayed verbatim; the engine
// never mutates it.
type Request struct {
	Message string
	History []llm.Message
	UseRAG  bool
	Stream  bool
	// TopK overrides the configured search depth when positive.
	TopK   int
	Images []llm.ImageAttachment
}

// Delta is one unit of the response stream. A non-nil Err is terminal:
// the channel closes right after it and no further content follows.
type Delta struct {
	Content string
	Err     error
}

// Engine wires the retrieval index, the completion provider and the usage
// tracker together. The index may be nil, in which case RAG silently
// degrades to context-free chat.
type Engine struct {
	provider llm.Provider
	index    domain.Index
	tracker  *usage.Tracker
	cfg      Config
	rules    []InsightRule
	log      zerolog.Logger
}

// New constructs an engine. rules may be nil to use the default insight
// table.
func New(provider llm.Provider, index domain.Index, tracker *usage.Tracker, cfg Config, rules []InsightRule, log zerolog.Logger) *Engine {
	if rules == nil {
		rules = DefaultInsightRules()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Engine{
		provider: provider,
		index:    index,
		tracker:  tracker,
		cfg:      cfg,
		rules:    rules,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// Model returns the completion model identifier.
func (e *Engine) Model() string { return e.provider.Model() }

// Search runs a semantic query against the index.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error) {
	if e.index == nil {
		return nil, domain.ErrNotInitialized
	}
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	return e.index.Query(ctx, query, topK)
}

// Chat runs one exchange and returns the response stream. In streaming
// mode each completion delta is emitted as it arrives; otherwise the full
// response is emitted as a single delta. The channel is closed when the
// exchange is done, after an error delta, or once ctx is cancelled —
// cancellation stops emission but cannot refund tokens the provider has
// already billed.
func (e *Engine) Chat(ctx context.Context, req Request) <-chan Delta {
	out := make(chan Delta)
	go func() {
		defer close(out)

		messages, err := e.buildMessages(ctx, req)
		if err != nil {
			e.log.Error().Err(err).Msg("failed to build prompt")
			e.emit(ctx, out, Delta{Err: err})
			return
		}

		llmReq := llm.Request{
			Messages:    messages,
			Temperature: e.cfg.Temperature,
			MaxTokens:   e.cfg.MaxTokens,
		}
		if req.Stream {
			llmReq.StreamingFunc = func(ctx context.Context, chunk string) error {
				if !e.emit(ctx, out, Delta{Content: chunk}) {
					return ctx.Err()
				}
				return nil
			}
		}

		resp, err := e.provider.Generate(ctx, llmReq)
		if err != nil {
			e.log.Error().Err(err).Msg("completion failed")
			e.emit(ctx, out, Delta{Err: err})
			return
		}

		if !req.Stream {
			if !e.emit(ctx, out, Delta{Content: resp.Content}) {
				return
			}
		}

		// Forward usage exactly once per call, when the provider
		// reported it.
		if resp.Usage != nil && e.tracker != nil {
			e.tracker.Record(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, e.provider.Model())
		}
	}()
	return out
}

// emit sends a delta unless the consumer is gone. Reports whether the
// send happened.
func (e *Engine) emit(ctx context.Context, out chan<- Delta, d Delta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildMessages assembles the full message sequence: persona system
// prompt, optional retrieved context, history verbatim, then the user
// turn (with image parts when attachments are present).
func (e *Engine) buildMessages(ctx context.Context, req Request) ([]llm.Message, error) {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	if req.UseRAG && e.index != nil {
		topK := req.TopK
		if topK <= 0 {
			topK = e.cfg.TopK
		}
		hits, err := e.index.Query(ctx, req.Message, topK)
		if err != nil {
			return nil, err
		}
		// Zero hits: no context message at all, the chat proceeds
		// context-free.
		if len(hits) > 0 {
			insights := buildInsights(req.Message, e.rules)
			messages = append(messages, llm.Message{
				Role:    llm.RoleSystem,
				Content: contextMessage(hits, insights),
			})
		}
	}

	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: req.Message,
		Images:  req.Images,
	})
	return messages, nil
}

// Health is a snapshot of the engine's readiness.
type Health struct {
	Initialized bool   `json:"initialized"`
	Model       string `json:"model"`
}

// Health reports whether the retrieval index is available.
func (e *Engine) Health() Health {
	return Health{
		Initialized: e.index != nil,
		Model:       e.provider.Model(),
	}
}
