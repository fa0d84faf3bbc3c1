package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAI serves completions through the OpenAI chat API (or any
// API-compatible endpoint via baseURL). gpt-4o handles vision natively,
// so image attachments ride along as image-URL parts.
type OpenAI struct {
	client *openai.LLM
	model  string
}

// NewOpenAI builds the provider. baseURL may be empty for the public API.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAI{client: client, model: model}, nil
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		mc := llms.MessageContent{
			Role:  openAIRole(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		}
		for _, img := range m.Images {
			mc.Parts = append(mc.Parts, llms.ImageURLPart(img.DataURL))
		}
		messages = append(messages, mc)
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(req.MaxTokens),
	}
	if req.StreamingFunc != nil {
		fn := req.StreamingFunc
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return fn(ctx, string(chunk))
		}))
	}

	resp, err := o.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	return &Response{
		Content: choice.Content,
		Usage:   usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

func openAIRole(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// usageFromGenerationInfo pulls token counts out of the untyped
// generation info. Some backends omit usage when streaming; nil means
// "not reported" and nothing gets recorded.
func usageFromGenerationInfo(info map[string]any) *Usage {
	if info == nil {
		return nil
	}
	prompt := intFromAny(info["PromptTokens"])
	completion := intFromAny(info["CompletionTokens"])
	if prompt == 0 && completion == 0 {
		return nil
	}
	total := intFromAny(info["TotalTokens"])
	if total == 0 {
		total = prompt + completion
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
