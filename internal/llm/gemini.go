package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini serves completions through the Google Gemini API. System turns
// become the system instruction, and image attachments are decoded from
// their data URLs into inline blobs, since Gemini does not accept
// image URLs in content parts.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds the provider against the public Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	contents, config, err := g.translate(req)
	if err != nil {
		return nil, err
	}

	if req.StreamingFunc == nil {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini completion failed: %w", err)
		}
		return &Response{
			Content: resp.Text(),
			Usage:   usageFromMetadata(resp.UsageMetadata),
		}, nil
	}

	var sb strings.Builder
	var usage *Usage
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("gemini stream failed: %w", err)
		}
		text := resp.Text()
		if text != "" {
			if err := req.StreamingFunc(ctx, text); err != nil {
				return nil, err
			}
			sb.WriteString(text)
		}
		if u := usageFromMetadata(resp.UsageMetadata); u != nil {
			usage = u
		}
	}
	return &Response{Content: sb.String(), Usage: usage}, nil
}

// translate splits out system turns into the system instruction and maps
// the remaining turns onto Gemini's user/model roles.
func (g *Gemini) translate(req Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var systemParts []string
	var contents []*genai.Content

	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}

		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}

		parts := []*genai.Part{{Text: m.Content}}
		for _, img := range m.Images {
			mimeType, data, err := decodeDataURL(img.DataURL)
			if err != nil {
				return nil, nil, fmt.Errorf("decode image %q: %w", img.Name, err)
			}
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: mimeType, Data: data},
			})
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}
	return contents, config, nil
}

func usageFromMetadata(meta *genai.GenerateContentResponseUsageMetadata) *Usage {
	if meta == nil {
		return nil
	}
	prompt := int(meta.PromptTokenCount)
	completion := int(meta.CandidatesTokenCount)
	if prompt == 0 && completion == 0 {
		return nil
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
