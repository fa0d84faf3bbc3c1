// Package llm defines the chat-completion capability the engine consumes
// and its provider implementations. The engine only sees roles, text,
// optional image attachments and token usage; provider-specific content
// shapes are handled at this boundary.
package llm

import "context"

// Role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageAttachment is an inline image carried as a base64 data URL.
type ImageAttachment struct {
	Name    string
	DataURL string
}

// Message is one conversation turn. A turn with images is a mixed
// text/image content sequence on the wire; providers translate.
type Message struct {
	Role    Role
	Content string
	Images  []ImageAttachment
}

// Usage carries the provider-reported token counts for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamFunc receives each incremental completion delta. Returning an
// error stops the stream; providers surface it from Generate.
type StreamFunc func(ctx context.Context, chunk string) error

// Request is a single completion call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// StreamingFunc, when non-nil, selects streaming mode: deltas are
	// delivered through it as they arrive and Response.Content holds the
	// accumulated text.
	StreamingFunc StreamFunc
}

// Response is the final result of a completion call. Usage is nil when
// the provider did not report token counts.
type Response struct {
	Content string
	Usage   *Usage
}

// Provider is the chat completion capability.
type Provider interface {
	// Model identifies the model served, used for pricing lookups.
	Model() string
	Generate(ctx context.Context, req Request) (*Response, error)
}
