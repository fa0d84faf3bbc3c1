package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klarifai/queen-rag/internal/domain"
	"github.com/klarifai/queen-rag/internal/llm"
	"github.com/klarifai/queen-rag/internal/usage"
)

type fakeProvider struct {
	model    string
	lastReq  llm.Request
	response *llm.Response
	chunks   []string
	err      error
}

func (p *fakeProvider) Model() string { return p.model }

func (p *fakeProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	if req.StreamingFunc != nil {
		for _, chunk := range p.chunks {
			if err := req.StreamingFunc(ctx, chunk); err != nil {
				return nil, err
			}
		}
	}
	return p.response, nil
}

type fakeSearchIndex struct {
	hits     []domain.SearchHit
	err      error
	lastTopK int
	queries  int
}

func (f *fakeSearchIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error { return nil }
func (f *fakeSearchIndex) DeleteByFilename(ctx context.Context, filename string) error {
	return nil
}
func (f *fakeSearchIndex) Filenames(ctx context.Context) (map[string]struct{}, error) {
	return nil, nil
}
func (f *fakeSearchIndex) Count(ctx context.Context) (int, error) { return len(f.hits), nil }

func (f *fakeSearchIndex) Query(ctx context.Context, text string, topK int) ([]domain.SearchHit, error) {
	f.queries++
	f.lastTopK = topK
	return f.hits, f.err
}

func newTestEngine(t *testing.T, provider llm.Provider, index domain.Index) (*Engine, *usage.Tracker) {
	t.Helper()
	tracker := usage.New(filepath.Join(t.TempDir(), "usage.json"), zerolog.Nop())
	cfg := Config{Temperature: 0.7, MaxTokens: 2000, TopK: 5}
	return New(provider, index, tracker, cfg, nil, zerolog.Nop()), tracker
}

func collect(t *testing.T, ch <-chan Delta) (string, error) {
	t.Helper()
	var content string
	for d := range ch {
		if d.Err != nil {
			// Terminal: the channel closes after an error delta.
			_, more := <-ch
			assert.False(t, more, "channel must close after an error delta")
			return content, d.Err
		}
		content += d.Content
	}
	return content, nil
}

func TestChatNoHitsSkipsContextMessage(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", response: &llm.Response{Content: "hello"}}
	index := &fakeSearchIndex{}
	eng, _ := newTestEngine(t, provider, index)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "earlier question"},
		{Role: llm.RoleAssistant, Content: "earlier answer"},
	}
	content, err := collect(t, eng.Chat(context.Background(), Request{
		Message: "what is the plan?",
		History: history,
		UseRAG:  true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	msgs := provider.lastReq.Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, systemPrompt, msgs[0].Content)
	assert.Equal(t, history[0], msgs[1])
	assert.Equal(t, history[1], msgs[2])
	assert.Equal(t, llm.RoleUser, msgs[3].Role)
	assert.Equal(t, "what is the plan?", msgs[3].Content)
}

func TestChatInjectsContextWhenHitsFound(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", response: &llm.Response{Content: "answer"}}
	index := &fakeSearchIndex{hits: []domain.SearchHit{
		hit("bridge.md", 0, 2, 0.88, "the bridge spans 360km"),
	}}
	eng, _ := newTestEngine(t, provider, index)

	_, err := collect(t, eng.Chat(context.Background(), Request{Message: "bridge?", UseRAG: true}))
	require.NoError(t, err)

	msgs := provider.lastReq.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleSystem, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "the bridge spans 360km")
	assert.Contains(t, msgs[1].Content, "[📄 bridge.md | Section 1/2 | Confidence: 88%]")
	assert.Equal(t, 5, index.lastTopK)
}

func TestChatUseRAGFalseSkipsSearch(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", response: &llm.Response{Content: "answer"}}
	index := &fakeSearchIndex{hits: []domain.SearchHit{hit("a.md", 0, 1, 0.9, "alpha")}}
	eng, _ := newTestEngine(t, provider, index)

	_, err := collect(t, eng.Chat(context.Background(), Request{Message: "hi", UseRAG: false}))
	require.NoError(t, err)
	assert.Zero(t, index.queries)
	require.Len(t, provider.lastReq.Messages, 2)
}

func TestChatTopKOverride(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", response: &llm.Response{Content: "answer"}}
	index := &fakeSearchIndex{}
	eng, _ := newTestEngine(t, provider, index)

	_, err := collect(t, eng.Chat(context.Background(), Request{Message: "hi", UseRAG: true, TopK: 12}))
	require.NoError(t, err)
	assert.Equal(t, 12, index.lastTopK)
}

func TestChatStreamingEmitsDeltasInOrder(t *testing.T) {
	provider := &fakeProvider{
		model:    "gpt-4o",
		chunks:   []string{"The ", "bridge ", "is ", "long."},
		response: &llm.Response{Content: "The bridge is long.", Usage: &llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}},
	}
	eng, tracker := newTestEngine(t, provider, nil)

	var got []string
	for d := range eng.Chat(context.Background(), Request{Message: "hi", Stream: true}) {
		require.NoError(t, d.Err)
		got = append(got, d.Content)
	}
	assert.Equal(t, []string{"The ", "bridge ", "is ", "long."}, got)

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.TotalRequests)
	assert.Equal(t, 120, stats.TotalTokens)
}

func TestChatNonStreamingSingleDelta(t *testing.T) {
	provider := &fakeProvider{
		model:    "gpt-4o",
		response: &llm.Response{Content: "full answer", Usage: &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
	}
	eng, tracker := newTestEngine(t, provider, nil)

	ch := eng.Chat(context.Background(), Request{Message: "hi"})
	d, ok := <-ch
	require.True(t, ok)
	require.NoError(t, d.Err)
	assert.Equal(t, "full answer", d.Content)
	_, more := <-ch
	assert.False(t, more)

	assert.Equal(t, 1, tracker.Stats().TotalRequests)
}

func TestChatNoUsageReported(t *testing.T) {
	provider := &fakeProvider{model: "llama3", response: &llm.Response{Content: "ok"}}
	eng, tracker := newTestEngine(t, provider, nil)

	_, err := collect(t, eng.Chat(context.Background(), Request{Message: "hi"}))
	require.NoError(t, err)
	assert.Zero(t, tracker.Stats().TotalRequests)
}

func TestChatProviderError(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", err: errors.New("upstream unavailable")}
	eng, tracker := newTestEngine(t, provider, nil)

	content, err := collect(t, eng.Chat(context.Background(), Request{Message: "hi"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Empty(t, content)
	assert.Zero(t, tracker.Stats().TotalRequests)
}

func TestChatSearchErrorSurfaces(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", response: &llm.Response{Content: "unused"}}
	index := &fakeSearchIndex{err: errors.New("chroma down")}
	eng, _ := newTestEngine(t, provider, index)

	_, err := collect(t, eng.Chat(context.Background(), Request{Message: "hi", UseRAG: true}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chroma down")
	// Provider never called.
	assert.Empty(t, provider.lastReq.Messages)
}

func TestChatImagesAttachedToUserTurn(t *testing.T) {
	provider := &fakeProvider{model: "gpt-4o", response: &llm.Response{Content: "I see a chart"}}
	eng, _ := newTestEngine(t, provider, nil)

	images := []llm.ImageAttachment{{Name: "chart.png", DataURL: "data:image/png;base64,aGk="}}
	_, err := collect(t, eng.Chat(context.Background(), Request{Message: "what is this?", Images: images}))
	require.NoError(t, err)

	msgs := provider.lastReq.Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, images, last.Images)
	for _, m := range msgs[:len(msgs)-1] {
		assert.Empty(t, m.Images)
	}
}

func TestSearch(t *testing.T) {
	index := &fakeSearchIndex{hits: []domain.SearchHit{hit("a.md", 0, 1, 0.9, "alpha")}}
	eng, _ := newTestEngine(t, &fakeProvider{model: "gpt-4o"}, index)

	hits, err := eng.Search(context.Background(), "alpha", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 5, index.lastTopK)

	_, err = eng.Search(context.Background(), "alpha", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, index.lastTopK)
}

func TestSearchNilIndex(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeProvider{model: "gpt-4o"}, nil)
	_, err := eng.Search(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestHealth(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeProvider{model: "gpt-4o"}, &fakeSearchIndex{})
	h := eng.Health()
	assert.True(t, h.Initialized)
	assert.Equal(t, "gpt-4o", h.Model)

	eng, _ = newTestEngine(t, &fakeProvider{model: "gpt-4o"}, nil)
	assert.False(t, eng.Health().Initialized)
}
