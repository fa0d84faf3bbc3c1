// Package controller exposes the RAG service over HTTP. Handlers parse
// and validate requests, delegate to the engine, document store and usage
// tracker, and shape responses; business logic stays out of this layer.
package controller

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/klarifai/queen-rag/internal/domain"
	"github.com/klarifai/queen-rag/internal/engine"
	"github.com/klarifai/queen-rag/internal/usage"
)

// ChatService is the conversation capability the controller depends on.
type ChatService interface {
	Chat(ctx context.Context, req engine.Request) <-chan engine.Delta
	Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error)
	Model() string
	Health() engine.Health
}

// DocumentService is the knowledge-base document lifecycle. Uploads go
// through Ingest so the store can reserve the filename before the file
// appears in the watched directory.
type DocumentService interface {
	Ingest(ctx context.Context, filename string, src io.Reader, metadata map[string]any) (domain.AddResult, error)
	Remove(ctx context.Context, filename string) (domain.RemoveResult, error)
	List() ([]domain.Document, error)
	Dir() string
	Documents() int
	IsTracked(filename string) bool
}

// UsageService reports and resets token accounting.
type UsageService interface {
	Stats() usage.Stats
	Reset()
}

// Controller holds the service dependencies for all HTTP handlers.
type Controller struct {
	chat           ChatService
	docs           DocumentService
	usage          UsageService
	embeddingModel string
	maxUploadSize  int64
	log            zerolog.Logger
}

// New creates a controller. maxUploadSize caps individual uploads in
// bytes.
func New(chat ChatService, docs DocumentService, usageSvc UsageService, embeddingModel string, maxUploadSize int64, log zerolog.Logger) *Controller {
	return &Controller{
		chat:           chat,
		docs:           docs,
		usage:          usageSvc,
		embeddingModel: embeddingModel,
		maxUploadSize:  maxUploadSize,
		log:            log.With().Str("component", "http").Logger(),
	}
}
