// Package domain holds the core types shared across the knowledge base:
// documents, chunks, search hits and the capability contract of the
// vector index. It has no dependencies of its own.
package domain

import (
	"context"
	"time"
)

// Document describes a file tracked by the knowledge base.
type Document struct {
	Filename string         `json:"filename"`
	Size     int64          `json:"size"`
	Modified time.Time      `json:"modified"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk is one fixed-size window of a document's extracted content.
// Chunks are immutable; re-adding a document regenerates them wholesale.
type Chunk struct {
	// ID is "{filename}_chunk_{ordinal}".
	ID       string
	Text     string
	Filename string
	Ordinal  int
	Total    int
	// Metadata carries the caller-supplied document metadata, copied onto
	// every chunk so hits can be attributed without a second lookup.
	Metadata map[string]any
}

// SearchHit is one result of a semantic query, highest similarity first.
type SearchHit struct {
	Index    int            `json:"index"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	// Score is a similarity in [0,1], derived from the index distance as
	// score = 1 - distance/2 (valid for distance metrics bounded in [0,2]).
	Score float64 `json:"score"`
}

// Status is the expected outcome of a document lifecycle operation.
// These are results, not errors: a duplicate add or a missing removal
// target is normal operation.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusExists   Status = "exists"
	StatusNotFound Status = "not_found"
)

// AddResult reports the outcome of adding a document.
type AddResult struct {
	Status   Status `json:"status"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks,omitempty"`
	Message  string `json:"message"`
}

// RemoveResult reports the outcome of removing a document.
type RemoveResult struct {
	Status   Status `json:"status"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// Index is the capability contract over the embedding-backed similarity
// store. Implementations translate between chunk semantics and whatever
// the backing store speaks; they do not own the documents themselves.
type Index interface {
	// Upsert writes chunks with their ids and metadata. Partial writes on
	// failure are permitted; callers clean up via DeleteByFilename.
	Upsert(ctx context.Context, chunks []Chunk) error

	// DeleteByFilename removes every chunk whose metadata references the
	// given filename.
	DeleteByFilename(ctx context.Context, filename string) error

	// Filenames returns the set of filenames that currently have chunks
	// in the index.
	Filenames(ctx context.Context) (map[string]struct{}, error)

	// Query embeds the text and returns up to topK hits ordered by
	// descending similarity.
	Query(ctx context.Context, text string, topK int) ([]SearchHit, error)

	// Count reports the total number of chunks in the index.
	Count(ctx context.Context) (int, error)
}
