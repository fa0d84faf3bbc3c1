// Package docstore owns the document lifecycle of the knowledge base:
// files on disk are the source of truth, the vector index holds a derived
// projection of chunks, and a sidecar file next to each document carries
// its caller-supplied metadata.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klarifai/queen-rag/internal/chunker"
	"github.com/klarifai/queen-rag/internal/domain"
	"github.com/klarifai/queen-rag/internal/extract"
	"github.com/klarifai/queen-rag/internal/metrics"
)

const sidecarSuffix = ".meta.json"

// Store manages documents in a single directory and keeps the vector
// index in sync with them.
type Store struct {
	dir          string
	index        domain.Index
	extract      extract.Func
	chunkSize    int
	chunkOverlap int
	log          zerolog.Logger

	// mu guards tracked and ingesting. A filename is inserted into tracked
	// before ingestion starts, so a concurrent duplicate add observes
	// "exists" instead of racing; it is removed again if ingestion fails.
	// ingesting holds names whose ingestion is currently in flight, so the
	// directory watcher can ignore the filesystem events it causes.
	mu        sync.Mutex
	tracked   map[string]struct{}
	ingesting map[string]struct{}
}

// New creates a store over dir. Chunk parameters are validated up front
// so a bad configuration fails at startup, not on first ingest.
func New(dir string, index domain.Index, extractFn extract.Func, chunkSize, chunkOverlap int, log zerolog.Logger) (*Store, error) {
	if err := chunker.Validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	if index == nil {
		return nil, domain.ErrNotInitialized
	}
	if extractFn == nil {
		extractFn = extract.Content
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}
	return &Store{
		dir:          dir,
		index:        index,
		extract:      extractFn,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		log:          log.With().Str("component", "docstore").Logger(),
		tracked:      make(map[string]struct{}),
		ingesting:    make(map[string]struct{}),
	}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Documents returns the number of tracked documents.
func (s *Store) Documents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

// IsTracked reports whether filename is currently in the knowledge base.
func (s *Store) IsTracked(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracked[filename]
	return ok
}

// Add ingests the file at path: extract, chunk, index, persist sidecar
// metadata. Adding an already-tracked filename is an idempotent no-op
// reported as StatusExists. Extraction and index failures are returned as
// errors and leave the document untracked.
func (s *Store) Add(ctx context.Context, path string, metadata map[string]any) (domain.AddResult, error) {
	filename := filepath.Base(path)

	s.mu.Lock()
	if _, ok := s.tracked[filename]; ok {
		s.mu.Unlock()
		s.log.Warn().Str("filename", filename).Msg("document already in knowledge base")
		return domain.AddResult{
			Status:   domain.StatusExists,
			Filename: filename,
			Message:  "Document already in knowledge base",
		}, nil
	}
	// Reserve the name before the slow work so a concurrent duplicate add
	// short-circuits instead of double-indexing.
	s.tracked[filename] = struct{}{}
	s.ingesting[filename] = struct{}{}
	s.mu.Unlock()

	result, err := s.ingest(ctx, path, filename, metadata)

	s.mu.Lock()
	delete(s.ingesting, filename)
	if err != nil {
		delete(s.tracked, filename)
	}
	s.mu.Unlock()

	if err != nil {
		return domain.AddResult{}, err
	}
	return result, nil
}

// Ingest stages an uploaded stream into the storage directory under
// filename, then indexes it like Add. The name is reserved before the
// staged file is renamed into place, so the directory watcher ignores
// the events the upload causes and the caller's metadata stays
// authoritative over any concurrent auto-ingest.
func (s *Store) Ingest(ctx context.Context, filename string, src io.Reader, metadata map[string]any) (domain.AddResult, error) {
	s.mu.Lock()
	if _, ok := s.tracked[filename]; ok {
		s.mu.Unlock()
		s.log.Warn().Str("filename", filename).Msg("document already in knowledge base")
		return domain.AddResult{
			Status:   domain.StatusExists,
			Filename: filename,
			Message:  "Document already in knowledge base",
		}, nil
	}
	s.tracked[filename] = struct{}{}
	s.ingesting[filename] = struct{}{}
	s.mu.Unlock()

	path := filepath.Join(s.dir, filename)
	err := s.stage(path, filename, src)
	var result domain.AddResult
	if err == nil {
		result, err = s.ingest(ctx, path, filename, metadata)
	}

	s.mu.Lock()
	delete(s.ingesting, filename)
	if err != nil {
		delete(s.tracked, filename)
	}
	s.mu.Unlock()

	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.log.Warn().Err(rmErr).Str("filename", filename).Msg("could not remove failed upload")
		}
		return domain.AddResult{}, err
	}
	return result, nil
}

// stage writes src to a uniquely named temp file and renames it into
// place, so a half-written upload never sits at its final path.
func (s *Store) stage(path, filename string, src io.Reader) error {
	tempPath := filepath.Join(s.dir, fmt.Sprintf("temp_%s_%s", uuid.NewString(), filename))
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tempPath)
		return fmt.Errorf("stage upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("stage upload: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("stage upload: %w", err)
	}
	return nil
}

func (s *Store) ingest(ctx context.Context, path, filename string, metadata map[string]any) (domain.AddResult, error) {
	content, err := s.extract(path)
	if err != nil {
		return domain.AddResult{}, &domain.ExtractionError{Filename: filename, Err: err}
	}

	texts, err := chunker.Split(content, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return domain.AddResult{}, err
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:       fmt.Sprintf("%s_chunk_%d", filename, i),
			Text:     text,
			Filename: filename,
			Ordinal:  i,
			Total:    len(texts),
			Metadata: metadata,
		}
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		// Best-effort cleanup of partially written chunks.
		if delErr := s.index.DeleteByFilename(ctx, filename); delErr != nil {
			s.log.Warn().Err(delErr).Str("filename", filename).Msg("could not clean up partial chunks")
		}
		return domain.AddResult{}, err
	}

	if metadata != nil {
		if err := s.writeSidecar(path, metadata); err != nil {
			s.log.Warn().Err(err).Str("filename", filename).Msg("could not persist metadata sidecar")
		}
	}

	metrics.ChunksIndexed.Add(float64(len(chunks)))
	s.log.Info().Str("filename", filename).Int("chunks", len(chunks)).Msg("document added")

	return domain.AddResult{
		Status:   domain.StatusSuccess,
		Filename: filename,
		Chunks:   len(chunks),
		Message:  "Document added to knowledge base",
	}, nil
}

// deindex drops a document's chunks and tracking entry without touching
// anything on disk. An untracked filename is a no-op.
func (s *Store) deindex(ctx context.Context, filename string) error {
	s.mu.Lock()
	_, ok := s.tracked[filename]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if err := s.index.DeleteByFilename(ctx, filename); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.tracked, filename)
	s.mu.Unlock()
	return nil
}

func (s *Store) isIngesting(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ingesting[filename]
	return ok
}

// Remove deletes a document's chunks, its source file and its sidecar.
// An unknown filename is reported as StatusNotFound, not an error.
func (s *Store) Remove(ctx context.Context, filename string) (domain.RemoveResult, error) {
	s.mu.Lock()
	_, ok := s.tracked[filename]
	s.mu.Unlock()
	if !ok {
		return domain.RemoveResult{
			Status:   domain.StatusNotFound,
			Filename: filename,
			Message:  "Document not found in knowledge base",
		}, nil
	}

	if err := s.index.DeleteByFilename(ctx, filename); err != nil {
		return domain.RemoveResult{}, err
	}

	path := filepath.Join(s.dir, filename)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("filename", filename).Msg("could not remove source file")
	}
	if err := os.Remove(sidecarPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("filename", filename).Msg("could not remove metadata sidecar")
	}

	s.mu.Lock()
	delete(s.tracked, filename)
	s.mu.Unlock()

	s.log.Info().Str("filename", filename).Msg("document removed")
	return domain.RemoveResult{
		Status:   domain.StatusSuccess,
		Filename: filename,
		Message:  "Document removed from knowledge base",
	}, nil
}

// List enumerates all files in the storage directory with their stats and
// sidecar metadata. Sidecar files themselves are skipped.
func (s *Store) List() ([]domain.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	documents := make([]domain.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), sidecarSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.log.Warn().Err(err).Str("filename", entry.Name()).Msg("could not stat document")
			continue
		}

		docType := "unknown"
		if ext := filepath.Ext(entry.Name()); ext != "" {
			docType = strings.TrimPrefix(ext, ".")
		}

		documents = append(documents, domain.Document{
			Filename: entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
			Type:     docType,
			Metadata: s.loadSidecar(filepath.Join(s.dir, entry.Name())),
		})
	}
	return documents, nil
}

// Reconcile scans the storage directory on startup. Files already present
// in the index are marked tracked without re-ingesting; anything else is
// treated as new and ingested. Per-file failures are logged and skipped so
// one bad file cannot abort the bootstrap.
func (s *Store) Reconcile(ctx context.Context) error {
	indexed, err := s.index.Filenames(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not retrieve indexed filenames, treating all files as new")
		indexed = map[string]struct{}{}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info().Msg("no documents directory found, skipping reconcile")
			return nil
		}
		return fmt.Errorf("read documents directory: %w", err)
	}

	processed, skipped := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), sidecarSuffix) {
			continue
		}
		filename := entry.Name()

		if _, ok := indexed[filename]; ok {
			s.mu.Lock()
			s.tracked[filename] = struct{}{}
			s.mu.Unlock()
			skipped++
			continue
		}

		path := filepath.Join(s.dir, filename)
		result, err := s.Add(ctx, path, s.loadSidecar(path))
		if err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("failed to auto-load document")
			continue
		}
		if result.Status == domain.StatusSuccess {
			processed++
		}
	}

	s.log.Info().Int("processed", processed).Int("already_indexed", skipped).Msg("reconcile complete")
	return nil
}

// Reindex rebuilds the vector index from the storage directory: every
// document is de-indexed and ingested again with its sidecar metadata.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read documents directory: %w", err)
	}

	reindexed := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), sidecarSuffix) {
			continue
		}
		filename := entry.Name()
		path := filepath.Join(s.dir, filename)

		if err := s.index.DeleteByFilename(ctx, filename); err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("failed to de-index document")
			continue
		}
		s.mu.Lock()
		delete(s.tracked, filename)
		s.mu.Unlock()

		result, err := s.Add(ctx, path, s.loadSidecar(path))
		if err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("failed to re-index document")
			continue
		}
		s.log.Info().Str("filename", filename).Int("chunks", result.Chunks).Msg("document re-indexed")
		reindexed++
	}
	return reindexed, nil
}

func (s *Store) writeSidecar(path string, metadata map[string]any) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(path), data, 0o644)
}

func (s *Store) loadSidecar(path string) map[string]any {
	data, err := os.ReadFile(sidecarPath(path))
	if err != nil {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("could not parse metadata sidecar")
		return nil
	}
	return metadata
}

// sidecarPath replaces the file extension with ".meta.json", so
// "report.pdf" pairs with "report.meta.json".
func sidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + sidecarSuffix
}
