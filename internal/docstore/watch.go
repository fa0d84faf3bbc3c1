package docstore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch follows the storage directory and keeps the index in sync with it
// in real time: files dropped in are ingested, files removed are
// de-indexed. Blocks until ctx is cancelled. Editors often write via a
// temp file plus rename, so Create and Write are handled identically.
func (s *Store) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create file watcher")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		s.log.Error().Err(err).Str("dir", s.dir).Msg("failed to watch documents directory")
		return
	}
	s.log.Info().Str("dir", s.dir).Msg("watching documents directory")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			s.log.Info().Msg("context cancelled, shutting down watcher")
			return
		}
	}
}

// handleEvent reacts to one filesystem event. Sidecars, staging files and
// names whose ingestion the store itself has in flight are ignored, so
// an upload's own rename never fights the upload.
func (s *Store) handleEvent(ctx context.Context, event fsnotify.Event) {
	filename := filepath.Base(event.Name)
	if strings.HasSuffix(filename, sidecarSuffix) || strings.HasPrefix(filename, "temp_") {
		return
	}
	if s.isIngesting(filename) {
		return
	}

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		s.log.Info().Str("filename", filename).Msg("file created or modified, re-indexing")
		// Replace = de-index + add. Only chunks and tracking are dropped
		// here; the file on disk is the source of truth and must survive
		// its own edits.
		if err := s.deindex(ctx, filename); err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("failed to de-index changed file")
			return
		}
		if _, err := s.Add(ctx, event.Name, s.loadSidecar(event.Name)); err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("failed to index changed file")
		}

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		s.log.Info().Str("filename", filename).Msg("file removed, de-indexing")
		if _, err := s.Remove(ctx, filename); err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("failed to de-index removed file")
		}
	}
}
