package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klarifai/queen-rag/internal/domain"
)

// fakeIndex is an in-memory domain.Index keyed by filename.
type fakeIndex struct {
	mu      sync.Mutex
	chunks  map[string][]domain.Chunk
	failAdd bool
	deletes int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{chunks: make(map[string][]domain.Chunk)}
}

func (f *fakeIndex) Upsert(_ context.Context, chunks []domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return &domain.IndexError{Op: "upsert", Err: errors.New("store unavailable")}
	}
	for _, c := range chunks {
		f.chunks[c.Filename] = append(f.chunks[c.Filename], c)
	}
	return nil
}

func (f *fakeIndex) DeleteByFilename(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.chunks, filename)
	return nil
}

func (f *fakeIndex) Filenames(_ context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make(map[string]struct{}, len(f.chunks))
	for name := range f.chunks {
		names[name] = struct{}{}
	}
	return names, nil
}

func (f *fakeIndex) Query(_ context.Context, _ string, _ int) ([]domain.SearchHit, error) {
	return nil, nil
}

func (f *fakeIndex) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chunks {
		n += len(c)
	}
	return n, nil
}

func newTestStore(t *testing.T, idx domain.Index) *Store {
	t.Helper()
	store, err := New(t.TempDir(), idx, nil, 1000, 200, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAddListRemoveRoundTrip(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "notes.md", "some markdown content")
	result, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Chunks)

	docs, err := store.List()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.md", docs[0].Filename)
	assert.Equal(t, int64(len("some markdown content")), docs[0].Size)
	assert.Equal(t, "md", docs[0].Type)

	removed, err := store.Remove(ctx, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, removed.Status)

	docs, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, docs)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddIsIdempotent(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "doc.txt", "hello")
	first, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, first.Status)

	countAfterFirst, err := idx.Count(ctx)
	require.NoError(t, err)

	second, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExists, second.Status)

	countAfterSecond, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, countAfterSecond)
}

func TestAddChunksLongDocuments(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	content := make([]byte, 2500)
	for i := range content {
		content[i] = 'a'
	}
	path := writeDoc(t, store.Dir(), "long.txt", string(content))

	result, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Chunks)

	chunks := idx.chunks["long.txt"]
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, "long.txt_chunk_"+string(rune('0'+i)), c.ID)
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, 4, c.Total)
	}
}

func TestAddWritesSidecarWhenMetadataGiven(t *testing.T) {
	store := newTestStore(t, newFakeIndex())
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "report.txt", "quarterly numbers")
	_, err := store.Add(ctx, path, map[string]any{"description": "Q3 report"})
	require.NoError(t, err)

	sidecar := filepath.Join(store.Dir(), "report.meta.json")
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Q3 report")

	// List surfaces the sidecar metadata but not the sidecar file itself.
	docs, err := store.List()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Q3 report", docs[0].Metadata["description"])
}

func TestAddIndexFailureLeavesUntracked(t *testing.T) {
	idx := newFakeIndex()
	idx.failAdd = true
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "doc.txt", "hello")
	_, err := store.Add(ctx, path, nil)
	require.Error(t, err)
	var idxErr *domain.IndexError
	assert.ErrorAs(t, err, &idxErr)
	assert.False(t, store.IsTracked("doc.txt"))

	// Partial chunks were cleaned up by filename.
	assert.Equal(t, 1, idx.deletes)

	// The document can be added once the index recovers.
	idx.failAdd = false
	result, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
}

func TestAddExtractionFailure(t *testing.T) {
	store := newTestStore(t, newFakeIndex())
	_, err := store.Add(context.Background(), filepath.Join(store.Dir(), "missing.txt"), nil)
	require.Error(t, err)
	var extErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extErr)
}

func TestAddTextWithInvalidEncoding(t *testing.T) {
	store := newTestStore(t, newFakeIndex())
	ctx := context.Background()

	path := filepath.Join(store.Dir(), "legacy.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 'h', 'i'}, 0o644))

	result, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
}

func TestRemoveUnknownIsNotFound(t *testing.T) {
	store := newTestStore(t, newFakeIndex())
	result, err := store.Remove(context.Background(), "ghost.txt")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, result.Status)
}

func TestReconcileIngestsNewAndSkipsIndexed(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	// One file already in the index from a previous run, one brand new.
	writeDoc(t, store.Dir(), "old.txt", "previously indexed")
	idx.chunks["old.txt"] = []domain.Chunk{{ID: "old.txt_chunk_0", Filename: "old.txt"}}
	writeDoc(t, store.Dir(), "new.txt", "fresh content")

	require.NoError(t, store.Reconcile(ctx))

	assert.True(t, store.IsTracked("old.txt"))
	assert.True(t, store.IsTracked("new.txt"))
	// old.txt was not re-ingested: still exactly one chunk.
	assert.Len(t, idx.chunks["old.txt"], 1)
	assert.NotEmpty(t, idx.chunks["new.txt"])
}

func TestReconcileSkipsSidecars(t *testing.T) {
	store := newTestStore(t, newFakeIndex())
	writeDoc(t, store.Dir(), "doc.meta.json", `{"description":"sidecar"}`)

	require.NoError(t, store.Reconcile(context.Background()))
	assert.Zero(t, store.Documents())
}

func TestReindexRebuildsChunks(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "doc.txt", "content")
	_, err := store.Add(ctx, path, nil)
	require.NoError(t, err)

	n, err := store.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.IsTracked("doc.txt"))
	assert.Len(t, idx.chunks["doc.txt"], 1)
}

func TestIngestStagesAndIndexes(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	result, err := store.Ingest(ctx, "notes.md", strings.NewReader("uploaded content"), map[string]any{"description": "upload"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.True(t, store.IsTracked("notes.md"))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded content", string(data))
	assert.NotEmpty(t, idx.chunks["notes.md"])

	// Sidecar written, no staging files left behind.
	_, err = os.Stat(filepath.Join(store.Dir(), "notes.meta.json"))
	require.NoError(t, err)
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "temp_"))
	}
}

func TestIngestDuplicateIsExists(t *testing.T) {
	store := newTestStore(t, newFakeIndex())
	ctx := context.Background()

	first, err := store.Ingest(ctx, "doc.txt", strings.NewReader("one"), nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, first.Status)

	second, err := store.Ingest(ctx, "doc.txt", strings.NewReader("two"), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExists, second.Status)

	// The original upload survives untouched.
	data, err := os.ReadFile(filepath.Join(store.Dir(), "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestIngestIndexFailureCleansUp(t *testing.T) {
	idx := newFakeIndex()
	idx.failAdd = true
	store := newTestStore(t, idx)

	_, err := store.Ingest(context.Background(), "doc.txt", strings.NewReader("hello"), nil)
	require.Error(t, err)
	assert.False(t, store.IsTracked("doc.txt"))
	_, statErr := os.Stat(filepath.Join(store.Dir(), "doc.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWatchRewriteKeepsSourceFile(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "notes.md", "first draft")
	_, err := store.Add(ctx, path, map[string]any{"description": "notes"})
	require.NoError(t, err)

	// In-place edit: the watcher must re-index, never touch the file.
	require.NoError(t, os.WriteFile(path, []byte("second draft"), 0o644))
	store.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second draft", string(data))
	assert.True(t, store.IsTracked("notes.md"))

	chunks := idx.chunks["notes.md"]
	require.Len(t, chunks, 1)
	assert.Equal(t, "second draft", chunks[0].Text)
	// Sidecar metadata survived the rewrite and rode into the new chunks.
	assert.Equal(t, "notes", chunks[0].Metadata["description"])
	_, err = os.Stat(filepath.Join(store.Dir(), "notes.meta.json"))
	require.NoError(t, err)
}

func TestWatchRemoveEventDropsDocument(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "notes.md", "content")
	_, err := store.Add(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	store.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Remove})

	assert.False(t, store.IsTracked("notes.md"))
	assert.Empty(t, idx.chunks["notes.md"])
}

func TestWatchIgnoresFileMidIngest(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	path := writeDoc(t, store.Dir(), "upload.md", "uploaded body")
	store.mu.Lock()
	store.ingesting["upload.md"] = struct{}{}
	store.mu.Unlock()

	store.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create})

	// The event was dropped: no auto-ingest raced the upload.
	assert.Empty(t, idx.chunks["upload.md"])
	assert.False(t, store.IsTracked("upload.md"))
}

func TestWatchIgnoresSidecarsAndStagingFiles(t *testing.T) {
	idx := newFakeIndex()
	store := newTestStore(t, idx)
	ctx := context.Background()

	sidecar := writeDoc(t, store.Dir(), "doc.meta.json", `{"description":"x"}`)
	staging := writeDoc(t, store.Dir(), "temp_abc_doc.txt", "partial")
	store.handleEvent(ctx, fsnotify.Event{Name: sidecar, Op: fsnotify.Create})
	store.handleEvent(ctx, fsnotify.Event{Name: staging, Op: fsnotify.Create})

	assert.Zero(t, store.Documents())
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewRejectsBadChunkParams(t *testing.T) {
	_, err := New(t.TempDir(), newFakeIndex(), nil, 100, 100, zerolog.Nop())
	require.Error(t, err)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
