package extract

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTextValidUTF8(t *testing.T) {
	assert.Equal(t, "héllo wörld", decodeText([]byte("héllo wörld")))
}

func TestDecodeTextLatin1Fallback(t *testing.T) {
	// 0xE9 is 'é' in Latin-1 but invalid as a standalone UTF-8 byte.
	data := []byte{'c', 'a', 'f', 0xE9}
	decoded := decodeText(data)
	assert.True(t, utf8.ValidString(decoded))
	assert.Equal(t, "café", decoded)
}

func TestTextContentNeverFailsOnEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binaryish.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xFE, 'o', 'k'}, 0o644))

	text, err := textContent(path)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, "ok")
}

func TestContentDispatchesUnknownExtensionAsText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# heading\nbody"), 0o644))

	text, err := Content(path)
	require.NoError(t, err)
	assert.Equal(t, "# heading\nbody", text)
}

func TestContentMissingFile(t *testing.T) {
	_, err := Content(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
