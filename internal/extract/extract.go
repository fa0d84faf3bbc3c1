// Package extract turns uploaded files into plain text. Format dispatch is
// by file extension: PDF and DOCX get dedicated readers, everything else
// is treated as text with a lossless single-byte fallback, so plain-text
// ingestion never fails on encoding.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/unidoc/unipdf/v3/common/license"
)

// Func is the pluggable extraction strategy consumed by the document
// store: given a file path, return the decoded text.
type Func func(path string) (string, error)

// SetLicense registers the UniDoc metered license key. PDF extraction
// fails without it; other formats are unaffected.
func SetLicense(key string) error {
	return license.SetMeteredKey(key)
}

// Content extracts text from the file at path, dispatching on extension.
func Content(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(path)
	case ".docx":
		return docxText(path)
	default:
		return textContent(path)
	}
}

// textContent reads the file as UTF-8 text. Invalid UTF-8 falls back to a
// Latin-1 decode (every byte maps to the code point of the same value),
// which cannot fail, so a text read only errors on I/O.
func textContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return decodeText(data), nil
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
