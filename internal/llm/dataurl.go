package llm

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// decodeDataURL splits a "data:<mime>;base64,<payload>" URL into its MIME
// type and raw bytes.
func decodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("not a data url")
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, fmt.Errorf("malformed data url")
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == meta {
		return "", nil, fmt.Errorf("data url is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return mimeType, data, nil
}
