package domain

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when an operation is attempted before the
// store or index is ready.
var ErrNotInitialized = errors.New("knowledge base not initialized")

// ConfigurationError reports invalid chunking parameters.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// ExtractionError reports a content decode failure after all fallbacks
// were exhausted. It aborts ingestion of the affected document only.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IndexError reports a failed operation on the underlying similarity store.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }
