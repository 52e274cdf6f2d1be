package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategorySource Category = "source"
	CategoryDecode Category = "decode"
	CategoryCrop   Category = "crop"
	CategoryEncode Category = "encode"
	CategoryCache  Category = "cache"
	CategoryConfig Category = "config"
	CategoryInput  Category = "input"
)

// TransformError is the structured error type used throughout the module.
type TransformError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// New creates a TransformError.
func New(category Category, op string, err error) *TransformError {
	return &TransformError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var te *TransformError
	if errors.As(err, &te) {
		return te.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrEmptyInput        = errors.New("empty input")
	ErrSourceNotFound    = errors.New("source not found")
	ErrNoSourceForScheme = errors.New("no byte source registered for scheme")
)
