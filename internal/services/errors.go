package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidName   = errors.New("invalid name")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrSynthesis     = errors.New("synthesis error")
	ErrMixing        = errors.New("mixing error")
	ErrAssembly      = errors.New("assembly error")
	ErrConcurrentRun = errors.New("concurrent run")
	ErrFileSystem    = errors.New("filesystem error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatalBeforeWork reports whether an error must abort the run before any
// backend work starts. Sanitizer and validator failures fall in this class.
func IsFatalBeforeWork(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
