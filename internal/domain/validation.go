package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports which fields of an incoming request failed
// validation. Handlers build one explicitly instead of relying on
// annotation-driven validators.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError returns nil when fields is empty, so callers can write
// `return domain.NewValidationError(fields)` unconditionally.
func NewValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
