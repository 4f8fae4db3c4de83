package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing indicates a required environment variable or file was not set.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrInvalidValue indicates a field has an invalid value.
	ErrInvalidValue = errors.New("invalid field value")

	// ErrLLMProviderNotFound indicates a provider was not found in the registry.
	ErrLLMProviderNotFound = errors.New("LLM provider not found")

	// ErrEmbeddingProviderNotFound indicates an embedding provider was not found.
	ErrEmbeddingProviderNotFound = errors.New("embedding provider not found")
)

// ValidationError wraps configuration validation errors with context.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}
