package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownModel is returned when a model UID is not in the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownSourceField is returned by FieldMapping.Set for a source
	// field that was not observed in the sample record.
	ErrUnknownSourceField = errors.New("unknown source field")

	// ErrUnknownTargetField is returned by FieldMapping.Set for a target
	// that is not a field of the model.
	ErrUnknownTargetField = errors.New("unknown target field")

	// ErrTemplateNotFound is returned when a mapping template does not exist.
	ErrTemplateNotFound = errors.New("mapping template not found")

	// ErrTemplateExists is wrapped by stores when a model already has a
	// template with the same name.
	ErrTemplateExists = errors.New("already exists")
)

// ParseError reports content that does not decode under the format chosen
// from its file extension.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports request preconditions that failed before any
// record was persisted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func newValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// PersistenceError wraps a store failure. Its message is the store's own
// message so callers see the underlying cause unchanged.
type PersistenceError struct {
	Op    string
	Model string
	Err   error
}

func (e *PersistenceError) Error() string {
	return e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ImportError terminates a batch. Index is the position of the record that
// failed; records before it remain persisted.
type ImportError struct {
	Model string
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	return e.Err.Error()
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
