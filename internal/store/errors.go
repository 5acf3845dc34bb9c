package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"device-allocation-backend/internal/parse"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a change would break the state of related rows.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports request fields that failed a business rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

// translate maps GORM sentinel errors onto the store's own.
func translate(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what, id)
	}
	return err
}

// fieldError converts identifier parse failures into validation errors.
func fieldError(err error) error {
	var fe *parse.FieldError
	if errors.As(err, &fe) {
		return invalid(fe.Field, fe.Msg)
	}
	return err
}

// duplicate maps a unique index violation on field into a validation error.
func duplicate(err error, field, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return invalid(field, msg)
	}
	return err
}
