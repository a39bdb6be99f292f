// Package errors holds the error types shared by the wikimd domain packages.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches every ValidationError under errors.Is.
var ErrInvalid = errors.New("invalid")

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every problem found in one validation pass so
// that a config file can be fixed in one go.
type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, item := range e.Items {
		b.WriteString("\n - ")
		b.WriteString(item.Error())
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{Field: field, Message: msg})
}

// Addf records a problem with field, formatting the message like fmt.Sprintf.
func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}

// Err returns e as an error, or nil when nothing was added.
func (e ValidationError) Err() error {
	if !e.HasAny() {
		return nil
	}
	return e
}
