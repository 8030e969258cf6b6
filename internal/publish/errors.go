package publish

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Update when the article does not exist
var ErrNotFound = errors.New("article not found")

// Problem is one field-scoped validation failure
type Problem struct {
	Field   string
	Message string
}

// ValidationError carries every problem found in an input. Nothing was persisted.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	return "invalid article: " + strings.Join(e.Messages(), "; ")
}

// Messages lists the problem messages in the order they were found
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return msgs
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
}

// PersistenceError wraps a store failure that happened after validation passed
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
