// Package stepgen generates staged builders: chains of Go interfaces that only
// expose the next legal step of a construction sequence, so that calling the
// steps of an owner type out of order fails to compile.
//
// The generator lives in the compiler packages and the stepgen command. This
// package holds the errors reported by a generation run.
package stepgen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of a generation run.
var (
	// ErrNoBuilders is returned when the loaded packages or spec files do not
	// declare any builder.
	ErrNoBuilders = errors.New("stepgen: no builders found")

	// ErrDuplicateOutput is returned when two builders are written to the
	// same file.
	ErrDuplicateOutput = errors.New("stepgen: duplicate output file")
)

// BuilderError reports the failure of a single builder. The other builders of
// the run are not affected by it.
type BuilderError struct {
	Builder string // Owner type name
	Pos     string // Declaration position, if known
	Err     error  // Underlying error
}

// Error returns the error string.
func (e *BuilderError) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("stepgen: builder %s (%s): %v", e.Builder, e.Pos, e.Err)
	}
	return fmt.Sprintf("stepgen: builder %s: %v", e.Builder, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuilderError) Unwrap() error {
	return e.Err
}

// NewBuilderError returns a new BuilderError.
func NewBuilderError(builder, pos string, err error) *BuilderError {
	return &BuilderError{Builder: builder, Pos: pos, Err: err}
}

// IsBuilderError returns true if the error is a BuilderError.
func IsBuilderError(err error) bool {
	if err == nil {
		return false
	}
	var e *BuilderError
	return errors.As(err, &e)
}

// AggregateError represents the errors of all builders that failed in a run.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "stepgen: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "stepgen: %d builders failed:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors, so errors.Is and errors.As inspect
// every one of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil. A single error is returned as is.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// Failed returns the names of the builders reported by err.
func Failed(err error) []string {
	var names []string
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *BuilderError:
			names = append(names, e.Builder)
		case interface{ Unwrap() []error }:
			for _, err := range e.Unwrap() {
				walk(err)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return names
}
