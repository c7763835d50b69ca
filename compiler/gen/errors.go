package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidSpec indicates a malformed builder declaration.
	ErrInvalidSpec = errors.New("stepgen: invalid builder spec")
	// ErrUnsupportedPosition indicates an ordered step position the label function cannot name.
	ErrUnsupportedPosition = errors.New("stepgen: unsupported step position")
	// ErrNoBuildSteps indicates a builder without a build step.
	ErrNoBuildSteps = errors.New("stepgen: no build steps")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("stepgen: missing configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("stepgen: code generation failed")
)

// SpecError represents an error in a builder declaration.
type SpecError struct {
	Builder string // Owner type name
	Step    string // Step name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	var b strings.Builder
	b.WriteString("stepgen: spec error")
	if e.Builder != "" {
		b.WriteString(" on builder ")
		b.WriteString(e.Builder)
	}
	if e.Step != "" {
		b.WriteString(" step ")
		b.WriteString(e.Step)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SpecError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SpecError.
func (e *SpecError) Is(target error) bool {
	return target == ErrInvalidSpec
}

// NewSpecError creates a new SpecError.
func NewSpecError(builder, step, message string, cause error) *SpecError {
	return &SpecError{
		Builder: builder,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("stepgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("stepgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Builder string
	Phase   string // "emit", "format", "write", etc.
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("stepgen: generation error")
	if e.Builder != "" {
		b.WriteString(" for builder ")
		b.WriteString(e.Builder)
	}
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(builder, phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Builder: builder,
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsSpecError reports whether the error is a SpecError.
func IsSpecError(err error) bool {
	var specErr *SpecError
	return errors.As(err, &specErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
