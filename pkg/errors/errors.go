// Package errors provides custom error types for the kata-landlock tooling.
// These errors enable programmatic error checking and carry the remediation
// text the CLI prints when a run fails.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the kata-landlock system
var (
	// ErrVendoredMissing indicates the vendored config file does not exist locally
	ErrVendoredMissing = errors.New("vendored config missing")

	// ErrDrift indicates the vendored config differs from the derived config
	ErrDrift = errors.New("vendored config out of sync")

	// ErrInvariant indicates a derived config failed a required post-condition
	ErrInvariant = errors.New("config invariant violated")

	// ErrFetch indicates the upstream baseline could not be obtained
	ErrFetch = errors.New("upstream fetch failed")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")
)

// FetchError represents a failure to obtain the upstream baseline config.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{URL: url, StatusCode: statusCode, Err: err}
}

// InvariantError represents a derived config that fails a required
// post-condition: a key is missing or carries an unexpected value.
type InvariantError struct {
	Key  string
	Want string
	Line string // offending line, empty when the key is missing entirely
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("derived configuration is missing %s", e.Key)
	}
	return fmt.Sprintf("derived configuration has unexpected %s value: %s", e.Key, e.Line)
}

// Is implements errors.Is support
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// NewInvariantError creates a new InvariantError
func NewInvariantError(key, want, line string) *InvariantError {
	return &InvariantError{Key: key, Want: want, Line: line}
}

// DriftError represents a vendored config that differs from the derived
// output in check mode.
type DriftError struct {
	Path string
}

// Error implements the error interface
func (e *DriftError) Error() string {
	return fmt.Sprintf("vendored config %s does not match derived output; rerun with --write to update the file", e.Path)
}

// Is implements errors.Is support
func (e *DriftError) Is(target error) bool {
	return target == ErrDrift
}

// MissingVendoredError represents a reconcile run in check mode with no
// vendored copy to compare against.
type MissingVendoredError struct {
	Path string
}

// Error implements the error interface
func (e *MissingVendoredError) Error() string {
	return fmt.Sprintf("vendored config missing at %s; rerun with --write to create it", e.Path)
}

// Is implements errors.Is support
func (e *MissingVendoredError) Is(target error) bool {
	return target == ErrVendoredMissing
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ProcessError represents an error from an external process or command
type ProcessError struct {
	Operation string // What operation was being performed
	Command   string // The command that was executed
	Output    string // Stdout/stderr output from the process
	ExitCode  int    // Exit code if available
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("process error during %s (command: %s): %v\nOutput: %s", e.Operation, e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("process error during %s (command: %s): %v", e.Operation, e.Command, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// NewProcessError creates a new ProcessError
func NewProcessError(operation, command, output string, err error) *ProcessError {
	return &ProcessError{
		Operation: operation,
		Command:   command,
		Output:    output,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsFetch checks if an error is an upstream fetch error
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsInvariant checks if an error is an invariant violation
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// IsDrift checks if an error is a drift error
func IsDrift(err error) bool {
	return errors.Is(err, ErrDrift)
}

// IsVendoredMissing checks if an error indicates a missing vendored config
func IsVendoredMissing(err error) bool {
	return errors.Is(err, ErrVendoredMissing)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}
