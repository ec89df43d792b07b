// Package errors provides structured error types for chunksplit.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the API server and the library
//   - Machine-readable error codes for programmatic handling
//   - Typed build errors carrying the offending module and chunk names
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (configuration, rules, templates)
//   - UNRESOLVED_MODULE, ASSEMBLY_INVARIANT, NAMING_CONFLICT: fatal build errors
//   - NOT_FOUND: Stored resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// # Fatal build errors
//
// [UnresolvedModuleError], [AssemblyInvariantViolation] and [NamingConflictError]
// abort a build pass. No partial chunk graph is ever emitted after one of them.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "entry %q has no roots", name)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle validation error
//	}
//
//	var unresolved *errors.UnresolvedModuleError
//	if stderrors.As(err, &unresolved) {
//	    fmt.Println(unresolved.Module, unresolved.Import)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidRule     Code = "INVALID_RULE"
	ErrCodeInvalidTemplate Code = "INVALID_TEMPLATE"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Fatal build errors
	ErrCodeUnresolvedModule  Code = "UNRESOLVED_MODULE"
	ErrCodeAssemblyInvariant Code = "ASSEMBLY_INVARIANT"
	ErrCodeNamingConflict    Code = "NAMING_CONFLICT"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by the typed build errors.
type coder interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed build error
// with a matching code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no coded error is found in the chain.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns the error text without code or stage prefixes, for
// responses that carry the code separately. Causes of an *Error are appended.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause == nil {
			return e.Message
		}
		return e.Message + ": " + UserMessage(e.Cause)
	}
	var c coder
	if errors.As(err, &c) {
		return c.Error()
	}
	return err.Error()
}

// IsFatalBuild reports whether err aborts a build pass: an unresolved
// import, an assembly invariant violation or an output naming conflict.
func IsFatalBuild(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnresolvedModule, ErrCodeAssemblyInvariant, ErrCodeNamingConflict:
		return true
	}
	return false
}

// UnresolvedModuleError is returned when an import target (or an entry root)
// is missing from the module table.
type UnresolvedModuleError struct {
	Module string // importing module id, or the entry name for a root
	Import string // the id that could not be found
}

func (e *UnresolvedModuleError) Error() string {
	return fmt.Sprintf("unresolved module: %q imports %q", e.Module, e.Import)
}

// Code returns the error code for this error type.
func (e *UnresolvedModuleError) Code() Code { return ErrCodeUnresolvedModule }

// AssemblyInvariantViolation is returned when a module would be placed in two
// different chunks, or in none. It indicates a classification defect.
type AssemblyInvariantViolation struct {
	Module string
	First  string // chunk the module already belongs to; empty for an orphan
	Second string
}

func (e *AssemblyInvariantViolation) Error() string {
	if e.First == "" {
		return fmt.Sprintf("assembly invariant violated: module %q has no owning chunk", e.Module)
	}
	return fmt.Sprintf("assembly invariant violated: module %q assigned to both %q and %q",
		e.Module, e.First, e.Second)
}

// Code returns the error code for this error type.
func (e *AssemblyInvariantViolation) Code() Code { return ErrCodeAssemblyInvariant }

// NamingConflictError is returned when two chunks resolve to the same output
// file name within one build.
type NamingConflictError struct {
	First    string
	Second   string
	Filename string
}

func (e *NamingConflictError) Error() string {
	return fmt.Sprintf("naming conflict: chunks %q and %q both resolve to %q",
		e.First, e.Second, e.Filename)
}

// Code returns the error code for this error type.
func (e *NamingConflictError) Code() Code { return ErrCodeNamingConflict }
