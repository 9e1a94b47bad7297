// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a required file, node or resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidConfig indicates missing or invalid infrastructure configuration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidRequest indicates malformed command input (flags, overrides).
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeInternal indicates an internal error while rendering or writing artifacts.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeTimeout indicates an operation exceeded its time limit.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnavailable indicates a node or registry could not be reached.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	// ErrCodeRemoteExec indicates a command executed on a node returned an error.
	ErrCodeRemoteExec ErrorCode = "REMOTE_EXEC"
	// ErrCodeConflict indicates inconsistent declarations, such as a dependency cycle.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new StructuredError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *StructuredError {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *StructuredError {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in the chain,
// or an empty code when err carries none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
