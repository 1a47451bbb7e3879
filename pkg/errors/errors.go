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
	"errors"
	"fmt"
)

// ErrorCode represents a structured error classification. Codes double as
// wire-level status values in command replies, so their string values are
// part of the daemon protocol and must stay stable.
type ErrorCode string

const (
	// ErrCodeVersionMismatch indicates an unsupported wire or plugin ABI
	// version. Fatal to the request; never retried automatically.
	ErrCodeVersionMismatch ErrorCode = "VERSION_MISMATCH"
	// ErrCodeBadParameter indicates a malformed command header or payload.
	ErrCodeBadParameter ErrorCode = "BAD_PARAMETER"
	// ErrCodePaused indicates the module refused a run because it is paused.
	// The caller may retry after the module is resumed.
	ErrCodePaused ErrorCode = "PAUSED"
	// ErrCodeFunctionNotFound indicates an unknown subcommand.
	ErrCodeFunctionNotFound ErrorCode = "FUNCTION_NOT_FOUND"
	// ErrCodeQueryFailure indicates a collaborator call (telemetry, loader)
	// failed. The affected check is marked failed; the run continues.
	ErrCodeQueryFailure ErrorCode = "QUERY_FAILURE"
	// ErrCodeHardwareFailure indicates a check found a genuine GPU fault.
	ErrCodeHardwareFailure ErrorCode = "HARDWARE_FAILURE"
	// ErrCodeCapacityExceeded indicates a bounded result list is full.
	// Surfaced via a continuation flag, never by dropping data silently.
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	// ErrCodeTimeout indicates an operation exceeded its time limit.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeNotFound indicates a requested resource (plugin, test) was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeInProgress indicates another diagnostic is already running.
	ErrCodeInProgress ErrorCode = "IN_PROGRESS"

	// ErrCodeOK is the wire status for a successful command. It is not a
	// valid StructuredError code.
	ErrCodeOK ErrorCode = "OK"
)

// StructuredError provides structured error information for better
// observability. It includes an error code for programmatic handling, a
// human-readable message, the underlying cause, and optional context.
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

// CodeOf extracts the ErrorCode from err. A nil error maps to ErrCodeOK and
// an error that is not a StructuredError maps to ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
