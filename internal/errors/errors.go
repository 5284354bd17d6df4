// Package errors defines the coded error type shared by the server packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailed indicates the Java grammar could not produce a syntax tree
	ParseFailed ErrorCode = "PARSE_FAILED"
	// ClassDecodeFailed indicates a class file could not be decoded
	ClassDecodeFailed ErrorCode = "CLASS_DECODE_FAILED"
	// CompilerInvocationFailed indicates the compiler could not be run or its output read
	CompilerInvocationFailed ErrorCode = "COMPILER_INVOCATION_FAILED"
	// DocumentNotOpen indicates a request referenced a URI that is not open
	DocumentNotOpen ErrorCode = "DOCUMENT_NOT_OPEN"
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ClasspathUnavailable indicates the build tool did not produce a classpath
	ClasspathUnavailable ErrorCode = "CLASSPATH_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// JlsError carries a stable code, a human message and the underlying cause.
type JlsError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new JlsError
func New(code ErrorCode, message string, cause error) *JlsError {
	return &JlsError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new JlsError with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *JlsError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *JlsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *JlsError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a JlsError with the same code.
func (e *JlsError) Is(target error) bool {
	t, ok := target.(*JlsError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *JlsError) WithDetails(details interface{}) *JlsError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first JlsError in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var je *JlsError
	if stderrors.As(err, &je) {
		return je.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	CompilerInvocationFailed: {
		{
			Type:        InstallTool,
			Tool:        "javac",
			Description: "Install a JDK and make sure javac is on PATH, or set compiler.command",
		},
	},
	ClasspathUnavailable: {
		{
			Type:        RunCommand,
			Command:     "mvn dependency:resolve",
			Description: "Resolve Maven dependencies so the classpath can be computed",
		},
		{
			Type:        RunCommand,
			Command:     "gradle dependencies",
			Description: "Resolve Gradle dependencies so the classpath can be computed",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditConfig,
			Command:     "jls config init",
			Description: "Regenerate .jls/config.toml with default values",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
