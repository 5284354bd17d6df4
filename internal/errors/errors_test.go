package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestJlsError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      CompilerInvocationFailed,
			message:   "javac could not be started",
			cause:     errors.New("executable file not found"),
			wantParts: []string{"COMPILER_INVOCATION_FAILED", "javac could not be started", "executable file not found"},
		},
		{
			name:      "without cause",
			code:      DocumentNotOpen,
			message:   "file:///a/Foo.java is not open",
			cause:     nil,
			wantParts: []string{"DOCUMENT_NOT_OPEN", "file:///a/Foo.java is not open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestJlsError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	if New(ParseFailed, "no tree", nil).Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestJlsError_IsByCode(t *testing.T) {
	wrapped := fmt.Errorf("open document: %w", New(ParseFailed, "no tree", nil))

	if !errors.Is(wrapped, &JlsError{Code: ParseFailed}) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(wrapped, &JlsError{Code: ClassDecodeFailed}) {
		t.Error("errors.Is should not match a different code")
	}
	if got := CodeOf(wrapped); got != ParseFailed {
		t.Errorf("CodeOf() = %v, want %v", got, ParseFailed)
	}
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %v, want %v", got, InternalError)
	}
}

func TestJlsError_WithDetails(t *testing.T) {
	err := Newf(ConfigInvalid, "bad value %q", "x")
	if result := err.WithDetails(map[string]string{"field": "logging.format"}); result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantLen int
	}{
		{CompilerInvocationFailed, 1},
		{ClasspathUnavailable, 2},
		{ConfigInvalid, 1},
		{ParseFailed, 0},
		{InternalError, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := len(GetSuggestedFixes(tt.code)); got != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, got, tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ParseFailed,
		ClassDecodeFailed,
		CompilerInvocationFailed,
		DocumentNotOpen,
		ConfigInvalid,
		ClasspathUnavailable,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true
		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
