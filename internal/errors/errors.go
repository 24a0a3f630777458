// Package errors provides structured error types for mvkit operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindConfig represents an invalid or incomplete request from the caller.
	KindConfig
	// KindTranslation represents a path or command translation that produced unusable output.
	KindTranslation
	// KindExecution represents an external process that exited non-zero or could not start.
	KindExecution
	// KindTimeout represents an invocation that exceeded its wall-clock budget.
	KindTimeout
	// KindMediaRead represents probe output that could not be parsed.
	KindMediaRead
	// KindCancelled represents user-cancelled operations.
	KindCancelled
	// KindValidation represents an output that ran to completion but failed verification.
	KindValidation
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindConfig:
		return "Configuration error"
	case KindTranslation:
		return "Translation error"
	case KindExecution:
		return "Execution failure"
	case KindTimeout:
		return "Timeout"
	case KindMediaRead:
		return "Media read error"
	case KindCancelled:
		return "Operation cancelled"
	case KindValidation:
		return "Validation failed"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
	// CommandTimedOut means the command was torn down after its deadline.
	CommandTimedOut
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Output     string
	Timeout    time.Duration
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Output != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Output)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	case CommandTimedOut:
		return fmt.Sprintf("command %s timed out after %s", e.Command, e.Timeout)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for mvkit operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewConfigErrorf creates a new configuration error from a format string.
func NewConfigErrorf(format string, args ...any) *CoreError {
	return NewConfigError(fmt.Sprintf(format, args...))
}

// NewTranslationError creates an error for a path or command that could not be translated.
func NewTranslationError(path string, underlying error) *CoreError {
	return &CoreError{
		Kind:       KindTranslation,
		Message:    fmt.Sprintf("could not translate %q", path),
		Underlying: underlying,
	}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	cmdErr := &CommandError{Command: cmd, Kind: CommandStart, ExitCode: -1, Underlying: err}
	return &CoreError{Kind: KindExecution, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandFailedError creates an error for when a command returns non-zero exit status.
func NewCommandFailedError(cmd string, exitCode int, output string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Output:   output,
	}
	return &CoreError{Kind: KindExecution, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewTimeoutError creates an error for an invocation that exceeded its deadline.
func NewTimeoutError(cmd string, timeout time.Duration, output string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandTimedOut,
		ExitCode: -1,
		Output:   output,
		Timeout:  timeout,
	}
	return &CoreError{Kind: KindTimeout, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewMediaReadError creates an error for a file whose probe output was unusable.
func NewMediaReadError(path string, underlying error) *CoreError {
	return &CoreError{
		Kind:       KindMediaRead,
		Message:    fmt.Sprintf("invalid audio/video file %s", path),
		Underlying: underlying,
	}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// NewValidationError creates an error for an output that failed its checks.
func NewValidationError(path string, failures []string) *CoreError {
	return &CoreError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("output %s failed validation: %s", path, strings.Join(failures, "; ")),
	}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsConfig checks if the error is a configuration error.
func IsConfig(err error) bool {
	return IsKind(err, KindConfig)
}

// IsTranslation checks if the error is a translation error.
func IsTranslation(err error) bool {
	return IsKind(err, KindTranslation)
}

// IsExecution checks if the error is an execution failure.
func IsExecution(err error) bool {
	return IsKind(err, KindExecution)
}

// IsTimeout checks if the error is a timeout.
func IsTimeout(err error) bool {
	return IsKind(err, KindTimeout)
}

// IsMediaRead checks if the error is a media read error.
func IsMediaRead(err error) bool {
	return IsKind(err, KindMediaRead)
}

// IsValidation checks if the error is an output validation failure.
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// ExitCode extracts the exit status carried by a command error, or -1.
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, output string) *CoreError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), output)
	}
	return NewCommandStartError(cmd, err)
}
