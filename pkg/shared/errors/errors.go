package errors

import (
	"errors"
	"fmt"
	"time"
)

// Stage names the pipeline step a fatal error originated from.
type Stage string

const (
	StageConfig    Stage = "config"
	StageLocate    Stage = "locate"
	StageMatch     Stage = "match"
	StageSerialize Stage = "serialize"
	StageWrite     Stage = "write"
)

// Process exit codes. A scan that produces findings still exits with ExitOK.
const (
	ExitOK        = 0
	ExitUsage     = 1
	ExitLocate    = 2
	ExitTimeout   = 3
	ExitSerialize = 4
)

// NotFoundError is returned when a configured path does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path %q does not exist", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// NewNotFoundError creates a NotFoundError for the given path.
func NewNotFoundError(path string, err error) error {
	return &NotFoundError{Path: path, Err: err}
}

// PermissionError is returned when a directory or file cannot be read due to access rights.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied reading %q", e.Path)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// NewPermissionError creates a PermissionError for the given path.
func NewPermissionError(path string, err error) error {
	return &PermissionError{Path: path, Err: err}
}

// DecodeError is returned when file contents are not valid text or cannot be parsed.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to decode %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("unable to decode %q: %s", e.Path, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewDecodeError creates a DecodeError with an optional underlying cause.
func NewDecodeError(path, reason string, err error) error {
	return &DecodeError{Path: path, Reason: reason, Err: err}
}

// TimeoutError is returned when the whole run exceeds its time budget.
type TimeoutError struct {
	Timeout time.Duration
	Stage   Stage
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scan exceeded timeout of %v during %s stage", e.Timeout, e.Stage)
}

// NewTimeoutError creates a TimeoutError for the stage that was running when the budget ran out.
func NewTimeoutError(timeout time.Duration, stage Stage) error {
	return &TimeoutError{Timeout: timeout, Stage: stage}
}

// SerializationError is returned when a report cannot be turned into a valid document.
type SerializationError struct {
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialization failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("serialization failed: %s", e.Reason)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// NewSerializationError creates a SerializationError.
func NewSerializationError(reason string, err error) error {
	return &SerializationError{Reason: reason, Err: err}
}

// StageError attaches the failed pipeline stage to a fatal error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// WrapStage wraps err with the stage it came from. A nil err stays nil.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// CommandError represents a command failure with an explicit exit code.
type CommandError struct {
	ExitCode int
	Err      error
}

// Error implements the error interface, returning the message from the wrapped error.
func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewCommandError creates a new CommandError instance.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{ExitCode: code, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return ExitTimeout
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case StageLocate:
			return ExitLocate
		case StageSerialize, StageWrite:
			return ExitSerialize
		}
	}
	return ExitUsage
}
