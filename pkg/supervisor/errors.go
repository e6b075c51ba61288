package supervisor

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a supervisor error.
type ErrorCode string

// Error codes.
const (
	ErrCodeDuplicateName   ErrorCode = "DUPLICATE_NAME"
	ErrCodeUnknownProcess  ErrorCode = "UNKNOWN_PROCESS"
	ErrCodeCycleDetected   ErrorCode = "CYCLE_DETECTED"
	ErrCodeBudgetExhausted ErrorCode = "RESTART_BUDGET_EXHAUSTED"
	ErrCodeInvalidConfig   ErrorCode = "INVALID_CONFIG"
	ErrCodeSpawnFailed     ErrorCode = "SPAWN_FAILED"
	ErrCodeShutdown        ErrorCode = "SHUT_DOWN"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrDuplicateName          = &Error{Code: ErrCodeDuplicateName}
	ErrUnknownProcess         = &Error{Code: ErrCodeUnknownProcess}
	ErrCycleDetected          = &Error{Code: ErrCodeCycleDetected}
	ErrRestartBudgetExhausted = &Error{Code: ErrCodeBudgetExhausted}
	ErrInvalidConfig          = &Error{Code: ErrCodeInvalidConfig}
	ErrSpawnFailed            = &Error{Code: ErrCodeSpawnFailed}
	ErrShutdown               = &Error{Code: ErrCodeShutdown}
)

// Error is returned by supervisor operations and delivered with state
// transitions that the supervisor itself caused.
type Error struct {
	Code    ErrorCode
	Process string
	Message string
	Cause   error
}

func newError(code ErrorCode, process, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Process: process,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Process != "" {
		msg += " " + e.Process
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// PanicError is the exit error of a worker that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
