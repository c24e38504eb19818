// Package errors provides standardized error types for the veloctl agent.
//
// The errors package defines domain-specific error types that enable
// structured error handling and consistent error messages throughout
// the application.
//
// # Error Types
//
// AgentError is the primary error type, containing:
//   - Code: Categorizes the error (PARSE, IO, LOCK_TIMEOUT, etc.)
//   - Message: Human-readable error description
//   - Domain: The domain name involved (if applicable)
//   - Step: The switchover step that failed (if applicable)
//   - Err: The underlying wrapped error (if any)
//
// # Sentinel Errors
//
// Common error scenarios have pre-defined sentinel errors:
//
//	errors.ErrRecordNotFound  // registry record doesn't exist
//	errors.ErrLockTimeout     // registry lock could not be acquired in time
//	errors.ErrSwitchConflict  // a switchover is already in progress
//	errors.ErrRootRequired    // root privileges required
//
// # Usage
//
// Creating domain-specific errors:
//
//	// Malformed registry content that cannot be recovered
//	return errors.Parse("unterminated block header", nil)
//
//	// Write failure, original file left untouched
//	return errors.IO("failed to write registry", err)
//
//	// A switchover step failed
//	return errors.ServiceControl("start target", err)
//
// # Error Checking
//
// Use errors.Is for sentinel error comparison:
//
//	if errors.Is(err, errors.ErrLockTimeout) {
//	    // Handle contention
//	}
//
// Use errors.As for type assertion:
//
//	var agentErr *errors.AgentError
//	if errors.As(err, &agentErr) {
//	    fmt.Printf("Error code: %s, Step: %s\n", agentErr.Code, agentErr.Step)
//	}
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors for programmatic handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeParse          ErrorCode = "PARSE"           // Malformed registry content
	ErrCodeIO             ErrorCode = "IO"              // Read/write failure, original preserved
	ErrCodeLockTimeout    ErrorCode = "LOCK_TIMEOUT"    // Registry lock contention
	ErrCodeUnknownEvent   ErrorCode = "UNKNOWN_EVENT"   // Unsubscribed lifecycle event, non-fatal
	ErrCodeServiceControl ErrorCode = "SERVICE_CONTROL" // Switchover step failed
	ErrCodeSwitchConflict ErrorCode = "SWITCH_CONFLICT" // Switchover already in progress
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"       // Resource not found
	ErrCodeValidation     ErrorCode = "VALIDATION"      // Input validation failed
	ErrCodePermission     ErrorCode = "PERMISSION"      // Permission denied
	ErrCodeConfig         ErrorCode = "CONFIG"          // Agent configuration error
	ErrCodeInternal       ErrorCode = "INTERNAL"        // Internal/unexpected error
)

// AgentError represents a structured error with context about the operation.
type AgentError struct {
	Code    ErrorCode // Error category
	Message string    // Human-readable message
	Domain  string    // Domain name (if applicable)
	Step    string    // Switchover step name (if applicable)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	switch {
	case e.Step != "" && e.Err != nil:
		return fmt.Sprintf("step %q: %s: %v", e.Step, e.Message, e.Err)
	case e.Step != "":
		return fmt.Sprintf("step %q: %s", e.Step, e.Message)
	case e.Domain != "" && e.Err != nil:
		return fmt.Sprintf("vhost %s: %s: %v", e.Domain, e.Message, e.Err)
	case e.Domain != "":
		return fmt.Sprintf("vhost %s: %s", e.Domain, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain traversal.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
// Comparison is based on error code.
func (e *AgentError) Is(target error) bool {
	t, ok := target.(*AgentError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for common error scenarios.
// Use these with errors.Is() for error checking.
var (
	// ErrRecordNotFound indicates the requested registry record does not exist.
	ErrRecordNotFound = &AgentError{Code: ErrCodeNotFound, Message: "record not found"}

	// ErrLockTimeout indicates the registry lock was not acquired within the bounded wait.
	ErrLockTimeout = &AgentError{Code: ErrCodeLockTimeout, Message: "registry lock timeout"}

	// ErrSwitchConflict indicates a switchover is already in progress.
	ErrSwitchConflict = &AgentError{Code: ErrCodeSwitchConflict, Message: "switchover already in progress"}

	// ErrUnknownEvent indicates a lifecycle event with no subscribed handler.
	ErrUnknownEvent = &AgentError{Code: ErrCodeUnknownEvent, Message: "unknown event"}

	// ErrInvalidDomain indicates the domain name is not valid.
	ErrInvalidDomain = &AgentError{Code: ErrCodeValidation, Message: "invalid domain"}

	// ErrInvalidService indicates the service name is not a switchover target.
	ErrInvalidService = &AgentError{Code: ErrCodeValidation, Message: "invalid service"}

	// ErrConfigInvalid indicates the agent configuration is invalid or corrupt.
	ErrConfigInvalid = &AgentError{Code: ErrCodeConfig, Message: "invalid configuration"}

	// ErrRootRequired indicates root privileges are required.
	ErrRootRequired = &AgentError{Code: ErrCodePermission, Message: "root privileges required"}
)

// Parse creates an error for malformed registry content.
func Parse(msg string, err error) error {
	return &AgentError{
		Code:    ErrCodeParse,
		Message: msg,
		Err:     err,
	}
}

// IO creates an error for a failed read or write.
func IO(msg string, err error) error {
	return &AgentError{
		Code:    ErrCodeIO,
		Message: msg,
		Err:     err,
	}
}

// LockTimeout creates an error for lock contention on the given path.
func LockTimeout(path string) error {
	return &AgentError{
		Code:    ErrCodeLockTimeout,
		Message: fmt.Sprintf("registry lock timeout on %s", path),
	}
}

// UnknownEvent creates a non-fatal warning for an unsubscribed event.
func UnknownEvent(category, event string) error {
	return &AgentError{
		Code:    ErrCodeUnknownEvent,
		Message: fmt.Sprintf("unknown event %s::%s", category, event),
	}
}

// ServiceControl creates an error carrying the failing switchover step name.
func ServiceControl(step string, err error) error {
	return &AgentError{
		Code:    ErrCodeServiceControl,
		Message: "service control failed",
		Step:    step,
		Err:     err,
	}
}

// SwitchConflict creates an error for a switchover attempted while another
// operation holds the switch lock.
func SwitchConflict() error {
	return &AgentError{
		Code:    ErrCodeSwitchConflict,
		Message: "switchover already in progress",
	}
}

// NotFound creates an error for a registry record that doesn't exist.
func NotFound(domain string) error {
	return &AgentError{
		Code:    ErrCodeNotFound,
		Message: "record not found",
		Domain:  domain,
	}
}

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &AgentError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &AgentError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// WrapDomain creates an error with domain context and underlying error.
func WrapDomain(code ErrorCode, domain string, err error) error {
	return &AgentError{
		Code:   code,
		Domain: domain,
		Err:    err,
	}
}

// Code returns the ErrorCode carried by err, or ErrCodeInternal when err
// is not an AgentError.
func Code(err error) ErrorCode {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As

// New creates a plain error from a message.
// This is a re-export of errors.New for convenience.
var New = errors.New
