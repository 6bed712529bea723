package bot

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a CommandError.
type ErrorKind int

const (
	// ErrorKindInternal is an unexpected failure, e.g. a persistence write.
	ErrorKindInternal ErrorKind = iota
	// ErrorKindHTTP is a failed outbound platform call.
	ErrorKindHTTP
	// ErrorKindValidation is user input rejected by domain rules. Its message is shown to the user.
	ErrorKindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindHTTP:
		return "http"
	case ErrorKindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// CommandError is returned by command execution.
type CommandError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case ErrorKindHTTP:
		return "HTTP error: " + e.Message
	case ErrorKindValidation:
		return "Validation error: " + e.Message
	default:
		if e.Err != nil && e.Err.Error() != e.Message {
			return fmt.Sprintf("Internal error: %s: %v", e.Message, e.Err)
		}
		return "Internal error: " + e.Message
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// HTTPError wraps a failed platform call.
func HTTPError(err error) *CommandError {
	return &CommandError{Kind: ErrorKindHTTP, Message: err.Error(), Err: err}
}

// ValidationError rejects user input with a message safe to show the user.
func ValidationError(message string) *CommandError {
	return &CommandError{Kind: ErrorKindValidation, Message: message}
}

// InternalError reports an unexpected failure.
func InternalError(message string) *CommandError {
	return &CommandError{Kind: ErrorKindInternal, Message: message}
}

// WrapInternal reports an unexpected failure caused by err.
func WrapInternal(err error, message string) *CommandError {
	return &CommandError{Kind: ErrorKindInternal, Message: message, Err: err}
}

// AsCommandError classifies err. Errors that are not CommandErrors are Internal.
func AsCommandError(err error) *CommandError {
	if err == nil {
		return nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return &CommandError{Kind: ErrorKindInternal, Message: err.Error(), Err: err}
}
