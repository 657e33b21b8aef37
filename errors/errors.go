package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoResponse indicates that a provider call produced no usable response
	ErrNoResponse = errors.New("no response from provider")

	// ErrInterrupted indicates that the tool loop was cancelled between iterations
	ErrInterrupted = errors.New("interrupted")

	// ErrTooManyCalls indicates that a response requested more parallel tool
	// calls than the loop supports
	ErrTooManyCalls = errors.New("too many parallel tool calls")

	// ErrHistoryInvalidated indicates that a tool invalidated the conversation
	// history and it must not be touched further
	ErrHistoryInvalidated = errors.New("history invalidated")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
