package domain

import (
	"errors"
	"fmt"
)

// Error message string constants - single source of truth for error messages.
// Use these in assert.Contains() checks when testing error messages.
const (
	ErrMsgConfiguration      = "configuration error"
	ErrMsgInvariantViolation = "invariant violation"
	ErrMsgUnknownPlayer      = "unknown player"
	ErrMsgUnknownHole        = "unknown hole"
	ErrMsgInvalidScore       = "invalid score"
	ErrMsgRoundNotFound      = "round not found"
	ErrMsgBetNotFound        = "bet not found"
	ErrMsgInvalidInput       = "invalid input"
	ErrMsgRoundCompleted     = "round already completed"
	ErrMsgPressTooLate       = "press too late"
)

// Common domain errors.
// Wrap these with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// ErrConfiguration marks missing or invalid course or bet configuration.
	// It is fatal to the computation it affects.
	ErrConfiguration = errors.New(ErrMsgConfiguration)

	// ErrInvariantViolation is raised when a recompute detects state that correct
	// input can never produce. The engine refuses to emit a result.
	ErrInvariantViolation = errors.New(ErrMsgInvariantViolation)

	ErrUnknownPlayer = errors.New(ErrMsgUnknownPlayer)
	ErrUnknownHole   = errors.New(ErrMsgUnknownHole)
	ErrInvalidScore  = errors.New(ErrMsgInvalidScore)
	ErrRoundNotFound = errors.New(ErrMsgRoundNotFound)
	ErrBetNotFound   = errors.New(ErrMsgBetNotFound)
	ErrInvalidInput  = errors.New(ErrMsgInvalidInput)

	// ErrRoundCompleted rejects score and bet changes once a round is closed.
	ErrRoundCompleted = errors.New(ErrMsgRoundCompleted)

	// ErrPressTooLate rejects a manual press whose start hole has already been played.
	ErrPressTooLate = errors.New(ErrMsgPressTooLate)
)

// ConfigError describes which configuration field was rejected and why.
type ConfigError struct {
	Field  string
	Reason string
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMsgConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// InvariantError identifies the invariant a recompute found broken.
type InvariantError struct {
	Invariant string
	Detail    string
}

// NewInvariantError builds an InvariantError with a formatted detail.
func NewInvariantError(invariant, format string, args ...any) *InvariantError {
	return &InvariantError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMsgInvariantViolation, e.Invariant, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
