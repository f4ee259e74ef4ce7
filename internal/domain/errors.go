package domain

import (
	"errors"
	"fmt"
)

// FatalError defines an interface for errors that must abort a run
type FatalError interface {
	error
	IsFatal() bool
}

// IsFatal checks if an error aborts the simulation
func IsFatal(err error) bool {
	var fe FatalError
	if errors.As(err, &fe) {
		return fe.IsFatal()
	}
	return false
}

// InputError reports external input that no sanitation rule can repair,
// e.g. a strategy returning a NaN price or a market generator returning +Inf.
type InputError struct {
	Source string // "strategy", "market", "slippage"
	Field  string
	Value  float64
	Err    error // nil = ErrNonFinite
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s returned invalid %s (%v): %v", e.Source, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s returned non-finite %s (%v): %v", e.Source, e.Field, e.Value, ErrNonFinite)
}

func (e *InputError) IsFatal() bool {
	return true
}

func (e *InputError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNonFinite
}

// NewInputError creates a fatal input error
func NewInputError(source, field string, value float64) *InputError {
	return &InputError{Source: source, Field: field, Value: value}
}

// ConfigError represents a configuration error (always fatal)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsFatal() bool {
	return true
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrNonFinite is wrapped by InputError.
	ErrNonFinite = errors.New("non-finite value")

	// ErrUnknownOrderKind is wrapped by InputError for a proposal that is neither limit nor market.
	ErrUnknownOrderKind = errors.New("unknown order kind")

	// ErrRunNotFound is returned when a stored or cached run does not exist
	ErrRunNotFound = errors.New("run not found")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnknownStrategy is returned when a strategy name is not registered
	ErrUnknownStrategy = errors.New("unknown strategy")
)
