package utils

import "github.com/pkg/errors"

// ConfigurationError is returned at construction time when a Config field
// fails validation (negative radius, out-of-range ratio, etc). It is the
// only error class in this module that aborts eagerly rather than
// surfacing as an invalid RegistrationSolution.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return errors.Errorf("invalid configuration field %q: %s", e.Field, e.Reason).Error()
}

// NewConfigurationError builds a ConfigurationError for the given field.
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// NewUnexpectedTypeError is used when there is a type mismatch, typically
// when an interface value does not hold the concrete type a caller expected.
func NewUnexpectedTypeError(expected, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}
