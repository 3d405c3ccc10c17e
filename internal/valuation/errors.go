package valuation

import (
	"errors"
	"fmt"
)

// InvalidInputError reports malformed or out-of-range property attributes.
// It is always surfaced to the caller and never silently corrected.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// ConfigurationError reports cost-model parameters that are unusable with no
// documented default. It indicates a caller/config defect, not a user-input
// defect, and maps to a 5xx at the HTTP layer.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cost model configuration error: %s", e.Reason)
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
