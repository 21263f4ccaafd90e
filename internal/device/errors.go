package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected reports an operation on a device that is not attached.
	ErrNotConnected = errors.New("device: not connected")

	// ErrConfiguration matches every ConfigurationError with errors.Is.
	ErrConfiguration = errors.New("configuration error")
)

// ConfigurationError reports a call that can never succeed with the given
// arguments, such as mismatched slice lengths or an unknown mode. It is
// always returned to the caller and never recovered locally.
type ConfigurationError struct {
	Op     string
	Reason string
}

// Configurationf builds a ConfigurationError for op.
func Configurationf(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// LengthMismatch reports a per-wheel slice whose length differs from the
// wheel count.
func LengthMismatch(op string, got, want int) *ConfigurationError {
	return Configurationf(op, "got %d values for %d devices", got, want)
}
