package accessory

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a registration failure
type ErrorKind int

const (
	// StackInitFailed indicates the stack runtime could not be initialized
	StackInitFailed ErrorKind = iota
	// DuplicateRegistration indicates the stack already holds the accessory
	DuplicateRegistration
	// ServiceRejected indicates the outlet service could not be built or attached
	ServiceRejected
	// SetupRejected indicates the setup code or identifier was refused
	SetupRejected
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case StackInitFailed:
		return "Stack Init Failed"
	case DuplicateRegistration:
		return "Duplicate Registration"
	case ServiceRejected:
		return "Service Rejected"
	case SetupRejected:
		return "Setup Rejected"
	default:
		return "Unknown"
	}
}

// RegistrationError is returned when a step before the stack starts fails.
// It is fatal for the process.
type RegistrationError struct {
	Kind ErrorKind
	Step string // stack method that failed
	Err  error
}

// Error implements the error interface
func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Step)
}

// Unwrap returns the underlying stack error
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *RegistrationError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var regErr *RegistrationError
	if errors.As(err, &regErr) {
		return regErr.Kind, true
	}
	return 0, false
}

// IsRegistrationError reports whether err is a pre-start registration failure
func IsRegistrationError(err error) bool {
	_, ok := KindOf(err)
	return ok
}

// TroubleshootingHints returns suggestions for a registration failure
func TroubleshootingHints(err error) []string {
	kind, ok := KindOf(err)
	if !ok {
		return nil
	}
	switch kind {
	case StackInitFailed:
		return []string{
			"Check that the stack listen address is free (stack.host / stack.port)",
			"Check that multicast is permitted if stack.advertise is enabled",
		}
	case DuplicateRegistration:
		return []string{
			"Only one outlet accessory may be registered per process",
			"Make sure no other smartoutlet instance is running on this host",
		}
	case SetupRejected:
		return []string{
			"Setup code must have the form NNN-NN-NNN and must not be trivial",
			"Setup id must be 4 characters from 0-9 and A-Z",
		}
	default:
		return []string{"Run with --log-level debug for stack details"}
	}
}
