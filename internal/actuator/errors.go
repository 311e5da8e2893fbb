package actuator

import "errors"

// ErrorKind represents the category of an actuator error
type ErrorKind int

const (
	// NotInitialized indicates a write arrived before a pin was bound
	NotInitialized ErrorKind = iota
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case NotInitialized:
		return "Not Initialized"
	default:
		return "Unknown"
	}
}

// ActuatorError is returned by Guard operations that could not be applied.
type ActuatorError struct {
	Kind  ErrorKind
	Value bool // value that was requested
}

// Error implements the error interface
func (e *ActuatorError) Error() string {
	if e.Kind == NotInitialized {
		return "actuator not initialized: write dropped"
	}
	return "actuator error: " + e.Kind.String()
}

// IsNotInitialized reports whether err is a dropped pre-bind write.
func IsNotInitialized(err error) bool {
	var actErr *ActuatorError
	return errors.As(err, &actErr) && actErr.Kind == NotInitialized
}
