// Package errors provides standardized error handling for the configuration
// broker. It includes error classification, sentinel error variables for the
// broker's error taxonomy, and helper functions for consistent error wrapping
// across the system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for the broker's error taxonomy
var (
	// Persistence errors
	ErrNotFound        = errors.New("configuration file not found")
	ErrParse           = errors.New("configuration parse failed")
	ErrUnsupportedType = errors.New("unsupported configuration value type")

	// Runtime change errors
	ErrInvalidArgument = errors.New("invalid argument")

	// Broker startup errors
	ErrConfigDir = errors.New("configuration directory inaccessible")
	ErrNoConfigs = errors.New("no configuration files found")

	// IPC substrate errors
	ErrIPCConnection = errors.New("IPC connection unavailable")
	ErrNameClaimed   = errors.New("service name already claimed")
	ErrNotConnected  = errors.New("not connected to bus")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrIPCConnection) ||
		errors.Is(err, ErrNotConnected)
}

// IsFatal checks if an error is fatal and should stop the process
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrConfigDir) ||
		errors.Is(err, ErrNoConfigs) ||
		errors.Is(err, ErrNameClaimed)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrUnsupportedType)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	return ErrorTransient
}

// newClassified creates a new classified error.
// Internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Kind returns the taxonomy sentinel matched by err, or nil if none matches.
// Used by the IPC layer to put a stable error kind on the wire.
func Kind(err error) error {
	for _, sentinel := range []error{
		ErrNotFound, ErrParse, ErrUnsupportedType, ErrInvalidArgument,
		ErrConfigDir, ErrNoConfigs, ErrNameClaimed, ErrIPCConnection,
		ErrNotConnected,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

// KindName returns a stable string identifier for the taxonomy kind of err,
// or "unknown" if the error does not match a known kind.
func KindName(err error) string {
	switch Kind(err) {
	case ErrNotFound:
		return "NotFound"
	case ErrParse:
		return "ParseError"
	case ErrUnsupportedType:
		return "TypeError"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrConfigDir:
		return "ConfigDirError"
	case ErrNoConfigs:
		return "NoConfigsFound"
	case ErrIPCConnection, ErrNotConnected:
		return "IpcConnectionError"
	case ErrNameClaimed:
		return "NameClaimed"
	default:
		return "unknown"
	}
}

// FromKindName maps a wire kind identifier back to its sentinel error.
// Unknown identifiers return nil.
func FromKindName(name string) error {
	switch name {
	case "NotFound":
		return ErrNotFound
	case "ParseError":
		return ErrParse
	case "TypeError":
		return ErrUnsupportedType
	case "InvalidArgument":
		return ErrInvalidArgument
	case "ConfigDirError":
		return ErrConfigDir
	case "NoConfigsFound":
		return ErrNoConfigs
	case "IpcConnectionError":
		return ErrIPCConnection
	case "NameClaimed":
		return ErrNameClaimed
	default:
		return nil
	}
}
