package resource

import (
	"errors"
	"fmt"
)

// Standard store errors
var (
	// ErrInvalidConfiguration is returned when the configuration is invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrAuthenticationFailed is returned when authentication fails
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidIdentifier is returned when a string identifier cannot be
	// coerced to the store's native identifier type
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrStoreFailed is returned when the backing store rejects an operation
	ErrStoreFailed = errors.New("store operation failed")

	// ErrNotConnected is returned when an operation gives up waiting for a
	// connection to become ready
	ErrNotConnected = errors.New("not connected")
)

// StoreError wraps backing-store errors with the binding and operation that
// produced them. This provides a consistent error structure across bindings.
type StoreError struct {
	Store     string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Store, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error.
func (e *StoreError) Is(target error) bool {
	if errors.Is(target, ErrStoreFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewStoreError creates a new StoreError.
func NewStoreError(store string, operation string, cause error) *StoreError {
	return &StoreError{
		Store:     store,
		Operation: operation,
		Cause:     cause,
	}
}

// ConnectionError is returned when a connection error occurs.
type ConnectionError struct {
	Host     string
	Port     int
	Database string
	Cause    error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s:%d/%s: %v", e.Host, e.Port, e.Database, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(host string, port int, database string, cause error) *ConnectionError {
	return &ConnectionError{
		Host:     host,
		Port:     port,
		Database: database,
		Cause:    cause,
	}
}

// AuthenticationError is returned when the store rejects the configured
// credentials.
type AuthenticationError struct {
	Username string
	Host     string
	Cause    error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for user '%s' at %s: %v", e.Username, e.Host, e.Cause)
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrAuthenticationFailed.
func (e *AuthenticationError) Is(target error) bool {
	if errors.Is(target, ErrAuthenticationFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(username string, host string, cause error) *AuthenticationError {
	return &AuthenticationError{
		Username: username,
		Host:     host,
		Cause:    cause,
	}
}

// ConfigurationError is returned when a configuration error occurs.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration: field '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(target, ErrInvalidConfiguration)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field string, reason string) *ConfigurationError {
	return &ConfigurationError{
		Field:  field,
		Reason: reason,
	}
}

// InvalidIdentifierError is returned when a string identifier cannot be
// coerced to the store's native identifier type.
type InvalidIdentifierError struct {
	ID    string
	Cause error
}

// Error implements the error interface.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier '%s': %v", e.ID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *InvalidIdentifierError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrInvalidIdentifier.
func (e *InvalidIdentifierError) Is(target error) bool {
	if errors.Is(target, ErrInvalidIdentifier) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewInvalidIdentifierError creates a new InvalidIdentifierError.
func NewInvalidIdentifierError(id string, cause error) *InvalidIdentifierError {
	return &InvalidIdentifierError{
		ID:    id,
		Cause: cause,
	}
}

// WrapError wraps a backing-store error with binding and operation context.
// If the error is already a StoreError, it returns it as-is.
func WrapError(store string, operation string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	return NewStoreError(store, operation, err)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// IsInvalidIdentifier checks if an error indicates a malformed identifier.
func IsInvalidIdentifier(err error) bool {
	return errors.Is(err, ErrInvalidIdentifier)
}

// IsStoreError checks if an error came from the backing store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreFailed)
}
