package utils

import (
	"errors"
	"fmt"
)

// Custom error types
var (
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when there's a conflict with existing data
	ErrConflict = errors.New("conflict")

	// ErrPersistence is returned when an underlying storage operation fails
	ErrPersistence = errors.New("persistence error")

	// ErrMigration is returned when a schema migration fails. Migration
	// errors are fatal to startup and are never retried automatically.
	ErrMigration = errors.New("migration error")
)

// ValidationError represents an error that occurs during input validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError represents an error when there's a conflict with existing data
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s already exists with %s='%s'", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// PersistenceError represents a fault in the underlying store. Unlike
// validation errors these are potentially transient, so callers may retry.
type PersistenceError struct {
	Operation string
	Cause     error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("persistence error during %s", e.Operation)
}

func (e *PersistenceError) Unwrap() error {
	return ErrPersistence
}

// MigrationError represents a failed schema migration script
type MigrationError struct {
	Version string
	Cause   error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s failed: %v", e.Version, e.Cause)
	}
	return fmt.Sprintf("migration failed: %v", e.Cause)
}

func (e *MigrationError) Unwrap() error {
	return ErrMigration
}

// Error wrapping functions

// WrapValidationError wraps an error as a validation error
func WrapValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// WrapNotFoundError wraps an error as a not found error
func WrapNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// WrapConflictError wraps an error as a conflict error
func WrapConflictError(resource, field, value string) error {
	return &ConflictError{
		Resource: resource,
		Field:    field,
		Value:    value,
	}
}

// WrapPersistenceError wraps an error as a persistence error
func WrapPersistenceError(operation string, cause error) error {
	return &PersistenceError{
		Operation: operation,
		Cause:     cause,
	}
}

// WrapMigrationError wraps an error as a migration error
func WrapMigrationError(version string, cause error) error {
	return &MigrationError{
		Version: version,
		Cause:   cause,
	}
}

// Error checking functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsPersistenceError checks if an error is a persistence error
func IsPersistenceError(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsMigrationError checks if an error is a migration error
func IsMigrationError(err error) bool {
	return errors.Is(err, ErrMigration)
}

// Helper function to create a validation error for required fields
func RequiredFieldError(field string) error {
	return WrapValidationError(field, "field is required")
}

// Helper function to create a validation error for invalid field values
func InvalidFieldError(field, reason string) error {
	return WrapValidationError(field, reason)
}
