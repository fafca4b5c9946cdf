package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStoreUnavailable represents a graph store that cannot be reached or timed out
	ErrorTypeStoreUnavailable ErrorType = "store_unavailable"
	// ErrorTypeNotFound represents a lookup that matched no node
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeAmbiguousResult represents more matches than a unique key allows
	ErrorTypeAmbiguousResult ErrorType = "ambiguous_result"
	// ErrorTypeRelationConflict represents an attempt to add an already present relative
	ErrorTypeRelationConflict ErrorType = "relation_conflict"
	// ErrorTypeValidation represents caller input rejected at the repository boundary
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuth represents identity verification failures
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// kinded is satisfied by every error in this package.
type kinded interface {
	error
	Kind() ErrorType
}

// Store Errors

// ErrStoreUnavailable is returned when the graph store cannot be reached
type ErrStoreUnavailable struct {
	*BaseError
	Operation string
}

func NewStoreUnavailable(operation string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStoreUnavailable, fmt.Sprintf("graph store unavailable during %s", operation), err),
		Operation: operation,
	}
}

// ErrNotFound is returned when no person matches the requested key
type ErrNotFound struct {
	*BaseError
	Key string
}

func NewNotFound(key string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("no matches found for %s", key), nil),
		Key:       key,
	}
}

// ErrAmbiguousResult is returned when a key expected to be unique matches too many nodes
type ErrAmbiguousResult struct {
	*BaseError
	Key   string
	Count int
}

func NewAmbiguousResult(key string, count int, what string) *ErrAmbiguousResult {
	return &ErrAmbiguousResult{
		BaseError: NewBaseError(ErrorTypeAmbiguousResult, fmt.Sprintf("found %d %s for %s", count, what, key), nil),
		Key:       key,
		Count:     count,
	}
}

// ErrRelationConflict is returned when a relative is already present in the relation
type ErrRelationConflict struct {
	*BaseError
	Person   string
	Relation string
	Relative string
}

func NewRelationConflict(person, relation, relative string) *ErrRelationConflict {
	return &ErrRelationConflict{
		BaseError: NewBaseError(ErrorTypeRelationConflict, fmt.Sprintf("%s already has %s %s", person, relation, relative), nil),
		Person:    person,
		Relation:  relation,
		Relative:  relative,
	}
}

// ErrValidation is returned when caller input is rejected before reaching the store
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Auth Errors

// AuthReason distinguishes why identity verification failed
type AuthReason string

const (
	AuthReasonInvalidCredential   AuthReason = "invalid_credential"
	AuthReasonResolverUnreachable AuthReason = "resolver_unreachable"
)

// ErrAuth is returned when the identity resolver rejects or cannot check a credential
type ErrAuth struct {
	*BaseError
	Reason AuthReason
}

func NewAuthInvalid(message string, err error) *ErrAuth {
	return &ErrAuth{
		BaseError: NewBaseError(ErrorTypeAuth, message, err),
		Reason:    AuthReasonInvalidCredential,
	}
}

func NewAuthUnreachable(err error) *ErrAuth {
	return &ErrAuth{
		BaseError: NewBaseError(ErrorTypeAuth, "identity provider unreachable", err),
		Reason:    AuthReasonResolverUnreachable,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// KindOf returns the category of the first typed error in err's chain, or "" if none
func KindOf(err error) ErrorType {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	return err != nil && KindOf(err) == errType
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrorTypeStoreUnavailable:
		return true
	case ErrorTypeAuth:
		var authErr *ErrAuth
		return errors.As(err, &authErr) && authErr.Reason == AuthReasonResolverUnreachable
	}
	return false
}
