package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchemaViolation   ErrorType = "SCHEMA_VIOLATION"
	ErrTypeMalformedArgument ErrorType = "MALFORMED_ARGUMENT"
	ErrTypeSource            ErrorType = "SOURCE"
	ErrTypeParsing           ErrorType = "PARSING"
	ErrTypeStorage           ErrorType = "STORAGE"
	ErrTypeValidation        ErrorType = "VALIDATION"
	ErrTypeNotFound          ErrorType = "NOT_FOUND"
	ErrTypeConfig            ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// TypeOf returns the type of the outermost AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper functions for common error types

// NewSchemaViolation creates an error for input that breaks a structural
// contract: missing fields or a violated join cardinality.
func NewSchemaViolation(message string) *AppError {
	return NewAppError(ErrTypeSchemaViolation, message, nil)
}

// NewMissingFieldsError reports every required field absent from source.
func NewMissingFieldsError(source string, missing []string) *AppError {
	return NewSchemaViolation(fmt.Sprintf("%s missing required fields [%s]", source, strings.Join(missing, ", "))).
		WithContext("source", source).
		WithContext("missing_fields", missing)
}

// NewCardinalityError reports a key that appears more than once on a side
// that must be unique.
func NewCardinalityError(join, contract string, key interface{}) *AppError {
	return NewSchemaViolation(fmt.Sprintf("%s join violates %s contract: duplicate key %v", join, contract, key)).
		WithContext("join", join).
		WithContext("contract", contract).
		WithContext("key", fmt.Sprint(key))
}

// NewMalformedArgumentError creates an error for an unusable user argument.
func NewMalformedArgumentError(message string) *AppError {
	return NewAppError(ErrTypeMalformedArgument, message, nil)
}

// NewSourceError creates a relational source error
func NewSourceError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSource, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
