package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "schema violation", errType: ErrTypeSchemaViolation, expected: "SCHEMA_VIOLATION"},
		{name: "malformed argument", errType: ErrTypeMalformedArgument, expected: "MALFORMED_ARGUMENT"},
		{name: "source", errType: ErrTypeSource, expected: "SOURCE"},
		{name: "parsing", errType: ErrTypeParsing, expected: "PARSING"},
		{name: "storage", errType: ErrTypeStorage, expected: "STORAGE"},
		{name: "validation", errType: ErrTypeValidation, expected: "VALIDATION"},
		{name: "not found", errType: ErrTypeNotFound, expected: "NOT_FOUND"},
		{name: "config", errType: ErrTypeConfig, expected: "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeSchemaViolation,
				Message: "roster missing required fields [grade_level]",
			},
			wantMessage: "[SCHEMA_VIOLATION] roster missing required fields [grade_level]",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeSource,
				Message: "query student marks",
				Cause:   fmt.Errorf("connection refused"),
			},
			wantMessage: "[SOURCE] query student marks: connection refused",
		},
		{
			name: "error with empty message",
			appError: &AppError{
				Type: ErrTypeValidation,
			},
			wantMessage: "[VALIDATION] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	appErr := NewStorageError("write output", cause)

	assert.Same(t, cause, appErr.Unwrap())
	assert.True(t, errors.Is(appErr, cause))
	assert.Nil(t, NewSchemaViolation("x").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	appErr := &AppError{Type: ErrTypeParsing, Message: "bad cell"}

	result := appErr.WithContext("row", 12).WithContext("column", "credits")

	assert.Same(t, appErr, result)
	require.NotNil(t, result.Context)
	assert.Equal(t, 12, result.Context["row"])
	assert.Equal(t, "credits", result.Context["column"])
}

func TestNewMissingFieldsError(t *testing.T) {
	err := NewMissingFieldsError("prior-year file 2021-22.csv", []string{"credits", "is_passing"})

	assert.Equal(t, ErrTypeSchemaViolation, err.Type)
	assert.Contains(t, err.Error(), "credits, is_passing")
	assert.Equal(t, []string{"credits", "is_passing"}, err.Context["missing_fields"])
	assert.Equal(t, "prior-year file 2021-22.csv", err.Context["source"])
}

func TestNewCardinalityError(t *testing.T) {
	err := NewCardinalityError("course info", "m:1", "2023/01M001/1/EES81")

	assert.Equal(t, ErrTypeSchemaViolation, err.Type)
	assert.Contains(t, err.Error(), "course info join violates m:1 contract")
	assert.Equal(t, "m:1", err.Context["contract"])
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{name: "nil error", err: nil, errType: ErrTypeStorage, want: false},
		{name: "plain error", err: errors.New("boom"), errType: ErrTypeStorage, want: false},
		{name: "direct match", err: NewStorageError("x", nil), errType: ErrTypeStorage, want: true},
		{name: "wrapped match", err: fmt.Errorf("run: %w", NewMalformedArgumentError("x")), errType: ErrTypeMalformedArgument, want: true},
		{
			name:    "nested app errors",
			err:     NewSourceError("load year", NewSchemaViolation("dup")),
			errType: ErrTypeSchemaViolation,
			want:    true,
		},
		{name: "different type", err: NewParsingError("x", nil), errType: ErrTypeStorage, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeConfig, TypeOf(fmt.Errorf("wrap: %w", NewConfigError("bad", nil))))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestHelperConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name     string
		got      *AppError
		wantType ErrorType
	}{
		{name: "schema violation", got: NewSchemaViolation("m"), wantType: ErrTypeSchemaViolation},
		{name: "malformed argument", got: NewMalformedArgumentError("m"), wantType: ErrTypeMalformedArgument},
		{name: "source", got: NewSourceError("m", cause), wantType: ErrTypeSource},
		{name: "parsing", got: NewParsingError("m", cause), wantType: ErrTypeParsing},
		{name: "storage", got: NewStorageError("m", cause), wantType: ErrTypeStorage},
		{name: "validation", got: NewAppValidationError("m"), wantType: ErrTypeValidation},
		{name: "config", got: NewConfigError("m", cause), wantType: ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.got.Type)
			assert.NotNil(t, tt.got.Context)
		})
	}

	nf := NewNotFoundError("roster file")
	assert.Equal(t, ErrTypeNotFound, nf.Type)
	assert.Equal(t, "roster file not found", nf.Message)
}
