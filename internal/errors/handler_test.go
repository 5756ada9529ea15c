package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "malformed argument", err: NewMalformedArgumentError("missing ="), want: ExitUsage},
		{name: "wrapped malformed argument", err: fmt.Errorf("parse: %w", NewMalformedArgumentError("x")), want: ExitUsage},
		{name: "schema violation", err: NewSchemaViolation("dup"), want: ExitFailure},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := NewErrorHandler(logger)

	err := NewMissingFieldsError("roster", []string{"grade_level"})
	code := h.HandleError(context.Background(), err)

	assert.Equal(t, ExitFailure, code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run failed", entry["msg"])
	assert.Equal(t, "SCHEMA_VIOLATION", entry["error_type"])
	assert.Equal(t, "roster", entry["source"])
	assert.Equal(t, "error_handler", entry["component"])
}

func TestErrorHandler_NilError(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	assert.Equal(t, ExitOK, h.HandleError(context.Background(), nil))
	assert.Empty(t, buf.String())
}
