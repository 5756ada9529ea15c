package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cumgpa/internal/errors"
)

func TestFileValidator_ValidateInputFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantType  errors.ErrorType
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "roster.csv")
				require.NoError(t, os.WriteFile(file, []byte("student_id,grade_level\n"), 0644))
				return file
			},
		},
		{
			name: "extension is case insensitive",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "prior.XLSX")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
		},
		{
			name: "non-existent file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantType: errors.ErrTypeNotFound,
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "roster.txt")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			wantType: errors.ErrTypeMalformedArgument,
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "~$prior.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			wantType: errors.ErrTypeMalformedArgument,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "dir.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantType: errors.ErrTypeMalformedArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())
			path := tt.setupFunc(t)

			err := validator.ValidateInputFile(path, ".csv", ".xlsx")

			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	validator := NewFileValidator(nil)

	t.Run("creates missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "out", "gpa.dta")
		require.NoError(t, validator.ValidateOutputFile(path))

		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Empty(t, entries, "write probe removed")
	})

	t.Run("directory as output", func(t *testing.T) {
		err := validator.ValidateOutputFile(t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeMalformedArgument))
	})

	t.Run("empty path", func(t *testing.T) {
		err := validator.ValidateOutputFile(" ")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeMalformedArgument))
	})

	t.Run("parent is a file", func(t *testing.T) {
		parent := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(parent, []byte("x"), 0644))

		err := validator.ValidateOutputFile(filepath.Join(parent, "gpa.dta"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeStorage))
	})
}
