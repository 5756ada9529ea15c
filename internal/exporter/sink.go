package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cumgpa/internal/errors"
	"cumgpa/internal/files"
	"cumgpa/pkg/contracts/domain"
)

// Format is an output file format.
type Format string

// Supported output formats.
const (
	FormatStata Format = "dta"
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// FormatFor picks the output format. A non-empty override wins; otherwise
// the format follows the file extension.
func FormatFor(path, override string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(override))
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch Format(name) {
	case FormatStata, FormatCSV, FormatExcel:
		return Format(name), nil
	}
	return "", errors.NewMalformedArgumentError(
		fmt.Sprintf("cannot choose an output format for %s: use a .dta, .csv or .xlsx path", path)).
		WithContext("output", path)
}

// SinkConfig holds configuration options for FileSink.
type SinkConfig struct {
	Format    string // overrides the format implied by the extension
	DataLabel string // Stata data label
	Now       func() time.Time
}

// FileSink writes cumulative GPA results to a file, replacing it atomically.
type FileSink struct {
	config SinkConfig
	logger *slog.Logger
}

// NewSink creates a file sink.
func NewSink(config SinkConfig, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &FileSink{config: config, logger: logger.With(slog.String("component", "exporter"))}
}

// WriteCumulative writes rows to path in the configured format.
func (s *FileSink) WriteCumulative(ctx context.Context, path string, rows []domain.CumulativeGPA) error {
	format, err := FormatFor(path, s.config.Format)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = files.WriteFileAtomic(path, func(w io.Writer) error {
		switch format {
		case FormatCSV:
			records := make([][]string, 0, len(rows))
			for _, r := range rows {
				records = append(records, cumulativeRecord(r))
			}
			return WriteCSV(w, WriteOptions{Headers: domain.CumulativeColumns, Records: records})
		case FormatExcel:
			return WriteXLSX(w, rows)
		default:
			return WriteDTA(w, rows, s.config.DataLabel, s.config.Now())
		}
	})
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("write %s", path), err).WithContext("output", path)
	}

	s.logger.InfoContext(ctx, "cumulative GPA exported",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("rows", len(rows)))
	return nil
}
