package files

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"cumgpa/internal/errors"
)

// Supported tabular input extensions.
const (
	ExtCSV   = ".csv"
	ExtExcel = ".xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header-addressed tabular file. Header names are trimmed and
// lower-cased so lookups are case-insensitive.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable reads a CSV file or the first sheet of an XLSX workbook.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, openError(path, err)
		}
		defer f.Close()
		return ReadCSV(path, f)
	case ExtExcel:
		return readExcel(path)
	default:
		return nil, errors.NewMalformedArgumentError(
			fmt.Sprintf("%s: unsupported file type, expected %s or %s", path, ExtCSV, ExtExcel))
	}
}

// ReadCSV reads CSV content from r. A leading UTF-8 BOM is ignored and
// rows may have a varying number of fields.
func ReadCSV(source string, r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewSourceError(fmt.Sprintf("read %s", source), err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("parse %s", source), err).WithContext("source", source)
	}
	return newTable(source, records)
}

func readExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewSchemaViolation(fmt.Sprintf("%s has no sheets", path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("read sheet %q of %s", sheets[0], path), err)
	}
	return newTable(path, rows)
}

func newTable(source string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.NewSchemaViolation(fmt.Sprintf("%s has no header row", source)).
			WithContext("source", source)
	}

	t := &Table{Source: source, index: make(map[string]int)}
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		t.Header = append(t.Header, name)
		if _, dup := t.index[name]; !dup && name != "" {
			t.index[name] = i
		}
	}

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// RequireColumns fails with a SchemaViolation naming every absent column.
func (t *Table) RequireColumns(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingFieldsError(t.Source, missing)
	}
	return nil
}

// Has reports whether the table has a column named col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[strings.ToLower(col)]
	return ok
}

// Get returns the trimmed cell of row in col, or "" when the row is short
// or the column does not exist.
func (t *Table) Get(row []string, col string) string {
	i, ok := t.index[strings.ToLower(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func openError(path string, err error) error {
	if os.IsNotExist(err) {
		return errors.NewNotFoundError(fmt.Sprintf("file %s", path))
	}
	return errors.NewSourceError(fmt.Sprintf("open %s", path), err)
}
