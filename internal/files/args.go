package files

import (
	"fmt"
	"path/filepath"
	"strings"

	"cumgpa/internal/errors"
)

// PriorFile is one prior-year coursegrade file named on the command line.
type PriorFile struct {
	Label string
	Path  string
}

// ParsePriorArg parses a LABEL=PATH reference to a prior-year file. The
// label is only used in logs. PATH must name a .csv or .xlsx file.
func ParsePriorArg(arg string) (PriorFile, error) {
	label, path, ok := strings.Cut(arg, "=")
	if !ok {
		return PriorFile{}, errors.NewMalformedArgumentError(
			fmt.Sprintf("invalid prior-year reference %q: expected LABEL=PATH", arg)).
			WithContext("argument", arg)
	}

	label = strings.TrimSpace(label)
	path = strings.TrimSpace(path)
	if path == "" {
		return PriorFile{}, errors.NewMalformedArgumentError(
			fmt.Sprintf("invalid prior-year reference %q: empty path", arg)).
			WithContext("argument", arg)
	}
	if !supportedInput(path) {
		return PriorFile{}, errors.NewMalformedArgumentError(
			fmt.Sprintf("prior-year path must be a %s or %s file: %s", ExtCSV, ExtExcel, path)).
			WithContext("argument", arg)
	}
	if label == "" {
		label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return PriorFile{Label: label, Path: path}, nil
}

// ParsePriorArgs parses every reference, failing on the first malformed one.
func ParsePriorArgs(args []string) ([]PriorFile, error) {
	out := make([]PriorFile, 0, len(args))
	for _, a := range args {
		p, err := ParsePriorArg(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func supportedInput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCSV, ExtExcel:
		return true
	}
	return false
}
