package files

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"cumgpa/internal/errors"
	"cumgpa/pkg/contracts/domain"
)

// RosterReader loads biographic rosters from CSV or XLSX files.
type RosterReader struct {
	Logger *slog.Logger
}

// LoadRoster reads student_id and grade_level from path. Both columns are
// required; other columns are ignored.
func (r RosterReader) LoadRoster(ctx context.Context, path string) ([]domain.BiographicRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.RequireColumns(domain.RosterColumns...); err != nil {
		return nil, err
	}

	out := make([]domain.BiographicRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, domain.BiographicRecord{
			StudentID:  t.Get(row, "student_id"),
			GradeLevel: gradeLevelCell(t.Get(row, "grade_level")),
		})
	}

	logger(r.Logger).DebugContext(ctx, "roster loaded",
		slog.String("path", path),
		slog.Int("rows", len(out)))
	return out, nil
}

// gradeLevelCell undoes the float rendering spreadsheets apply to numeric
// grade levels, so "9.0" reads as "9".
func gradeLevelCell(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) && !strings.ContainsAny(v, "eE") {
		if strings.Contains(v, ".") {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return v
}

// PriorReader loads prior-year coursegrade files.
type PriorReader struct {
	Logger *slog.Logger
}

// LoadPriorCourses reads a prior-year coursegrade file. The seven
// aggregation columns are required. Numeric cells that cannot be parsed
// are treated as null. Rows with a blank school_year are kept under
// domain.UnknownSchoolYear; rows without a student ID are skipped since
// they cannot be attributed to anyone.
func (r PriorReader) LoadPriorCourses(ctx context.Context, path string) ([]domain.CourseGrade, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.RequireColumns(domain.PriorCourseColumns...); err != nil {
		return nil, err
	}

	var (
		out      = make([]domain.CourseGrade, 0, len(t.Rows))
		skipped  int
		noYear   int
		coerced  int
		hasMark  = t.Has("mark")
		optional = []string{"dbn", "term_code", "section", "course_code", "course_title", "markingperiod"}
	)

	for i, row := range t.Rows {
		student := t.Get(row, "student_id")
		yearCell := t.Get(row, "school_year")
		if student == "" {
			skipped++
			continue
		}

		year := domain.UnknownSchoolYear
		if isMissing(yearCell) {
			noYear++
		} else {
			year, err = parseYear(yearCell)
			if err != nil {
				return nil, errors.NewParsingError(
					fmt.Sprintf("%s row %d: invalid school_year %q", path, i+2, yearCell), err).
					WithContext("source", path)
			}
		}

		g := domain.CourseGrade{SchoolYear: year, StudentID: student}
		fields := []struct {
			col string
			dst *domain.Null[float64]
		}{
			{"credits", &g.Credits},
			{"is_passing", &g.IsPassing},
			{"numeric_equivalent", &g.NumericEquivalent},
			{"grade_average_factor", &g.GradeAverageFactor},
			{"grade_averaged_flag", &g.GradeAveragedFlag},
		}
		for _, f := range fields {
			v, ok := ParseNumeric(t.Get(row, f.col))
			if !ok {
				coerced++
			}
			*f.dst = v
		}

		if hasMark {
			if m := t.Get(row, "mark"); m != "" {
				g.Mark = domain.Some(m)
			}
		}
		for _, col := range optional {
			if !t.Has(col) {
				continue
			}
			v := t.Get(row, col)
			switch col {
			case "dbn":
				g.SchoolDBN = v
			case "term_code":
				g.TermCode = v
			case "section":
				g.Section = v
			case "course_code":
				g.CourseCode = v
			case "course_title":
				g.CourseTitle = v
			case "markingperiod":
				g.MarkingPeriod = v
			}
		}

		out = append(out, g)
	}

	log := logger(r.Logger)
	if skipped > 0 {
		log.WarnContext(ctx, "prior-year rows without student skipped",
			slog.String("path", path),
			slog.Int("skipped", skipped))
	}
	if noYear > 0 {
		log.WarnContext(ctx, "prior-year rows without school year grouped under an unknown year",
			slog.String("path", path),
			slog.Int("rows", noYear))
	}
	if coerced > 0 {
		log.WarnContext(ctx, "unparsable numeric cells treated as null",
			slog.String("path", path),
			slog.Int("cells", coerced))
	}
	log.DebugContext(ctx, "prior-year coursegrades loaded",
		slog.String("path", path),
		slog.Int("rows", len(out)))

	return out, nil
}

// ParseNumeric parses a numeric cell. Empty cells and the usual missing
// value markers are null. true/false read as 1/0. The second result is
// false only when a non-empty cell could not be parsed or is not finite;
// the value is then null.
func ParseNumeric(v string) (domain.Null[float64], bool) {
	v = strings.TrimSpace(v)
	if isMissing(v) {
		return domain.Null[float64]{}, true
	}
	switch strings.ToLower(v) {
	case "true":
		return domain.Some(1.0), true
	case "false":
		return domain.Some(0.0), true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.Null[float64]{}, false
	}
	return domain.Some(f), true
}

func isMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", ".", "nan", "na", "n/a", "null":
		return true
	}
	return false
}

func parseYear(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole year")
	}
	return int(f), nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
