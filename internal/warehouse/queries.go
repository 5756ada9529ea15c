package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"cumgpa/internal/config"
	"cumgpa/internal/errors"
	"cumgpa/pkg/contracts/domain"
)

// queries holds the SQL for each record set, with table names already
// quoted.
type queries struct {
	marks          string
	courseInfo     string
	courseFlags    string
	schools        string
	markDefinition string
}

func buildQueries(t config.TablesConfig) (queries, error) {
	names := map[string]string{
		"student_marks":   t.StudentMarks,
		"course_info":     t.CourseInfo,
		"course_flag":     t.CourseFlag,
		"school":          t.School,
		"mark_definition": t.MarkDefinition,
	}
	quoted := make(map[string]string, len(names))
	for key, name := range names {
		q, err := quoteTable(name)
		if err != nil {
			return queries{}, errors.NewConfigError(fmt.Sprintf("table %s: %v", key, err), nil)
		}
		quoted[key] = q
	}

	return queries{
		marks: `SELECT DISTINCT schoolyear::int8, studentid::text, schooldbn::text, termcd::text, coursecd::text,
       section::text, credits::float8, mark::text, markingperiod::text
FROM ` + quoted["student_marks"] + `
WHERE schoolyear = $1 AND credits > 0 AND isfinal = 1 AND isexam = 0`,

		courseInfo: `SELECT DISTINCT schoolyear::int8, schooldbn::text, termcd::text, coursecd::text,
       coursetitle::text, gradeaveragefactor::float8
FROM ` + quoted["course_info"] + `
WHERE schoolyear = $1`,

		courseFlags: `SELECT DISTINCT schoolyear::int8, schooldbn::text, termcd::text, coursecd::text,
       gradeaveragedflag::float8, markingperiod::text
FROM ` + quoted["course_flag"] + `
WHERE schoolyear = $1`,

		schools: `SELECT DISTINCT schooldbn::text, numericschooldbn::text
FROM ` + quoted["school"],

		markDefinition: `SELECT DISTINCT schoolyear::int8, numericschooldbn::text, term::text AS termcd, mark::text,
       ispassing::float8, alphaequivalent::text, numericequivalent::float8
FROM ` + quoted["mark_definition"] + `
WHERE schoolyear = $1`,
	}, nil
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty table name")
	}
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("malformed table name %q", name)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

func (s *Store) loadMarks(ctx context.Context, year int) ([]domain.StudentMark, error) {
	rows, err := s.pool.Query(ctx, s.queries.marks, year)
	if err != nil {
		return nil, queryError("student marks", err)
	}
	defer rows.Close()

	var out []domain.StudentMark
	for rows.Next() {
		var (
			m                                                 domain.StudentMark
			sy                                                int64
			student, dbn, term, course, section, mark, period pgtype.Text
			credits                                           pgtype.Float8
		)
		if err := rows.Scan(&sy, &student, &dbn, &term, &course, &section, &credits, &mark, &period); err != nil {
			return nil, queryError("student marks", err)
		}
		m.SchoolYear = int(sy)
		m.StudentID = strings.TrimSpace(student.String)
		m.SchoolDBN = dbn.String
		m.TermCode = term.String
		m.CourseCode = course.String
		m.Section = section.String
		m.Credits = nullFloat(credits)
		m.Mark = nullText(mark)
		m.MarkingPeriod = period.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("student marks", err)
	}
	return out, nil
}

func (s *Store) loadCourseInfo(ctx context.Context, year int) ([]domain.CourseInfo, error) {
	rows, err := s.pool.Query(ctx, s.queries.courseInfo, year)
	if err != nil {
		return nil, queryError("course info", err)
	}
	defer rows.Close()

	var out []domain.CourseInfo
	for rows.Next() {
		var (
			sy                       int64
			dbn, term, course, title pgtype.Text
			gaf                      pgtype.Float8
		)
		if err := rows.Scan(&sy, &dbn, &term, &course, &title, &gaf); err != nil {
			return nil, queryError("course info", err)
		}
		out = append(out, domain.CourseInfo{
			SchoolYear:         int(sy),
			SchoolDBN:          dbn.String,
			TermCode:           term.String,
			CourseCode:         course.String,
			CourseTitle:        title.String,
			GradeAverageFactor: nullFloat(gaf),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("course info", err)
	}
	return out, nil
}

func (s *Store) loadCourseFlags(ctx context.Context, year int) ([]domain.CourseFlag, error) {
	rows, err := s.pool.Query(ctx, s.queries.courseFlags, year)
	if err != nil {
		return nil, queryError("course flags", err)
	}
	defer rows.Close()

	var out []domain.CourseFlag
	for rows.Next() {
		var (
			sy                        int64
			dbn, term, course, period pgtype.Text
			flag                      pgtype.Float8
		)
		if err := rows.Scan(&sy, &dbn, &term, &course, &flag, &period); err != nil {
			return nil, queryError("course flags", err)
		}
		out = append(out, domain.CourseFlag{
			SchoolYear:        int(sy),
			SchoolDBN:         dbn.String,
			TermCode:          term.String,
			CourseCode:        course.String,
			MarkingPeriod:     period.String,
			GradeAveragedFlag: nullFloat(flag),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("course flags", err)
	}
	return out, nil
}

func (s *Store) loadSchools(ctx context.Context) ([]domain.School, error) {
	rows, err := s.pool.Query(ctx, s.queries.schools)
	if err != nil {
		return nil, queryError("schools", err)
	}
	defer rows.Close()

	var out []domain.School
	for rows.Next() {
		var dbn, numeric pgtype.Text
		if err := rows.Scan(&dbn, &numeric); err != nil {
			return nil, queryError("schools", err)
		}
		out = append(out, domain.School{SchoolDBN: dbn.String, NumericSchoolDBN: numeric.String})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("schools", err)
	}
	return out, nil
}

func (s *Store) loadMarkDefinitions(ctx context.Context, year int) ([]domain.MarkDefinition, error) {
	rows, err := s.pool.Query(ctx, s.queries.markDefinition, year)
	if err != nil {
		return nil, queryError("mark definitions", err)
	}
	defer rows.Close()

	var out []domain.MarkDefinition
	for rows.Next() {
		var (
			sy                         int64
			numeric, term, mark, alpha pgtype.Text
			passing, equivalent        pgtype.Float8
		)
		if err := rows.Scan(&sy, &numeric, &term, &mark, &passing, &alpha, &equivalent); err != nil {
			return nil, queryError("mark definitions", err)
		}
		out = append(out, domain.MarkDefinition{
			SchoolYear:        int(sy),
			NumericSchoolDBN:  numeric.String,
			TermCode:          term.String,
			Mark:              nullText(mark),
			IsPassing:         nullFloat(passing),
			AlphaEquivalent:   nullText(alpha),
			NumericEquivalent: nullFloat(equivalent),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("mark definitions", err)
	}
	return out, nil
}

func nullFloat(v pgtype.Float8) domain.Null[float64] {
	if !v.Valid {
		return domain.Null[float64]{}
	}
	return domain.Some(v.Float64)
}

func nullText(v pgtype.Text) domain.Null[string] {
	if !v.Valid {
		return domain.Null[string]{}
	}
	return domain.Some(v.String)
}
