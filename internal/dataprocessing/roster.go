package dataprocessing

import (
	"strings"

	"cumgpa/internal/errors"
	"cumgpa/pkg/contracts/domain"
)

// RosterReport counts what the roster restriction removed.
type RosterReport struct {
	RosterRows      int
	RosterInScope   int
	DroppedGrades   int
	IsPassingNulled int
}

// NormalizeGradeLevel trims a grade level and left pads a single digit
// with zero, so "9" and "09" compare equal.
func NormalizeGradeLevel(level string) string {
	level = strings.TrimSpace(level)
	if len(level) == 1 && level[0] >= '0' && level[0] <= '9' {
		return "0" + level
	}
	return level
}

// RestrictToRoster keeps the coursegrades of students whose roster grade
// level is in gradeLevels and clears IsPassing on rows without a mark.
// Each in-scope student must appear once in the roster.
func RestrictToRoster(grades []domain.CourseGrade, roster []domain.BiographicRecord, gradeLevels []string) ([]domain.CourseGrade, RosterReport, error) {
	report := RosterReport{RosterRows: len(roster)}

	allowed := make(map[string]struct{}, len(gradeLevels))
	for _, lvl := range gradeLevels {
		allowed[NormalizeGradeLevel(lvl)] = struct{}{}
	}

	students := make(map[string]struct{}, len(roster))
	for _, rec := range roster {
		if _, ok := allowed[NormalizeGradeLevel(rec.GradeLevel)]; !ok {
			continue
		}
		id := strings.TrimSpace(rec.StudentID)
		if _, dup := students[id]; dup {
			return nil, report, errors.NewCardinalityError("biographic roster", "1:m", id)
		}
		students[id] = struct{}{}
	}
	report.RosterInScope = len(students)

	out := make([]domain.CourseGrade, 0, len(grades))
	for _, g := range grades {
		if _, ok := students[g.StudentID]; !ok {
			report.DroppedGrades++
			continue
		}
		if !g.Mark.Valid && g.IsPassing.Valid {
			g.IsPassing = domain.Null[float64]{}
			report.IsPassingNulled++
		}
		out = append(out, g)
	}

	return out, report, nil
}
