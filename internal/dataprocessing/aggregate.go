package dataprocessing

import (
	"sort"

	"cumgpa/pkg/contracts/domain"
)

// yearStudent keys yearly totals.
type yearStudent struct {
	year    int
	student string
}

// Eligible reports whether a coursegrade counts toward GPA: its grade
// averaging flag is present and nonzero and it has a numeric equivalent.
func Eligible(g domain.CourseGrade) bool {
	return g.GradeAveragedFlag.Valid && g.GradeAveragedFlag.Val != 0 && g.NumericEquivalent.Valid
}

// RowTotals holds the per-row quantities summed into yearly totals.
type RowTotals struct {
	CredAtt    domain.Null[float64]
	CredEarned domain.Null[float64]
	GPAPts     domain.Null[float64]
}

// ComputeRowTotals derives attempted credits, earned credits and grade
// points for one coursegrade. A null operand makes that quantity null.
func ComputeRowTotals(g domain.CourseGrade) RowTotals {
	return RowTotals{
		CredAtt:    g.Credits,
		CredEarned: domain.MulNull(g.Credits, g.IsPassing),
		GPAPts:     domain.MulNull(g.NumericEquivalent, g.Credits, g.GradeAverageFactor),
	}
}

// YearlyTotals sums eligible coursegrades per (school year, student).
// A total stays null when no eligible row contributed a value to it.
// The result is ordered by school year, then student ID. The second
// return value is the number of eligible rows.
func YearlyTotals(grades []domain.CourseGrade) ([]domain.YearTotals, int) {
	groups := make(map[yearStudent]*domain.YearTotals)
	eligible := 0

	for _, g := range grades {
		if !Eligible(g) {
			continue
		}
		eligible++

		k := yearStudent{year: g.SchoolYear, student: g.StudentID}
		acc, ok := groups[k]
		if !ok {
			acc = &domain.YearTotals{SchoolYear: g.SchoolYear, StudentID: g.StudentID}
			groups[k] = acc
		}

		row := ComputeRowTotals(g)
		acc.TotCredAtt = domain.AddNull(acc.TotCredAtt, row.CredAtt)
		acc.TotCredEarned = domain.AddNull(acc.TotCredEarned, row.CredEarned)
		acc.TotGPAPts = domain.AddNull(acc.TotGPAPts, row.GPAPts)
	}

	out := make([]domain.YearTotals, 0, len(groups))
	for _, t := range groups {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SchoolYear != out[j].SchoolYear {
			return out[i].SchoolYear < out[j].SchoolYear
		}
		return out[i].StudentID < out[j].StudentID
	})

	return out, eligible
}
