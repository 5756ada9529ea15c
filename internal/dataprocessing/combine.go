package dataprocessing

import (
	"math"
	"sort"

	"cumgpa/pkg/contracts/domain"
)

// CombineReport describes the combined input.
type CombineReport struct {
	InputRows int
	Students  int
	// RepeatedStudentYears counts (student, school year) pairs that occur
	// in more than one input row. Those rows are summed.
	RepeatedStudentYears int
	NullGPA              int
}

// Combine concatenates yearly totals, sums them per student with the same
// null-if-no-contributor rule as YearlyTotals, and computes
// tot_gpa = tot_gpa_pts / tot_cred_att rounded with mode. The GPA is null
// when either operand is null or attempted credits are zero. The result is
// ordered by student ID and does not depend on the order of sets.
func Combine(sets [][]domain.YearTotals, mode RoundingMode) ([]domain.CumulativeGPA, CombineReport) {
	var report CombineReport

	var rows []domain.YearTotals
	for _, set := range sets {
		rows = append(rows, set...)
	}
	report.InputRows = len(rows)

	// floating point sums depend on order, so fix one before summing
	sort.Slice(rows, func(i, j int) bool { return totalsLess(rows[i], rows[j]) })

	var out []domain.CumulativeGPA
	for i, t := range rows {
		if i > 0 && rows[i-1].StudentID == t.StudentID && rows[i-1].SchoolYear == t.SchoolYear &&
			(i < 2 || rows[i-2].StudentID != t.StudentID || rows[i-2].SchoolYear != t.SchoolYear) {
			report.RepeatedStudentYears++
		}

		if len(out) == 0 || out[len(out)-1].StudentID != t.StudentID {
			out = append(out, domain.CumulativeGPA{StudentID: t.StudentID})
		}
		acc := &out[len(out)-1]
		acc.TotCredAtt = domain.AddNull(acc.TotCredAtt, t.TotCredAtt)
		acc.TotCredEarned = domain.AddNull(acc.TotCredEarned, t.TotCredEarned)
		acc.TotGPAPts = domain.AddNull(acc.TotGPAPts, t.TotGPAPts)
	}

	for i := range out {
		out[i].TotGPA = CumulativeGPA(out[i].TotGPAPts, out[i].TotCredAtt, mode)
		if !out[i].TotGPA.Valid {
			report.NullGPA++
		}
	}

	report.Students = len(out)
	return out, report
}

// totalsLess orders yearly totals by student, year and then values, nulls first.
func totalsLess(a, b domain.YearTotals) bool {
	if a.StudentID != b.StudentID {
		return a.StudentID < b.StudentID
	}
	if a.SchoolYear != b.SchoolYear {
		return a.SchoolYear < b.SchoolYear
	}
	for _, pair := range [][2]domain.Null[float64]{
		{a.TotCredAtt, b.TotCredAtt},
		{a.TotCredEarned, b.TotCredEarned},
		{a.TotGPAPts, b.TotGPAPts},
	} {
		if c := compareNull(pair[0], pair[1]); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareNull(a, b domain.Null[float64]) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	case math.IsNaN(a.Val) && math.IsNaN(b.Val):
		return 0
	case math.IsNaN(a.Val):
		return -1
	case math.IsNaN(b.Val):
		return 1
	case a.Val < b.Val:
		return -1
	case a.Val > b.Val:
		return 1
	default:
		return 0
	}
}

// CumulativeGPA divides points by attempted credits and rounds the result
// to GPAPlaces. Null or zero operands that make the ratio undefined give null.
func CumulativeGPA(pts, att domain.Null[float64], mode RoundingMode) domain.Null[float64] {
	if !pts.Valid || !att.Valid || att.Val == 0 {
		return domain.Null[float64]{}
	}
	return domain.Some(mode.Round(pts.Val/att.Val, GPAPlaces))
}
