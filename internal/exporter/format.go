package exporter

import (
	"strconv"

	"cumgpa/pkg/contracts/domain"
)

// formatFloat formats a float64 with the fewest digits that round-trip.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatNull formats a nullable number, writing null as an empty cell.
func formatNull(v domain.Null[float64]) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Val)
}

// cumulativeRecord renders one result row in CumulativeColumns order.
func cumulativeRecord(r domain.CumulativeGPA) []string {
	return []string{
		r.StudentID,
		formatNull(r.TotCredAtt),
		formatNull(r.TotCredEarned),
		formatNull(r.TotGPAPts),
		formatNull(r.TotGPA),
	}
}
