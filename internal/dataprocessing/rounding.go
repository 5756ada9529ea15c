package dataprocessing

import (
	"fmt"
	"math"
	"strings"

	"cumgpa/internal/errors"
)

// RoundingMode selects how the cumulative GPA is rounded to two places.
type RoundingMode string

const (
	// RoundHalfEven rounds ties of the scaled value to the even neighbour.
	RoundHalfEven RoundingMode = "half_even"
	// RoundHalfAway rounds ties of the scaled value away from zero.
	RoundHalfAway RoundingMode = "half_away"
)

// GPAPlaces is the number of decimal places kept in tot_gpa.
const GPAPlaces = 2

// ParseRoundingMode accepts half_even or half_away, case-insensitively.
// The empty string selects half_even.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundHalfEven:
		return RoundHalfEven, nil
	case RoundHalfAway:
		return RoundHalfAway, nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown rounding mode %q", s), nil)
	}
}

// Round rounds x to places decimal places. The value is scaled by
// 10^places, rounded to an integer and scaled back, so ties are decided on
// the binary value of x*10^places.
func (m RoundingMode) Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow10(places)
	scaled := x * scale
	if m == RoundHalfAway {
		return math.Round(scaled) / scale
	}
	return math.RoundToEven(scaled) / scale
}
