package config

import (
	"time"

	"cumgpa/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName    = "cumgpa"
	AppVersion = contracts.Version

	// EnvPrefix namespaces environment overrides, e.g. CUMGPA_DATABASE_DSN.
	EnvPrefix = "CUMGPA"

	// Rounding modes for the cumulative GPA
	RoundingHalfEven = "half_even"
	RoundingHalfAway = "half_away"

	// Operation Timeouts
	DefaultRunTimeout = 30 * time.Minute

	// Output formats
	FormatStata = "dta"
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
)
