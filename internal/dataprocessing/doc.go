// Package dataprocessing turns one school year's student marks plus any
// number of prior-year coursegrade files into a per-student cumulative GPA.
//
// # Architecture
//
// The package is organized into four stages:
//
// 1. Assembler: joins marks to course info, course flags, the school crosswalk and the grade scale
// 2. RestrictToRoster: keeps students whose roster grade level is in scope
// 3. YearlyTotals: sums eligible credits and grade points per student and year
// 4. Combine: sums yearly totals across years and divides points by attempted credits
//
// Pipeline wires the stages to a YearSource, RosterSource, PriorSource and
// ResultSink. The current year and the prior years are processed
// concurrently.
//
// # Usage
//
//	p := dataprocessing.NewPipeline(store, files.RosterReader{}, files.PriorReader{}, sink, logger,
//	    dataprocessing.DefaultPipelineConfig())
//	summary, err := p.Run(ctx, dataprocessing.RunRequest{
//	    Year:       2024,
//	    RosterPath: "biog.csv",
//	    Prior:      []dataprocessing.PriorYearInput{{Label: "2023", Path: "hs_2023.csv"}},
//	    OutputPath: "cumulative_gpa.dta",
//	})
//
// # Data Flow
//
//	YearTables → Assembler → CourseGrades → Roster → YearlyTotals ┐
//	Prior CourseGrades → YearlyTotals ────────────────────────────┴→ Combine → CumulativeGPA
//
// # Nulls
//
// Every nullable quantity is a domain.Null. A product with a null operand
// is null; a sum is null only when no row contributed a value.
//
// # Error Handling
//
// Contract failures are returned as SCHEMA_VIOLATION AppErrors:
//
//   - a duplicate key on the "one" side of a join
//   - a school absent from the crosswalk
//   - a student listed twice in the in-scope roster
package dataprocessing
