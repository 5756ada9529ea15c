// Package exporter writes cumulative GPA results.
//
// FileSink picks a format from the output extension, or from an explicit
// override, and replaces the output atomically:
//
//   - .dta: Stata 114 dataset with a data label and timestamp
//   - .csv: header row followed by one row per student, null as empty
//   - .xlsx: single sheet named cumulative_gpa
//
// Example usage:
//
//	sink := exporter.NewSink(exporter.SinkConfig{DataLabel: "Cumulative GPA"}, logger)
//	err := sink.WriteCumulative(ctx, "out/cumulative_gpa.dta", rows)
package exporter
