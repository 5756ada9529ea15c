// Package config provides centralized configuration management for cumgpa.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Command line flags (applied by the caller after Load)
//	2. Environment variables
//	3. Configuration file (YAML)
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CUMGPA_* for namespacing:
//
//	CUMGPA_DATABASE_DSN=postgres://reader@warehouse/sif
//	CUMGPA_PIPELINE_ROUNDING=half_away
//	CUMGPA_PIPELINE_GRADE_LEVELS=09,10,11,12
//	CUMGPA_LOGGING_LEVEL=debug
//	CUMGPA_TELEMETRY_METRICS_ADDR=:9464
//
// # Configuration File
//
// When no path is given, Load looks for cumgpa.yaml and configs/cumgpa.yaml:
//
//	database:
//	  max_conns: 4
//	  query_timeout: 5m
//	  tables:
//	    student_marks: dbo.hsst_tbl_studentmarks
//	pipeline:
//	  rounding: half_even
//	  grade_levels: ["09", "10", "11", "12"]
//	output:
//	  data_label: Cumulative GPA
//
// # Validation
//
// Every section carries validator tags; Validate reports all violations at once.
package config
