package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// DatabaseConfig contains the relational source configuration
type DatabaseConfig struct {
	DSN            string        `yaml:"dsn" envconfig:"DSN"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"MAX_CONNS" validate:"min=1,max=64"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" validate:"min=0"`
	QueryTimeout   time.Duration `yaml:"query_timeout" envconfig:"QUERY_TIMEOUT" validate:"min=0"`
	Tables         TablesConfig  `yaml:"tables" envconfig:"TABLES"`
}

// TablesConfig names the source tables. Names may be schema qualified.
type TablesConfig struct {
	StudentMarks   string `yaml:"student_marks" envconfig:"STUDENT_MARKS" validate:"required"`
	CourseInfo     string `yaml:"course_info" envconfig:"COURSE_INFO" validate:"required"`
	CourseFlag     string `yaml:"course_flag" envconfig:"COURSE_FLAG" validate:"required"`
	School         string `yaml:"school" envconfig:"SCHOOL" validate:"required"`
	MarkDefinition string `yaml:"mark_definition" envconfig:"MARK_DEFINITION" validate:"required"`
}

// PipelineConfig contains the computation settings
type PipelineConfig struct {
	Rounding          string        `yaml:"rounding" envconfig:"ROUNDING" validate:"oneof=half_even half_away"`
	GradeLevels       []string      `yaml:"grade_levels" envconfig:"GRADE_LEVELS" validate:"min=1,dive,required"`
	Dataset           string        `yaml:"dataset" envconfig:"DATASET" validate:"required"`
	MaxParallelYears  int           `yaml:"max_parallel_years" envconfig:"MAX_PARALLEL_YEARS" validate:"min=1,max=32"`
	RunTimeout        time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"min=0"`
	RequireCourseInfo bool          `yaml:"require_course_info" envconfig:"REQUIRE_COURSE_INFO"` // fail instead of dropping marks without course info
}

// OutputConfig contains result sink settings
type OutputConfig struct {
	// Format overrides the format implied by the output extension.
	Format    string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=dta csv xlsx"`
	DataLabel string `yaml:"data_label" envconfig:"DATA_LABEL" validate:"max=80"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Tracing     string `yaml:"tracing" envconfig:"TRACING" validate:"oneof=none stdout"`
	Metrics     bool   `yaml:"metrics" envconfig:"METRICS"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

// Load builds the configuration from defaults, an optional YAML file and
// CUMGPA_* environment variables, in increasing order of precedence.
// An empty path searches the default locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// envconfig leaves fields without a matching variable untouched
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the first config file found in the common locations
func getConfigFilePath() string {
	locations := []string{
		"cumgpa.yaml",
		"configs/cumgpa.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

func (c *Config) normalize() {
	c.Pipeline.Rounding = strings.ToLower(strings.TrimSpace(c.Pipeline.Rounding))
	c.Output.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Output.Format), "."))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	for i, lvl := range c.Pipeline.GradeLevels {
		c.Pipeline.GradeLevels[i] = strings.TrimSpace(lvl)
	}
}

// Validate normalizes the configuration and checks it against its
// declared constraints
func (c *Config) Validate() error {
	c.normalize()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns default configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:       4,
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   5 * time.Minute,
			Tables: TablesConfig{
				StudentMarks:   "dbo.hsst_tbl_studentmarks",
				CourseInfo:     "dbo.hsst_tbl_courseinfo",
				CourseFlag:     "dbo.hsst_tbl_courseflag",
				School:         "stars.school",
				MarkDefinition: "stars.vw_markdefinition",
			},
		},
		Pipeline: PipelineConfig{
			Rounding:         RoundingHalfEven,
			GradeLevels:      []string{"09", "10", "11", "12"},
			Dataset:          "High School",
			MaxParallelYears: 4,
			RunTimeout:       DefaultRunTimeout,
		},
		Output: OutputConfig{
			DataLabel: "Cumulative GPA",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/cumgpa.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
			Tracing:     "none",
			Metrics:     false,
		},
	}
}
