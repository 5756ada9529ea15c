package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cumgpa/internal/config"
	"cumgpa/internal/dataprocessing"
	apperrors "cumgpa/internal/errors"
	"cumgpa/internal/exporter"
	"cumgpa/internal/files"
	"cumgpa/internal/infrastructure"
	transport "cumgpa/internal/transport/http"
	"cumgpa/internal/validation"
)

// runFlags are the flags of the run and validate commands.
type runFlags struct {
	dsn               string
	year              int
	rosterPath        string
	prior             []string
	priorDir          string
	outputPath        string
	rounding          string
	format            string
	metricsAddr       string
	requireCourseInfo bool
}

func (f *runFlags) bind(cmd *cobra.Command, withRuntime bool) {
	fl := cmd.Flags()
	fl.IntVar(&f.year, "year", 0, "current school year to assemble from the warehouse")
	fl.StringVar(&f.rosterPath, "biog-csv", "", "biographic roster file (.csv or .xlsx)")
	fl.StringArrayVar(&f.prior, "prev-courses", nil, "prior-year coursegrades as LABEL=PATH (repeatable)")
	fl.StringVar(&f.priorDir, "prev-courses-dir", "", "directory whose .csv and .xlsx files are all prior-year coursegrades")
	fl.StringVar(&f.outputPath, "output", "", "output file (.dta, .csv or .xlsx)")
	fl.StringVar(&f.format, "format", "", "output format overriding the extension (dta, csv, xlsx)")
	if !withRuntime {
		return
	}
	fl.StringVar(&f.dsn, "dsn", "", "PostgreSQL connection string (env CUMGPA_DATABASE_DSN)")
	fl.StringVar(&f.rounding, "rounding", "", "GPA rounding: half_even or half_away")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /status on this address during the run")
	fl.BoolVar(&f.requireCourseInfo, "require-course-info", false, "fail when a mark has no course info instead of dropping it")
}

// apply overlays the flags that were set onto cfg and validates the result.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("dsn") {
		cfg.Database.DSN = f.dsn
	}
	if fl.Changed("rounding") {
		cfg.Pipeline.Rounding = f.rounding
	}
	if fl.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fl.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr = f.metricsAddr
	}
	if fl.Changed("require-course-info") {
		cfg.Pipeline.RequireCourseInfo = f.requireCourseInfo
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.NewMalformedArgumentError(fmt.Sprintf("invalid option: %v", err))
	}
	return nil
}

// request builds the run request from the flags and positional
// LABEL=PATH arguments.
func (f *runFlags) request(args []string) (dataprocessing.RunRequest, error) {
	prior, err := files.ParsePriorArgs(append(append([]string{}, f.prior...), args...))
	if err != nil {
		return dataprocessing.RunRequest{}, err
	}
	if f.priorDir != "" {
		found, err := files.NewDiscovery("").FindPriorFiles(f.priorDir)
		if err != nil {
			return dataprocessing.RunRequest{}, apperrors.NewMalformedArgumentError(
				fmt.Sprintf("cannot list --prev-courses-dir %s: %v", f.priorDir, err))
		}
		prior = append(prior, found...)
	}

	req := dataprocessing.RunRequest{
		Year:       f.year,
		RosterPath: f.rosterPath,
		OutputPath: f.outputPath,
	}
	for _, p := range prior {
		req.Prior = append(req.Prior, dataprocessing.PriorYearInput{Label: p.Label, Path: p.Path})
	}
	if err := req.Validate(); err != nil {
		return dataprocessing.RunRequest{}, err
	}
	return req, nil
}

// preflight checks every input and the output location before any
// computation starts.
func preflight(req dataprocessing.RunRequest, format string, logger *slog.Logger) (exporter.Format, error) {
	v := validation.NewFileValidator(logger)
	if err := v.ValidateInputFile(req.RosterPath, files.ExtCSV, files.ExtExcel); err != nil {
		return "", err
	}
	for _, p := range req.Prior {
		if err := v.ValidateInputFile(p.Path, files.ExtCSV, files.ExtExcel); err != nil {
			return "", err
		}
	}
	out, err := exporter.FormatFor(req.OutputPath, format)
	if err != nil {
		return "", err
	}
	if err := v.ValidateOutputFile(req.OutputPath); err != nil {
		return "", err
	}
	return out, nil
}

// NewRunCmd creates the run command.
func NewRunCmd(gf *globalFlags, deps Deps) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [LABEL=PATH ...]",
		Short: "Compute cumulative GPA and write it to the output file",
		Example: `  cumgpa run --year 2024 --biog-csv biog_2024.csv \
    --prev-courses hs_2022=coursegrades_2022.csv \
    --prev-courses hs_2023=coursegrades_2023.xlsx \
    --output cumgpa_2024.dta`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCumulative(cmd.Context(), cmd, gf, &f, deps, args)
		},
	}
	f.bind(cmd, true)
	return cmd
}

func runCumulative(ctx context.Context, cmd *cobra.Command, gf *globalFlags, f *runFlags, deps Deps, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(gf)
	if err != nil {
		return err
	}
	if err := f.apply(cmd, cfg); err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return apperrors.NewConfigError("initialize logger", err)
	}
	defer infrastructure.CloseLogFile()

	req, err := f.request(args)
	if err != nil {
		return err
	}
	format, err := preflight(req, cfg.Output.Format, logger)
	if err != nil {
		return err
	}
	rounding, err := dataprocessing.ParseRoundingMode(cfg.Pipeline.Rounding)
	if err != nil {
		return err
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return apperrors.NewConfigError("initialize telemetry", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return apperrors.NewConfigError("register metrics", err)
	}

	if cfg.Telemetry.MetricsAddr != "" {
		router := transport.NewRouter(transport.NewHealthHandler(metrics, logger), providers.PrometheusHTTP)
		srv, err := transport.Listen(cfg.Telemetry.MetricsAddr, router, logger)
		if err != nil {
			return apperrors.NewConfigError(fmt.Sprintf("listen on %s", cfg.Telemetry.MetricsAddr), err)
		}
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Warn("telemetry server shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Pipeline.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
		defer cancel()
	}
	ctx = infrastructure.EnsureRunID(ctx)

	store, err := deps.OpenYearStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	sink := exporter.NewSink(exporter.SinkConfig{
		Format:    string(format),
		DataLabel: cfg.Output.DataLabel,
	}, logger)

	pipeline := dataprocessing.NewPipeline(
		store,
		files.RosterReader{Logger: logger},
		files.PriorReader{Logger: logger},
		sink,
		logger,
		dataprocessing.PipelineConfig{
			Rounding:          rounding,
			GradeLevels:       cfg.Pipeline.GradeLevels,
			Dataset:           cfg.Pipeline.Dataset,
			MaxParallelYears:  cfg.Pipeline.MaxParallelYears,
			RequireCourseInfo: cfg.Pipeline.RequireCourseInfo,
		},
		dataprocessing.WithTracer(providers.Tracer),
		dataprocessing.WithMetrics(metrics),
	)

	summary, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary, req.OutputPath, format)
	return nil
}

func printSummary(w io.Writer, s *dataprocessing.RunSummary, output string, format exporter.Format) {
	fmt.Fprintf(w, "Run %s completed in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  School year:        %d\n", s.Year)
	fmt.Fprintf(w, "  Marks assembled:    %d (%d dropped without course info)\n", s.Assembly.Marks, s.Assembly.DroppedNoCourseInfo)
	fmt.Fprintf(w, "  Roster students:    %d in scope of %d\n", s.Roster.RosterInScope, s.Roster.RosterRows)
	fmt.Fprintf(w, "  Eligible courses:   %d current, %d prior (%d prior files)\n", s.CurrentEligible, s.PriorEligible, s.PriorYears)
	fmt.Fprintf(w, "  Students written:   %d (%d without GPA)\n", s.Combine.Students, s.Combine.NullGPA)
	if s.Combine.RepeatedStudentYears > 0 {
		fmt.Fprintf(w, "  Repeated years:     %d student-years summed across inputs\n", s.Combine.RepeatedStudentYears)
	}
	fmt.Fprintf(w, "  Output:             %s (%s)\n", filepath.Clean(output), format)
}
