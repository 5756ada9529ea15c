package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"cumgpa/internal/errors"
	"cumgpa/internal/infrastructure"
	"cumgpa/pkg/contracts/domain"
)

// YearSource loads the raw record sets of one school year.
type YearSource interface {
	LoadYear(ctx context.Context, year int) (*domain.YearTables, error)
}

// RosterSource loads a biographic roster.
type RosterSource interface {
	LoadRoster(ctx context.Context, path string) ([]domain.BiographicRecord, error)
}

// PriorSource loads a prior year's coursegrades.
type PriorSource interface {
	LoadPriorCourses(ctx context.Context, path string) ([]domain.CourseGrade, error)
}

// ResultSink persists the cumulative result.
type ResultSink interface {
	WriteCumulative(ctx context.Context, path string, rows []domain.CumulativeGPA) error
}

// PriorYearInput names one prior-year coursegrade file. Label is only
// used in logs; the school year is read from the file.
type PriorYearInput struct {
	Label string `validate:"required"`
	Path  string `validate:"required"`
}

// RunRequest describes one cumulative GPA run.
type RunRequest struct {
	Year       int              `validate:"min=1900,max=2200"`
	RosterPath string           `validate:"required"`
	Prior      []PriorYearInput `validate:"dive"`
	OutputPath string           `validate:"required"`
}

// PipelineConfig holds configuration options for the Pipeline.
type PipelineConfig struct {
	Rounding          RoundingMode
	GradeLevels       []string
	Dataset           string
	MaxParallelYears  int
	RequireCourseInfo bool
}

// DefaultPipelineConfig returns the configuration used when none is given.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Rounding:         RoundHalfEven,
		GradeLevels:      []string{"09", "10", "11", "12"},
		Dataset:          domain.DefaultDataset,
		MaxParallelYears: 4,
	}
}

// RunSummary reports what a run did.
type RunSummary struct {
	RunID           string
	Year            int
	PriorYears      int
	Assembly        AssemblyReport
	Roster          RosterReport
	CurrentEligible int
	PriorEligible   int
	Combine         CombineReport
	Duration        time.Duration
}

// Pipeline wires the stages of a cumulative GPA run: assemble the current
// year, restrict it to the roster, aggregate it and every prior year, and
// combine the yearly totals.
type Pipeline struct {
	years     YearSource
	roster    RosterSource
	prior     PriorSource
	sink      ResultSink
	config    PipelineConfig
	assembler *Assembler
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *infrastructure.PipelineMetrics
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(years YearSource, roster RosterSource, prior PriorSource, sink ResultSink, logger *slog.Logger, config PipelineConfig, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultPipelineConfig()
	if config.Rounding == "" {
		config.Rounding = defaults.Rounding
	}
	if len(config.GradeLevels) == 0 {
		config.GradeLevels = defaults.GradeLevels
	}
	if config.Dataset == "" {
		config.Dataset = defaults.Dataset
	}
	if config.MaxParallelYears <= 0 {
		config.MaxParallelYears = defaults.MaxParallelYears
	}

	p := &Pipeline{
		years:  years,
		roster: roster,
		prior:  prior,
		sink:   sink,
		config: config,
		assembler: NewAssembler(logger, AssemblerConfig{
			Dataset:           config.Dataset,
			RequireCourseInfo: config.RequireCourseInfo,
		}),
		logger: logger.With(slog.String("component", "pipeline")),
		tracer: noop.NewTracerProvider().Tracer("cumgpa"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var requestValidator = validator.New()

// Validate checks the request's structure.
func (r RunRequest) Validate() error {
	if err := requestValidator.Struct(r); err != nil {
		return errors.NewMalformedArgumentError(fmt.Sprintf("invalid run request: %v", err))
	}
	return nil
}

// Run computes the cumulative GPA and hands it to the sink. Nothing is
// written unless every stage succeeds.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunSummary, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	p.metrics.Begin(infrastructure.GetRunID(ctx))

	rows, summary, err := p.Compute(ctx, req)
	if err == nil {
		err = p.write(ctx, req.OutputPath, rows)
	}

	p.metrics.Finish(err)
	if err != nil {
		return summary, err
	}

	p.logger.InfoContext(ctx, "cumulative GPA written",
		slog.String("output", req.OutputPath),
		slog.Int("students", summary.Combine.Students),
		slog.Int("prior_years", summary.PriorYears),
		slog.Int("current_eligible_rows", summary.CurrentEligible),
		slog.Int("prior_eligible_rows", summary.PriorEligible),
		slog.Int("dropped_no_course_info", summary.Assembly.DroppedNoCourseInfo),
		slog.Int("dropped_not_in_roster", summary.Roster.DroppedGrades),
		slog.Duration("duration", summary.Duration))

	return summary, nil
}

func (p *Pipeline) write(ctx context.Context, path string, rows []domain.CumulativeGPA) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.write", trace.WithAttributes(attribute.String("output", path)))
	defer span.End()
	defer p.metrics.StartStage(ctx, "write")()

	if err := p.sink.WriteCumulative(ctx, path, rows); err != nil {
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("write cumulative GPA: %w", err)
	}
	p.metrics.RecordStudents(ctx, len(rows))
	return nil
}

// Compute runs every stage up to the combine and returns the result
// without persisting it. The current year and each prior year are
// processed concurrently; yearly totals are combined in request order.
func (p *Pipeline) Compute(ctx context.Context, req RunRequest) ([]domain.CumulativeGPA, *RunSummary, error) {
	start := time.Now()
	ctx = infrastructure.EnsureRunID(ctx)
	summary := &RunSummary{RunID: infrastructure.GetRunID(ctx), Year: req.Year, PriorYears: len(req.Prior)}

	if err := req.Validate(); err != nil {
		return nil, summary, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.compute", trace.WithAttributes(
		attribute.Int("school_year", req.Year),
		attribute.Int("prior_years", len(req.Prior)),
	))
	defer span.End()

	p.logger.InfoContext(ctx, "starting cumulative GPA run",
		slog.Int("school_year", req.Year),
		slog.String("roster", req.RosterPath),
		slog.Int("prior_years", len(req.Prior)),
		slog.String("rounding", string(p.config.Rounding)))

	// slot 0 holds the current year, slot i+1 prior year i
	totals := make([][]domain.YearTotals, len(req.Prior)+1)
	priorEligible := make([]int, len(req.Prior))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxParallelYears)

	g.Go(func() error {
		t, err := p.currentYear(gctx, req, summary)
		if err != nil {
			return err
		}
		totals[0] = t
		return nil
	})

	for i, in := range req.Prior {
		g.Go(func() error {
			t, eligible, err := p.priorYear(gctx, in)
			if err != nil {
				return err
			}
			totals[i+1] = t
			priorEligible[i] = eligible
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.fail(ctx, "load", err)
		return nil, summary, err
	}

	for _, n := range priorEligible {
		summary.PriorEligible += n
	}

	done := p.metrics.StartStage(ctx, "combine")
	_, cspan := p.tracer.Start(ctx, "pipeline.combine")
	rows, report := Combine(totals, p.config.Rounding)
	cspan.SetAttributes(attribute.Int("students", report.Students))
	cspan.End()
	done()

	summary.Combine = report
	summary.Duration = time.Since(start)

	if report.RepeatedStudentYears > 0 {
		p.logger.WarnContext(ctx, "students with more than one row for a school year were summed",
			slog.Int("student_years", report.RepeatedStudentYears))
	}

	p.logger.InfoContext(ctx, "cumulative GPA computed",
		slog.Int("students", report.Students),
		slog.Int("yearly_rows", report.InputRows),
		slog.Int("null_gpa", report.NullGPA))

	return rows, summary, nil
}

// currentYear loads, assembles, restricts and aggregates the current year.
func (p *Pipeline) currentYear(ctx context.Context, req RunRequest, summary *RunSummary) ([]domain.YearTotals, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.current_year", trace.WithAttributes(attribute.Int("school_year", req.Year)))
	defer span.End()

	done := p.metrics.StartStage(ctx, "load_current_year")
	tables, err := p.years.LoadYear(ctx, req.Year)
	done()
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("load school year %d: %w", req.Year, err)
	}
	p.metrics.RecordRows(ctx, "relational", tables.RowCount())

	done = p.metrics.StartStage(ctx, "assemble")
	grades, assembly, err := p.assembler.Assemble(ctx, tables)
	done()
	if err != nil {
		p.fail(ctx, "assemble", err)
		return nil, fmt.Errorf("assemble school year %d: %w", req.Year, err)
	}
	summary.Assembly = assembly
	p.metrics.RecordDropped(ctx, "no_course_info", assembly.DroppedNoCourseInfo)

	done = p.metrics.StartStage(ctx, "load_roster")
	roster, err := p.roster.LoadRoster(ctx, req.RosterPath)
	done()
	if err != nil {
		p.fail(ctx, "load_roster", err)
		return nil, fmt.Errorf("load roster: %w", err)
	}
	p.metrics.RecordRows(ctx, "roster", len(roster))

	restricted, rosterReport, err := RestrictToRoster(grades, roster, p.config.GradeLevels)
	if err != nil {
		p.fail(ctx, "roster", err)
		return nil, fmt.Errorf("restrict to roster: %w", err)
	}
	summary.Roster = rosterReport
	p.metrics.RecordDropped(ctx, "not_in_roster", rosterReport.DroppedGrades)

	done = p.metrics.StartStage(ctx, "aggregate_current_year")
	totals, eligible := YearlyTotals(restricted)
	done()
	summary.CurrentEligible = eligible
	p.metrics.RecordEligible(ctx, "current", eligible)

	span.SetAttributes(
		attribute.Int("coursegrades", len(restricted)),
		attribute.Int("eligible", eligible),
		attribute.Int("students", len(totals)),
	)

	p.logger.DebugContext(ctx, "current year aggregated",
		slog.Int("school_year", req.Year),
		slog.Int("roster_in_scope", rosterReport.RosterInScope),
		slog.Int("coursegrades", len(restricted)),
		slog.Int("eligible", eligible),
		slog.Int("student_years", len(totals)))

	return totals, nil
}

// priorYear loads and aggregates one prior-year file.
func (p *Pipeline) priorYear(ctx context.Context, in PriorYearInput) ([]domain.YearTotals, int, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.prior_year", trace.WithAttributes(attribute.String("label", in.Label)))
	defer span.End()

	done := p.metrics.StartStage(ctx, "load_prior_year")
	grades, err := p.prior.LoadPriorCourses(ctx, in.Path)
	done()
	if err != nil {
		p.fail(ctx, "load_prior_year", err)
		return nil, 0, fmt.Errorf("load prior year %s: %w", in.Label, err)
	}
	p.metrics.RecordRows(ctx, "prior_year", len(grades))

	totals, eligible := YearlyTotals(grades)
	p.metrics.RecordEligible(ctx, "prior", eligible)
	span.SetAttributes(attribute.Int("eligible", eligible), attribute.Int("student_years", len(totals)))

	p.logger.DebugContext(ctx, "prior year aggregated",
		slog.String("label", in.Label),
		slog.String("path", in.Path),
		slog.Int("coursegrades", len(grades)),
		slog.Int("eligible", eligible),
		slog.Int("student_years", len(totals)))

	return totals, eligible, nil
}

// fail records err on the current span and counts schema violations.
func (p *Pipeline) fail(ctx context.Context, stage string, err error) {
	infrastructure.RecordError(ctx, err)
	if errors.IsType(err, errors.ErrTypeSchemaViolation) {
		p.metrics.RecordSchemaViolation(ctx, stage)
	}
}
