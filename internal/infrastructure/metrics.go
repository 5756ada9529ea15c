package infrastructure

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the instruments recorded during a run together with
// the live status served by the status endpoint. A nil *PipelineMetrics is
// valid and records nothing.
type PipelineMetrics struct {
	RowsRead         metric.Int64Counter
	RowsDropped      metric.Int64Counter
	EligibleRows     metric.Int64Counter
	StudentsWritten  metric.Int64Counter
	SchemaViolations metric.Int64Counter
	StageDuration    metric.Float64Histogram

	status *RunStatus
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsRead, err := meter.Int64Counter(
		"cumgpa_rows_read_total",
		metric.WithDescription("Rows read per source"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"cumgpa_rows_dropped_total",
		metric.WithDescription("Rows removed by joins and filters"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	eligible, err := meter.Int64Counter(
		"cumgpa_eligible_rows_total",
		metric.WithDescription("Coursegrade rows that contributed to yearly totals"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	students, err := meter.Int64Counter(
		"cumgpa_students_written_total",
		metric.WithDescription("Cumulative GPA rows written"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	violations, err := meter.Int64Counter(
		"cumgpa_schema_violations_total",
		metric.WithDescription("Structural contract violations"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"cumgpa_stage_duration_seconds",
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsRead:         rowsRead,
		RowsDropped:      rowsDropped,
		EligibleRows:     eligible,
		StudentsWritten:  students,
		SchemaViolations: violations,
		StageDuration:    stageDuration,
		status:           &RunStatus{},
	}, nil
}

// RecordRows counts rows read from source
func (m *PipelineMetrics) RecordRows(ctx context.Context, source string, n int) {
	if m == nil {
		return
	}
	m.RowsRead.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
	m.status.addRows(n)
}

// RecordDropped counts rows removed for reason
func (m *PipelineMetrics) RecordDropped(ctx context.Context, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordEligible counts rows that passed the eligibility filter
func (m *PipelineMetrics) RecordEligible(ctx context.Context, dataset string, n int) {
	if m == nil {
		return
	}
	m.EligibleRows.Add(ctx, int64(n), metric.WithAttributes(attribute.String("dataset", dataset)))
}

// RecordStudents counts result rows handed to the sink
func (m *PipelineMetrics) RecordStudents(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.StudentsWritten.Add(ctx, int64(n))
}

// RecordSchemaViolation counts a structural failure in stage
func (m *PipelineMetrics) RecordSchemaViolation(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.SchemaViolations.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// StartStage marks stage as running and returns a func that records its duration.
func (m *PipelineMetrics) StartStage(ctx context.Context, stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.status.setStage(stage)
	return func() {
		m.StageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
		m.status.completeStage(stage)
	}
}

// Begin records the start of a run
func (m *PipelineMetrics) Begin(runID string) {
	if m == nil {
		return
	}
	m.status.begin(runID)
}

// Finish records the end of a run
func (m *PipelineMetrics) Finish(err error) {
	if m == nil {
		return
	}
	m.status.finish(err)
}

// Status returns a snapshot of the current run
func (m *PipelineMetrics) Status() RunSnapshot {
	if m == nil {
		return RunSnapshot{}
	}
	return m.status.snapshot()
}

// RunSnapshot is the externally visible state of a run
type RunSnapshot struct {
	RunID           string     `json:"run_id,omitempty"`
	State           string     `json:"state"`
	Stage           string     `json:"stage,omitempty"`
	CompletedStages []string   `json:"completed_stages"`
	RowsRead        int        `json:"rows_read"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// RunStatus tracks the progress of a single run
type RunStatus struct {
	mu        sync.RWMutex
	runID     string
	state     string
	stage     string
	completed []string
	rows      int
	started   time.Time
	finished  time.Time
	err       error
}

func (s *RunStatus) begin(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	s.state = "running"
	s.started = time.Now()
}

func (s *RunStatus) setStage(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

func (s *RunStatus) completeStage(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, stage)
	if s.stage == stage {
		s.stage = ""
	}
}

func (s *RunStatus) addRows(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows += n
}

func (s *RunStatus) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = time.Now()
	s.err = err
	if err != nil {
		s.state = "failed"
	} else {
		s.state = "succeeded"
	}
}

func (s *RunStatus) snapshot() RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := RunSnapshot{
		RunID:           s.runID,
		State:           s.state,
		Stage:           s.stage,
		CompletedStages: append([]string{}, s.completed...),
		RowsRead:        s.rows,
	}
	if snap.State == "" {
		snap.State = "idle"
	}
	if !s.started.IsZero() {
		started := s.started
		snap.StartedAt = &started
	}
	if !s.finished.IsZero() {
		finished := s.finished
		snap.FinishedAt = &finished
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
