package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"

	"cumgpa/internal/errors"
	"cumgpa/internal/infrastructure"
	"cumgpa/internal/shared/testutil"
	"cumgpa/pkg/contracts/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockYears struct{ mock.Mock }

func (m *mockYears) LoadYear(ctx context.Context, year int) (*domain.YearTables, error) {
	args := m.Called(ctx, year)
	tables, _ := args.Get(0).(*domain.YearTables)
	return tables, args.Error(1)
}

type mockRoster struct{ mock.Mock }

func (m *mockRoster) LoadRoster(ctx context.Context, path string) ([]domain.BiographicRecord, error) {
	args := m.Called(ctx, path)
	roster, _ := args.Get(0).([]domain.BiographicRecord)
	return roster, args.Error(1)
}

type mockPrior struct{ mock.Mock }

func (m *mockPrior) LoadPriorCourses(ctx context.Context, path string) ([]domain.CourseGrade, error) {
	args := m.Called(ctx, path)
	grades, _ := args.Get(0).([]domain.CourseGrade)
	return grades, args.Error(1)
}

// memorySink keeps every write, keyed by path.
type memorySink struct {
	mu     sync.Mutex
	writes map[string][]domain.CumulativeGPA
	err    error
}

func (s *memorySink) WriteCumulative(_ context.Context, path string, rows []domain.CumulativeGPA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.writes == nil {
		s.writes = make(map[string][]domain.CumulativeGPA)
	}
	s.writes[path] = rows
	return nil
}

type pipelineFixture struct {
	years  *mockYears
	roster *mockRoster
	prior  *mockPrior
	sink   *memorySink
}

func newFixture() *pipelineFixture {
	return &pipelineFixture{
		years:  &mockYears{},
		roster: &mockRoster{},
		prior:  &mockPrior{},
		sink:   &memorySink{},
	}
}

func (f *pipelineFixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	return NewPipeline(f.years, f.roster, f.prior, f.sink, discardLogger(), PipelineConfig{}, opts...)
}

func currentYearTables() *domain.YearTables {
	tables := baseTables()
	// S1: 1 credit of A (95) and 2 credits of B (85 * 1.1)
	tables.Marks = append(tables.Marks, mark("S9", "MATHXH", 1, "A"))
	return tables
}

func priorGrades() []domain.CourseGrade {
	return []domain.CourseGrade{
		grade(2023, "S1", domain.Some(2.0), one, domain.Some(80.0), one, one),
		grade(2023, "S7", domain.Some(1.0), one, domain.Some(70.0), one, one),
	}
}

func request(prior ...PriorYearInput) RunRequest {
	return RunRequest{Year: 2024, RosterPath: "biog.csv", Prior: prior, OutputPath: "out.dta"}
}

func TestPipeline_Run(t *testing.T) {
	f := newFixture()
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{
		{StudentID: "S1", GradeLevel: "11"},
	}, nil)
	f.prior.On("LoadPriorCourses", mock.Anything, "y2023.csv").Return(priorGrades(), nil)

	summary, err := f.pipeline(t).Run(context.Background(), request(PriorYearInput{Label: "2023", Path: "y2023.csv"}))
	require.NoError(t, err)

	rows := f.sink.writes["out.dta"]
	require.Len(t, rows, 2)

	// current: att 3, pts 95 + 187 = 282; prior: att 2, pts 160
	s1 := rows[0]
	assert.Equal(t, "S1", s1.StudentID)
	assert.Equal(t, domain.Some(5.0), s1.TotCredAtt)
	assert.Equal(t, domain.Some(5.0), s1.TotCredEarned)
	assert.InDelta(t, 442.0, s1.TotGPAPts.Val, 1e-9)
	assert.Equal(t, domain.Some(88.4), s1.TotGPA)

	// prior-year students are kept even when absent from the roster
	assert.Equal(t, "S7", rows[1].StudentID)
	assert.Equal(t, domain.Some(70.0), rows[1].TotGPA)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.CurrentEligible)
	assert.Equal(t, 2, summary.PriorEligible)
	assert.Equal(t, 1, summary.Roster.DroppedGrades)
	assert.Equal(t, 2, summary.Combine.Students)

	f.years.AssertExpectations(t)
	f.roster.AssertExpectations(t)
	f.prior.AssertExpectations(t)
}

func TestPipeline_Idempotent(t *testing.T) {
	f := newFixture()
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{{StudentID: "S1", GradeLevel: "09"}}, nil)
	f.prior.On("LoadPriorCourses", mock.Anything, "a.csv").Return(priorGrades(), nil)
	f.prior.On("LoadPriorCourses", mock.Anything, "b.csv").Return([]domain.CourseGrade{
		grade(2022, "S1", domain.Some(0.1), one, domain.Some(0.3), one, one),
	}, nil)

	p := f.pipeline(t)
	first, _, err := p.Compute(context.Background(), request(
		PriorYearInput{Label: "a", Path: "a.csv"}, PriorYearInput{Label: "b", Path: "b.csv"}))
	require.NoError(t, err)

	second, _, err := p.Compute(context.Background(), request(
		PriorYearInput{Label: "b", Path: "b.csv"}, PriorYearInput{Label: "a", Path: "a.csv"}))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPipeline_NoPriorYears(t *testing.T) {
	f := newFixture()
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{{StudentID: "S1", GradeLevel: "12"}}, nil)

	rows, summary, err := f.pipeline(t).Compute(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Some(94.0), rows[0].TotGPA)
	assert.Zero(t, summary.PriorYears)
	f.prior.AssertNotCalled(t, "LoadPriorCourses", mock.Anything, mock.Anything)
}

func TestPipeline_RepeatedStudentYearsWarn(t *testing.T) {
	f := newFixture()
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{{StudentID: "S1", GradeLevel: "12"}}, nil)
	f.prior.On("LoadPriorCourses", mock.Anything, mock.Anything).Return(priorGrades(), nil)

	logger, logs := testutil.NewTestLogger(t)
	p := NewPipeline(f.years, f.roster, f.prior, f.sink, logger, PipelineConfig{})

	_, summary, err := p.Compute(context.Background(), request(
		PriorYearInput{Label: "a", Path: "y2023a.csv"},
		PriorYearInput{Label: "b", Path: "y2023b.csv"},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Combine.RepeatedStudentYears)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "more than one row for a school year")
	testutil.AssertLogAttr(t, logs, "student_years", int64(2))
}

func TestPipeline_UnknownYearCountsTowardTotals(t *testing.T) {
	f := newFixture()
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{{StudentID: "S1", GradeLevel: "12"}}, nil)
	f.prior.On("LoadPriorCourses", mock.Anything, "y2023.csv").Return([]domain.CourseGrade{
		grade(2023, "S1", domain.Some(2.0), one, domain.Some(80.0), one, one),
		grade(domain.UnknownSchoolYear, "S1", domain.Some(2.0), one, domain.Some(70.0), one, one),
	}, nil)

	rows, summary, err := f.pipeline(t).Compute(context.Background(), request(PriorYearInput{Label: "2023", Path: "y2023.csv"}))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// current 3 credits / 282 pts, 2023 adds 2 / 160, the unknown year 2 / 140
	assert.Equal(t, domain.Some(7.0), rows[0].TotCredAtt)
	assert.InDelta(t, 582.0, rows[0].TotGPAPts.Val, 1e-9)
	assert.Equal(t, domain.Some(83.14), rows[0].TotGPA)
	assert.Zero(t, summary.Combine.RepeatedStudentYears)
}

func TestPipeline_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *pipelineFixture)
		wantType errors.ErrorType
	}{
		{
			name: "source failure",
			setup: func(f *pipelineFixture) {
				f.years.On("LoadYear", mock.Anything, 2024).Return(nil, errors.NewSourceError("connection refused", nil))
				f.roster.On("LoadRoster", mock.Anything, mock.Anything).Return([]domain.BiographicRecord{}, nil).Maybe()
				f.prior.On("LoadPriorCourses", mock.Anything, mock.Anything).Return(priorGrades(), nil).Maybe()
			},
			wantType: errors.ErrTypeSource,
		},
		{
			name: "duplicate roster student",
			setup: func(f *pipelineFixture) {
				f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
				f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{
					{StudentID: "S1", GradeLevel: "10"},
					{StudentID: "S1", GradeLevel: "10"},
				}, nil)
				f.prior.On("LoadPriorCourses", mock.Anything, mock.Anything).Return(priorGrades(), nil).Maybe()
			},
			wantType: errors.ErrTypeSchemaViolation,
		},
		{
			name: "prior year missing columns",
			setup: func(f *pipelineFixture) {
				f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil).Maybe()
				f.roster.On("LoadRoster", mock.Anything, mock.Anything).Return([]domain.BiographicRecord{}, nil).Maybe()
				f.prior.On("LoadPriorCourses", mock.Anything, "y2023.csv").
					Return(nil, errors.NewMissingFieldsError("y2023.csv", []string{"credits"}))
			},
			wantType: errors.ErrTypeSchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.pipeline(t).Run(context.Background(), request(PriorYearInput{Label: "2023", Path: "y2023.csv"}))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
			assert.Empty(t, f.sink.writes, "nothing is written on failure")
		})
	}
}

func TestPipeline_InvalidRequest(t *testing.T) {
	f := newFixture()

	_, err := f.pipeline(t).Run(context.Background(), RunRequest{Year: 2024})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeMalformedArgument))
	f.years.AssertNotCalled(t, "LoadYear", mock.Anything, mock.Anything)
}

func TestPipeline_SinkFailure(t *testing.T) {
	f := newFixture()
	f.sink.err = errors.NewStorageError("disk full", nil)
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{{StudentID: "S1", GradeLevel: "10"}}, nil)

	metrics, err := infrastructure.NewPipelineMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	_, err = f.pipeline(t, WithMetrics(metrics)).Run(context.Background(), request())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeStorage))

	status := metrics.Status()
	assert.Equal(t, "failed", status.State)
	assert.Contains(t, status.Error, "disk full")
}

func TestPipeline_ConcurrentPriorYears(t *testing.T) {
	f := newFixture()
	f.years.On("LoadYear", mock.Anything, 2024).Return(currentYearTables(), nil)
	f.roster.On("LoadRoster", mock.Anything, "biog.csv").Return([]domain.BiographicRecord{}, nil)

	var prior []PriorYearInput
	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("y%d.csv", 2012+i)
		f.prior.On("LoadPriorCourses", mock.Anything, path).Return([]domain.CourseGrade{
			grade(2012+i, "S1", one, one, domain.Some(float64(60+i)), one, one),
		}, nil)
		prior = append(prior, PriorYearInput{Label: path, Path: path})
	}

	p := NewPipeline(f.years, f.roster, f.prior, f.sink, discardLogger(), PipelineConfig{MaxParallelYears: 3})
	rows, summary, err := p.Compute(context.Background(), request(prior...))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12, summary.PriorEligible)
	assert.Equal(t, domain.Some(65.5), rows[0].TotGPA)
}
