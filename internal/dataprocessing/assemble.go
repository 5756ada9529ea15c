package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cumgpa/internal/errors"
	"cumgpa/pkg/contracts/domain"
)

// Assembler joins one year's raw record sets into coursegrades.
type Assembler struct {
	logger            *slog.Logger
	dataset           string
	requireCourseInfo bool
}

// AssemblerConfig holds configuration options for the Assembler.
type AssemblerConfig struct {
	Dataset string // label stamped on every coursegrade
	// RequireCourseInfo turns a mark without course metadata into a
	// SchemaViolation instead of dropping it.
	RequireCourseInfo bool
}

// AssemblyReport counts what each join did to the mark set.
type AssemblyReport struct {
	Marks                 int
	DroppedNoCourseInfo   int
	UnmatchedFlags        int
	DuplicateFlagsRemoved int
	UnmatchedMarkDefs     int
	CourseGrades          int
}

// NewAssembler creates a new assembler with the given configuration.
func NewAssembler(logger *slog.Logger, config AssemblerConfig) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Dataset == "" {
		config.Dataset = domain.DefaultDataset
	}
	return &Assembler{
		logger:            logger.With(slog.String("component", "assembler")),
		dataset:           config.Dataset,
		requireCourseInfo: config.RequireCourseInfo,
	}
}

// Assemble produces one coursegrade per mark that has course metadata, in
// input order. Course flags are deduplicated before joining. Any violated
// many-to-one contract, or a mark school missing from the crosswalk, is a
// SchemaViolation.
func (a *Assembler) Assemble(ctx context.Context, tables *domain.YearTables) ([]domain.CourseGrade, AssemblyReport, error) {
	var report AssemblyReport
	if tables == nil {
		return nil, report, errors.NewAppValidationError("no year tables to assemble")
	}
	report.Marks = len(tables.Marks)

	info, err := indexUnique("course info", tables.CourseInfo, domain.CourseInfo.Key)
	if err != nil {
		return nil, report, err
	}

	flags := DedupeCourseFlags(tables.CourseFlags)
	report.DuplicateFlagsRemoved = len(tables.CourseFlags) - len(flags)
	flagIdx, err := indexUnique("course flag", flags, domain.CourseFlag.Key)
	if err != nil {
		return nil, report, err
	}

	schools, err := indexUnique("school", tables.Schools, func(s domain.School) string { return s.SchoolDBN })
	if err != nil {
		return nil, report, err
	}

	markDefs, err := indexUnique("mark definition", tables.MarkDefinitions, domain.MarkDefinition.Key)
	if err != nil {
		return nil, report, err
	}

	grades := make([]domain.CourseGrade, 0, len(tables.Marks))
	for _, m := range tables.Marks {
		ci, ok := info[m.Key()]
		if !ok {
			if a.requireCourseInfo {
				return nil, report, errors.NewSchemaViolation(
					fmt.Sprintf("mark for student %s has no course info for %s", m.StudentID, formatCourseKey(m.Key())))
			}
			report.DroppedNoCourseInfo++
			continue
		}

		school, ok := schools[m.SchoolDBN]
		if !ok {
			return nil, report, errors.NewSchemaViolation(
				fmt.Sprintf("school %q has no entry in the school crosswalk", m.SchoolDBN)).
				WithContext("join", "school").
				WithContext("school_dbn", m.SchoolDBN)
		}

		g := domain.CourseGrade{
			SchoolYear:         m.SchoolYear,
			StudentID:          m.StudentID,
			SchoolDBN:          m.SchoolDBN,
			TermCode:           m.TermCode,
			Section:            m.Section,
			CourseCode:         m.CourseCode,
			CourseTitle:        ci.CourseTitle,
			Credits:            m.Credits,
			Mark:               m.Mark,
			GradeAverageFactor: ci.GradeAverageFactor,
			MarkingPeriod:      m.MarkingPeriod,
			NumericSchoolDBN:   school.NumericSchoolDBN,
			Dataset:            a.dataset,
		}

		if f, ok := flagIdx[domain.FlagKey{CourseKey: m.Key(), MarkingPeriod: m.MarkingPeriod}]; ok {
			g.GradeAveragedFlag = f.GradeAveragedFlag
		} else {
			report.UnmatchedFlags++
		}

		mk := domain.MarkKey{SchoolYear: m.SchoolYear, NumericSchoolDBN: school.NumericSchoolDBN, TermCode: m.TermCode, Mark: m.Mark}
		if d, ok := markDefs[mk]; ok {
			g.IsPassing = d.IsPassing
			g.AlphaEquivalent = d.AlphaEquivalent
			g.NumericEquivalent = d.NumericEquivalent
		} else {
			report.UnmatchedMarkDefs++
		}

		grades = append(grades, g)
	}

	grades = ApplyCourseAttributes(grades)
	report.CourseGrades = len(grades)

	if report.DroppedNoCourseInfo > 0 {
		a.logger.WarnContext(ctx, "marks without course info dropped",
			slog.Int("school_year", tables.SchoolYear),
			slog.Int("dropped", report.DroppedNoCourseInfo))
	}

	a.logger.InfoContext(ctx, "coursegrades assembled",
		slog.Int("school_year", tables.SchoolYear),
		slog.Int("marks", report.Marks),
		slog.Int("coursegrades", report.CourseGrades),
		slog.Int("unmatched_flags", report.UnmatchedFlags),
		slog.Int("unmatched_mark_definitions", report.UnmatchedMarkDefs),
		slog.Int("duplicate_flags_removed", report.DuplicateFlagsRemoved))

	return grades, report, nil
}

// DedupeCourseFlags sorts flags by (school year, school, term, course,
// marking period, grade averaged flag) and keeps the first row of each key.
// Among key duplicates the lowest flag wins, with a null flag ordered before
// any value, so the kept row does not depend on the order rows arrive in.
func DedupeCourseFlags(flags []domain.CourseFlag) []domain.CourseFlag {
	sorted := make([]domain.CourseFlag, len(flags))
	copy(sorted, flags)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Key(), sorted[j].Key()
		if a != b {
			return flagKeyLess(a, b)
		}
		return compareNull(sorted[i].GradeAveragedFlag, sorted[j].GradeAveragedFlag) < 0
	})

	out := make([]domain.CourseFlag, 0, len(sorted))
	for i, f := range sorted {
		if i > 0 && f.Key() == sorted[i-1].Key() {
			continue
		}
		out = append(out, f)
	}
	return out
}

func flagKeyLess(a, b domain.FlagKey) bool {
	if a.SchoolYear != b.SchoolYear {
		return a.SchoolYear < b.SchoolYear
	}
	if a.SchoolDBN != b.SchoolDBN {
		return a.SchoolDBN < b.SchoolDBN
	}
	if a.TermCode != b.TermCode {
		return a.TermCode < b.TermCode
	}
	if a.CourseCode != b.CourseCode {
		return a.CourseCode < b.CourseCode
	}
	return a.MarkingPeriod < b.MarkingPeriod
}

// indexUnique indexes rows by key, failing on the first key seen twice.
func indexUnique[K comparable, R any](join string, rows []R, key func(R) K) (map[K]R, error) {
	idx := make(map[K]R, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, dup := idx[k]; dup {
			return nil, errors.NewCardinalityError(join, "m:1", describeKey(k))
		}
		idx[k] = r
	}
	return idx, nil
}

func describeKey(k any) string {
	switch v := k.(type) {
	case domain.CourseKey:
		return formatCourseKey(v)
	case domain.FlagKey:
		return fmt.Sprintf("%s/%s", formatCourseKey(v.CourseKey), v.MarkingPeriod)
	case domain.MarkKey:
		mark := "<null>"
		if v.Mark.Valid {
			mark = v.Mark.Val
		}
		return fmt.Sprintf("%d/%s/%s/%s", v.SchoolYear, v.NumericSchoolDBN, v.TermCode, mark)
	default:
		return fmt.Sprint(v)
	}
}

func formatCourseKey(k domain.CourseKey) string {
	return fmt.Sprintf("%d/%s/%s/%s", k.SchoolYear, k.SchoolDBN, k.TermCode, k.CourseCode)
}
