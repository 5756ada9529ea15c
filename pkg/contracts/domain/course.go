package domain

// StudentMark is one final, credit-bearing, non-exam mark row from the
// student marks table.
type StudentMark struct {
	SchoolYear    int           `json:"school_year" db:"school_year" validate:"required"`
	StudentID     string        `json:"student_id" db:"student_id" validate:"required"`
	SchoolDBN     string        `json:"school_dbn" db:"school_dbn"`
	TermCode      string        `json:"term_cd" db:"term_cd"`
	CourseCode    string        `json:"course_cd" db:"course_cd"`
	Section       string        `json:"section" db:"section"`
	Credits       Null[float64] `json:"credits" db:"credits"`
	Mark          Null[string]  `json:"mark" db:"mark"`
	MarkingPeriod string        `json:"marking_period" db:"marking_period"`
}

// CourseKey identifies a course offering in a given term.
type CourseKey struct {
	SchoolYear int
	SchoolDBN  string
	TermCode   string
	CourseCode string
}

// Key returns the course key of the mark.
func (m StudentMark) Key() CourseKey {
	return CourseKey{SchoolYear: m.SchoolYear, SchoolDBN: m.SchoolDBN, TermCode: m.TermCode, CourseCode: m.CourseCode}
}

// CourseInfo carries course-level metadata. Unique per CourseKey.
type CourseInfo struct {
	SchoolYear         int           `json:"school_year" db:"school_year"`
	SchoolDBN          string        `json:"school_dbn" db:"school_dbn"`
	TermCode           string        `json:"term_cd" db:"term_cd"`
	CourseCode         string        `json:"course_cd" db:"course_cd"`
	CourseTitle        string        `json:"course_title" db:"course_title"`
	GradeAverageFactor Null[float64] `json:"grade_average_factor" db:"grade_average_factor"`
}

// Key returns the course key of the info row.
func (c CourseInfo) Key() CourseKey {
	return CourseKey{SchoolYear: c.SchoolYear, SchoolDBN: c.SchoolDBN, TermCode: c.TermCode, CourseCode: c.CourseCode}
}

// FlagKey identifies a course offering in a given marking period.
type FlagKey struct {
	CourseKey
	MarkingPeriod string
}

// CourseFlag says whether a course counts toward the grade average in a
// marking period.
type CourseFlag struct {
	SchoolYear        int           `json:"school_year" db:"school_year"`
	SchoolDBN         string        `json:"school_dbn" db:"school_dbn"`
	TermCode          string        `json:"term_cd" db:"term_cd"`
	CourseCode        string        `json:"course_cd" db:"course_cd"`
	MarkingPeriod     string        `json:"marking_period" db:"marking_period"`
	GradeAveragedFlag Null[float64] `json:"grade_averaged_flag" db:"grade_averaged_flag"`
}

// Key returns the flag key.
func (f CourseFlag) Key() FlagKey {
	return FlagKey{
		CourseKey:     CourseKey{SchoolYear: f.SchoolYear, SchoolDBN: f.SchoolDBN, TermCode: f.TermCode, CourseCode: f.CourseCode},
		MarkingPeriod: f.MarkingPeriod,
	}
}

// School maps a school DBN to its numeric identifier.
type School struct {
	SchoolDBN        string `json:"school_dbn" db:"school_dbn"`
	NumericSchoolDBN string `json:"numeric_schooldbn" db:"numeric_schooldbn"`
}

// MarkKey identifies a grade scale entry. A null mark is a distinct key value.
type MarkKey struct {
	SchoolYear       int
	NumericSchoolDBN string
	TermCode         string
	Mark             Null[string]
}

// MarkDefinition is one row of a school's grade scale.
type MarkDefinition struct {
	SchoolYear        int           `json:"school_year" db:"school_year"`
	NumericSchoolDBN  string        `json:"numeric_schooldbn" db:"numeric_schooldbn"`
	TermCode          string        `json:"term_cd" db:"term_cd"`
	Mark              Null[string]  `json:"mark" db:"mark"`
	IsPassing         Null[float64] `json:"is_passing" db:"is_passing"`
	AlphaEquivalent   Null[string]  `json:"alpha_equivalent" db:"alpha_equivalent"`
	NumericEquivalent Null[float64] `json:"numeric_equivalent" db:"numeric_equivalent"`
}

// Key returns the grade scale key.
func (d MarkDefinition) Key() MarkKey {
	return MarkKey{SchoolYear: d.SchoolYear, NumericSchoolDBN: d.NumericSchoolDBN, TermCode: d.TermCode, Mark: d.Mark}
}

// YearTables holds the raw record sets of one school year.
type YearTables struct {
	SchoolYear      int
	Marks           []StudentMark
	CourseInfo      []CourseInfo
	CourseFlags     []CourseFlag
	Schools         []School
	MarkDefinitions []MarkDefinition
}

// RowCount returns the total number of rows across all five sets.
func (y *YearTables) RowCount() int {
	return len(y.Marks) + len(y.CourseInfo) + len(y.CourseFlags) + len(y.Schools) + len(y.MarkDefinitions)
}
