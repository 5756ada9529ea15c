package domain

// DefaultDataset is the dataset label stamped on assembled coursegrades.
const DefaultDataset = "High School"

// CourseGrade is one student mark joined with its course metadata, grade
// averaging flag, school crosswalk and grade scale entry.
//
// Field order follows the layout used when coursegrades are exported.
type CourseGrade struct {
	SchoolYear         int           `json:"school_year" csv:"school_year"`
	StudentID          string        `json:"student_id" csv:"student_id"`
	SchoolDBN          string        `json:"dbn" csv:"dbn"`
	TermCode           string        `json:"term_code" csv:"term_code"`
	Section            string        `json:"section" csv:"section"`
	CourseCode         string        `json:"course_code" csv:"course_code"`
	CourseTitle        string        `json:"course_title" csv:"course_title"`
	Subject            string        `json:"subject" csv:"subject"`
	CourseDescription  string        `json:"course_description" csv:"course_description"`
	Credits            Null[float64] `json:"credits" csv:"credits"`
	Mark               Null[string]  `json:"mark" csv:"mark"`
	GradeAverageFactor Null[float64] `json:"grade_average_factor" csv:"grade_average_factor"`
	GradeAveragedFlag  Null[float64] `json:"grade_averaged_flag" csv:"grade_averaged_flag"`
	IsPassing          Null[float64] `json:"is_passing" csv:"is_passing"`
	AlphaEquivalent    Null[string]  `json:"alpha_equivalent" csv:"alpha_equivalent"`
	NumericEquivalent  Null[float64] `json:"numeric_equivalent" csv:"numeric_equivalent"`
	MarkingPeriod      string        `json:"markingperiod" csv:"markingperiod"`
	NumericSchoolDBN   string        `json:"numericschooldbn" csv:"numericschooldbn"`
	Dataset            string        `json:"dataset" csv:"dataset"`
}

// BiographicRecord is one row of the student roster.
type BiographicRecord struct {
	StudentID  string `json:"student_id" validate:"required"`
	GradeLevel string `json:"grade_level"`
}

// UnknownSchoolYear groups prior-year rows whose school_year is blank. The
// rows still count toward the student's cumulative totals.
const UnknownSchoolYear = 0

// YearTotals holds one student's summed credits and grade points for a year.
// Each total is null when no contributing value was observed.
type YearTotals struct {
	SchoolYear    int           `json:"school_year"`
	StudentID     string        `json:"student_id"`
	TotCredAtt    Null[float64] `json:"tot_cred_att"`
	TotCredEarned Null[float64] `json:"tot_cred_earned"`
	TotGPAPts     Null[float64] `json:"tot_gpa_pts"`
}

// CumulativeGPA is the final per-student result.
type CumulativeGPA struct {
	StudentID     string        `json:"student_id"`
	TotCredAtt    Null[float64] `json:"tot_cred_att"`
	TotCredEarned Null[float64] `json:"tot_cred_earned"`
	TotGPAPts     Null[float64] `json:"tot_gpa_pts"`
	TotGPA        Null[float64] `json:"tot_gpa"`
}

// CumulativeColumns is the output column order.
var CumulativeColumns = []string{"student_id", "tot_cred_att", "tot_cred_earned", "tot_gpa_pts", "tot_gpa"}

// PriorCourseColumns are the fields a prior-year coursegrade file must carry.
var PriorCourseColumns = []string{
	"school_year",
	"student_id",
	"credits",
	"is_passing",
	"numeric_equivalent",
	"grade_average_factor",
	"grade_averaged_flag",
}

// RosterColumns are the fields a biographic roster file must carry.
var RosterColumns = []string{"student_id", "grade_level"}
