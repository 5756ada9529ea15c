package dataprocessing

import "cumgpa/pkg/contracts/domain"

// Positions within a course code that carry meaning.
const (
	subjectPos     = 0 // department letter
	levelPos       = 3 // 'J' elementary, 'M' middle school
	descriptionPos = 5 // course type letter
)

var subjectByCode = map[byte]string{
	'E': "English",
	'H': "Social Studies",
	'M': "Mathematics",
	'S': "Science",
	'F': "Foreign Language",
	'P': "Physical Education & Health",
	'A': "Arts",
	'U': "Arts",
	'D': "Arts",
	'C': "Arts",
	'T': "Technology",
	'R': "Career Development",
	'B': "Business",
	'K': "Human Services",
	'G': "Guidance",
	'Z': "Undefined",
}

var descriptionByCode = map[byte]string{
	'H': "Honors",
	'X': "Advanced Placement (AP)",
	'B': "International Baccalaureate (IB)",
	'U': "College-Level: College Credit",
	'C': "College-Level: Non-College Credit",
	'T': "CTE",
	'S': "Non-Credit/Remediation",
	'P': "Exam Preparation",
	'Q': "N/A",
}

// CourseAttributes are the labels encoded in a course code.
type CourseAttributes struct {
	Subject     string
	Description string
}

// DeriveCourseAttributes decodes subject and course description from a
// course code. Positions past the end of the code are treated as empty.
//
// The base tables apply first, then the elementary override (level 'J'
// clears both labels), then the middle-school overrides (level 'M' marks
// type 'A' as Accelerated and clears X, B, U, C and P).
func DeriveCourseAttributes(courseCode string) CourseAttributes {
	first := charAt(courseCode, subjectPos)
	level := charAt(courseCode, levelPos)
	kind := charAt(courseCode, descriptionPos)

	attrs := CourseAttributes{
		Subject:     subjectByCode[first],
		Description: descriptionByCode[kind],
	}

	if level == 'J' {
		attrs = CourseAttributes{}
	}

	if level == 'M' {
		switch kind {
		case 'A':
			attrs.Description = "Accelerated"
		case 'X', 'B', 'U', 'C', 'P':
			attrs.Description = ""
		}
	}

	return attrs
}

// ApplyCourseAttributes returns a copy of grades with Subject and
// CourseDescription derived from each course code.
func ApplyCourseAttributes(grades []domain.CourseGrade) []domain.CourseGrade {
	out := make([]domain.CourseGrade, len(grades))
	for i, g := range grades {
		attrs := DeriveCourseAttributes(g.CourseCode)
		g.Subject = attrs.Subject
		g.CourseDescription = attrs.Description
		out[i] = g
	}
	return out
}

// charAt returns the byte at i, or 0 when the code is too short.
func charAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}
