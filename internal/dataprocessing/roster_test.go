package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cumgpa/internal/errors"
	"cumgpa/pkg/contracts/domain"
)

var highSchool = []string{"09", "10", "11", "12"}

func TestNormalizeGradeLevel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"9", "09"},
		{"09", "09"},
		{" 10 ", "10"},
		{"K", "K"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeGradeLevel(tt.in), "input %q", tt.in)
	}
}

func TestRestrictToRoster(t *testing.T) {
	grades := []domain.CourseGrade{
		{StudentID: "S1", Mark: domain.Some("A"), IsPassing: domain.Some(1.0)},
		{StudentID: "S1", IsPassing: domain.Some(1.0)},
		{StudentID: "S2", Mark: domain.Some("B"), IsPassing: domain.Some(1.0)},
		{StudentID: "S3", Mark: domain.Some("C"), IsPassing: domain.Some(1.0)},
	}
	roster := []domain.BiographicRecord{
		{StudentID: "S1", GradeLevel: "9"},
		{StudentID: "S2", GradeLevel: "08"},
		{StudentID: "S4", GradeLevel: "12"},
	}

	out, report, err := RestrictToRoster(grades, roster, highSchool)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, domain.Some(1.0), out[0].IsPassing)
	assert.False(t, out[1].IsPassing.Valid, "is_passing is cleared when mark is null")

	assert.Equal(t, RosterReport{RosterRows: 3, RosterInScope: 2, DroppedGrades: 2, IsPassingNulled: 1}, report)

	// the caller's slice is not modified
	assert.True(t, grades[1].IsPassing.Valid)
}

func TestRestrictToRoster_DuplicateStudent(t *testing.T) {
	roster := []domain.BiographicRecord{
		{StudentID: "S1", GradeLevel: "10"},
		{StudentID: "S1", GradeLevel: "11"},
	}

	_, _, err := RestrictToRoster(nil, roster, highSchool)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchemaViolation))
}

func TestRestrictToRoster_DuplicateOutOfScopeIgnored(t *testing.T) {
	roster := []domain.BiographicRecord{
		{StudentID: "S1", GradeLevel: "07"},
		{StudentID: "S1", GradeLevel: "08"},
		{StudentID: "S1", GradeLevel: "09"},
	}

	_, report, err := RestrictToRoster(nil, roster, highSchool)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RosterInScope)
}
