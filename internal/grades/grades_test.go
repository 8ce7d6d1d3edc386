package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGPAWeightedAverage(t *testing.T) {
	records := []Record{
		{Subject: "Math", Grade: "A", Credits: 4},
		{Subject: "Physics", Grade: "O", Credits: 3},
		{Subject: "English", Grade: "F", Credits: 2},
	}

	sgpa, ok := SGPA(records)
	require.True(t, ok)
	// (8*4 + 10*3 + 0*2) / 9 = 62/9 = 6.888... -> 6.89
	assert.Equal(t, 6.89, sgpa)
}

func TestSGPANoValidRecords(t *testing.T) {
	sgpa, ok := SGPA(nil)
	assert.False(t, ok)
	assert.Zero(t, sgpa)
}

func TestSGPAUnknownGradeKeepsCreditWeight(t *testing.T) {
	records := []Record{
		{Grade: "O", Credits: 3},
		{Grade: "XYZ", Credits: 3}, // scores 0, still in denominator
	}

	sgpa, ok := SGPA(records)
	require.True(t, ok)
	assert.Equal(t, 5.0, sgpa)
}

func TestParseResolvesColumnsFromHeader(t *testing.T) {
	rows := [][]string{
		{"S.No", "Subject Code", "Subject Name", "Grade", "Credits"},
		{"1", "CS101", "Data Structures", "A+", "4"},
		{"2", "CS102", "Digital Logic", "B", "3"},
	}

	records := Parse(rows)
	require.Len(t, records, 2)
	assert.Equal(t, Record{Subject: "Data Structures", Grade: "A+", Credits: 4}, records[0])
	assert.Equal(t, Record{Subject: "Digital Logic", Grade: "B", Credits: 3}, records[1])
}

func TestParsePositionalFallback(t *testing.T) {
	// No recognizable header: subject/grade/credits assumed at 4/5/6.
	rows := [][]string{
		{"1", "2023", "R22", "CS201", "Operating Systems", "A", "4"},
		{"2", "2023", "R22", "CS202", "Computer Networks", "O", "3"},
	}

	records := Parse(rows)
	require.Len(t, records, 1) // first row is skipped as the header position
	assert.Equal(t, "Computer Networks", records[0].Subject)
	assert.Equal(t, "O", records[0].Grade)
	assert.Equal(t, 3.0, records[0].Credits)
}

func TestParseSkipsInvalidRows(t *testing.T) {
	rows := [][]string{
		{"Subject", "Grade", "Credits"},
		{"Maths", "A", "4"},
		{"NoGrade", "", "3"},        // empty grade
		{"BadCredits", "B", "n/a"},  // unparseable credits
		{"ZeroCredits", "B+", "0"},  // non-positive credits
		{"Short"},                   // too few cells
	}

	records := Parse(rows)
	require.Len(t, records, 1)
	assert.Equal(t, "Maths", records[0].Subject)
}

func TestParseAllRowsInvalidYieldsNoAverage(t *testing.T) {
	rows := [][]string{
		{"Subject", "Grade", "Credits"},
		{"A", "", "4"},
		{"B", "C", "-1"},
	}

	records := Parse(rows)
	assert.Empty(t, records)

	_, ok := SGPA(records)
	assert.False(t, ok)
}

func TestPoints(t *testing.T) {
	assert.Equal(t, 10.0, Points("O"))
	assert.Equal(t, 9.0, Points("A+"))
	assert.Equal(t, 0.0, Points("AB"))
	assert.Equal(t, 0.0, Points("not-a-grade"))
}
