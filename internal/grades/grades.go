// Package grades turns the portal's semester-wise marks table into a
// semester grade point average. Parsing is tolerant by design: the table has
// no stable schema, so rows that fail validation are skipped rather than
// failing the whole computation.
package grades

import (
	"math"
	"strconv"
	"strings"
)

// gradePoints is the fixed grade-to-point table the institution publishes.
// Grades outside this table score 0 but still consume their credit weight.
var gradePoints = map[string]float64{
	"O":  10,
	"A+": 9,
	"A":  8,
	"B+": 7,
	"B":  6,
	"C":  5,
	"F":  0,
	"AB": 0,
}

// Record is one extracted (subject, grade, credits) row of the marks table.
type Record struct {
	Subject string
	Grade   string
	Credits float64
}

// Points returns the grade point value for a letter grade, 0 for grades not
// in the table.
func Points(grade string) float64 {
	return gradePoints[grade]
}

// SGPA computes the credit-weighted mean of the records' grade points,
// rounded to two decimals. The second return is false when no credit weight
// was accumulated and no average exists.
func SGPA(records []Record) (float64, bool) {
	var totalCredits, totalPoints float64
	for _, r := range records {
		totalCredits += r.Credits
		totalPoints += Points(r.Grade) * r.Credits
	}
	if totalCredits == 0 {
		return 0, false
	}
	return math.Round(totalPoints/totalCredits*100) / 100, true
}

// Column positions used when no header row resolves them. They mirror the
// portal's observed layout: subject in column 4, grade in 5, credits in 6.
const (
	fallbackSubjectCol = 4
	fallbackGradeCol   = 5
	fallbackCreditsCol = 6
)

// columns holds resolved cell indices for the three fields of interest.
type columns struct {
	subject int
	grade   int
	credits int
}

// resolveColumns scans rows for a header row mentioning credit/grade/subject
// and resolves column indices from it. When header-based resolution fails it
// falls back to the fixed positional guess.
func resolveColumns(rows [][]string) columns {
	for _, row := range rows {
		lowered := make([]string, len(row))
		isHeader := false
		for i, cell := range row {
			lowered[i] = strings.ToLower(strings.TrimSpace(cell))
			if strings.Contains(lowered[i], "credit") ||
				strings.Contains(lowered[i], "grade") ||
				strings.Contains(lowered[i], "subject") {
				isHeader = true
			}
		}
		if !isHeader {
			continue
		}

		cols := columns{subject: -1, grade: -1, credits: -1}
		for i, cell := range lowered {
			switch {
			case strings.Contains(cell, "credit"):
				cols.credits = i
			case strings.Contains(cell, "grade"):
				cols.grade = i
			case strings.Contains(cell, "subject"):
				cols.subject = i
			}
		}
		if cols.credits == -1 || cols.grade == -1 {
			break
		}
		return cols
	}
	return columns{
		subject: fallbackSubjectCol,
		grade:   fallbackGradeCol,
		credits: fallbackCreditsCol,
	}
}

// Parse extracts valid records from a raw cell-text grid, skipping the header
// row and any row without a non-empty grade and a positive parseable credit
// value.
func Parse(rows [][]string) []Record {
	cols := resolveColumns(rows)

	var records []Record
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		if len(row) <= max(cols.credits, cols.grade) {
			continue
		}

		grade := strings.TrimSpace(row[cols.grade])
		if grade == "" {
			continue
		}

		credits, err := strconv.ParseFloat(strings.TrimSpace(row[cols.credits]), 64)
		if err != nil || credits <= 0 {
			continue
		}

		subject := ""
		if cols.subject >= 0 && cols.subject < len(row) {
			subject = strings.TrimSpace(row[cols.subject])
		}

		records = append(records, Record{Subject: subject, Grade: grade, Credits: credits})
	}
	return records
}
