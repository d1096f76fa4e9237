package results

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Result{{
		Evaluatee:  "Ann, Jr.",
		Department: "Math",
		Evaluation: "2026",
		Evaluator:  "Eve",
		Status:     "SUBMITTED",
		TotalScore: 3.5,
		MaxScore:   5,
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"Ann, Jr.", "Math", "2026", "Eve", "SUBMITTED", "3.50", "5.00"}, records[1])
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "results-2026-10-16.csv", ExportFilename(now))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, Result{
		Evaluation: "Annual",
		Evaluatee:  "Ann",
		Department: "Math",
		Evaluator:  "Eve",
		Status:     "LOCKED",
		TotalScore: 2,
		MaxScore:   3,
		Details:    []Detail{{Topic: "Teaching", Indicator: "Plans", Score: 3, Weight: 3, CalculatedScore: 2}},
	}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
