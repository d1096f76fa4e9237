package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var csvHeader = []string{"evaluatee", "department", "evaluation", "evaluator", "status", "total_score", "max_score"}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ExportFilename names a CSV export after the day it was produced.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("results-%s.csv", now.Format("2006-01-02"))
}

func WriteCSV(w io.Writer, list []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range list {
		if err := cw.Write([]string{
			r.Evaluatee,
			r.Department,
			r.Evaluation,
			r.Evaluator,
			r.Status,
			formatScore(r.TotalScore),
			formatScore(r.MaxScore),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF renders a single evaluation result.
func WritePDF(w io.Writer, r Result, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Evaluation Result")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Evaluation: %s", r.Evaluation)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Evaluatee: %s (%s)", r.Evaluatee, r.Department)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Evaluator: %s", r.Evaluator)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", r.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{50, 70, 20, 20, 30}
	for i, h := range []string{"Topic", "Indicator", "Score", "Weight", "Weighted"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, d := range r.Details {
		pdf.CellFormat(widths[0], 7, tr(d.Topic), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(d.Indicator), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, strconv.FormatFloat(d.Score, 'f', -1, 64), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, formatScore(d.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, formatScore(d.CalculatedScore), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %s / %s", formatScore(r.TotalScore), formatScore(r.MaxScore)))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 6, "Generated "+generated.UTC().Format(time.RFC3339))

	return pdf.Output(w)
}
