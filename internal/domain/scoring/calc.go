package scoring

import (
	"math"
	"time"

	"perfeval/internal/domain/assignment"
	"perfeval/internal/domain/evaluation"
)

// Calculate converts a raw score into its weighted value.
//
//	SCALE_1_4: ((raw - 1) / 3) * weight
//	YES_NO:    (raw == 1 ? 1 : 0) * weight
func Calculate(indicatorType string, weight, raw float64) float64 {
	switch indicatorType {
	case evaluation.IndicatorYesNo:
		if raw == 1 {
			return weight
		}
		return 0
	default:
		return ((raw - ScaleMin) / (ScaleMax - ScaleMin)) * weight
	}
}

// ValidateRaw checks the raw value against the indicator type.
func ValidateRaw(indicatorType string, raw float64) error {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return ErrInvalidScore
	}
	switch indicatorType {
	case evaluation.IndicatorYesNo:
		if raw != 0 && raw != 1 {
			return ErrScoreOutOfRange
		}
	default:
		if raw != math.Trunc(raw) || raw < ScaleMin || raw > ScaleMax {
			return ErrScoreOutOfRange
		}
	}
	return nil
}

// EvidenceRequired reports whether a score needs evidence on file. A YES_NO
// answer of 0 never does.
func EvidenceRequired(ind evaluation.Indicator, raw float64) bool {
	if !ind.RequireEvidence {
		return false
	}
	return ind.Type != evaluation.IndicatorYesNo || raw == 1
}

// CheckWindow applies the temporal and status gate.
func CheckWindow(e evaluation.Evaluation, assignmentStatus string, now time.Time) error {
	if !e.AcceptsSubmissions(now) {
		return ErrEvaluationClosed
	}
	if !assignment.Editable(assignmentStatus) {
		return ErrAssignmentLocked
	}
	return nil
}

// Changed reports whether an update alters the raw score or remarks.
func Changed(existing Score, raw float64, remarks string) bool {
	return existing.RawScore != raw || existing.Remarks != remarks
}
