package scoring

import "errors"

var (
	ErrInvalidScore             = errors.New("score must be a number")
	ErrScoreOutOfRange          = errors.New("score out of range for indicator type")
	ErrAssignmentNotFound       = errors.New("assignment not found")
	ErrIndicatorNotFound        = errors.New("indicator not found")
	ErrNotFound                 = errors.New("score not found")
	ErrNotEvaluator             = errors.New("only the assigned evaluator may score")
	ErrEvaluationClosed         = errors.New("evaluation is closed or outside its date range")
	ErrAssignmentLocked         = errors.New("assignment is submitted or locked")
	ErrIndicatorNotInEvaluation = errors.New("indicator does not belong to the assignment's evaluation")
	ErrEvidenceRequired         = errors.New("evidence is required before scoring this indicator")
	ErrForbidden                = errors.New("not allowed to read this score")
)
