package assignment

import "errors"

var (
	ErrNotFound           = errors.New("assignment not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrAlreadyExists      = errors.New("assignment already exists")
	ErrInvalidEvaluator   = errors.New("evaluator must have role EVALUATOR")
	ErrInvalidEvaluatee   = errors.New("evaluatee must have role EVALUATEE")
	ErrInvalidTransition  = errors.New("invalid assignment status transition")
	ErrIncomplete         = errors.New("every indicator must be scored before submitting")
	ErrNotAssigned        = errors.New("not assigned to this assignment")
)
