package evidence

import "errors"

var (
	ErrNotFound          = errors.New("evidence not found")
	ErrIndicatorNotFound = errors.New("indicator not found")
	ErrEvaluationClosed  = errors.New("evaluation is closed or outside its date range")
	ErrNotEvaluatee      = errors.New("not assigned to this evaluation")
	ErrForbidden         = errors.New("not allowed to read this evidence")
	ErrFileURLRequired   = errors.New("fileUrl or file is required")
	ErrInvalidFileURL    = errors.New("fileUrl must be an http or https URL")
	ErrFileTooLarge      = errors.New("file exceeds the upload limit")
	ErrFileType          = errors.New("file type not allowed")
)
