package results

import "errors"

var (
	ErrNotFound  = errors.New("result not found")
	ErrForbidden = errors.New("not allowed to read this result")
)
