package evaluation

import "errors"

var (
	ErrNotFound             = errors.New("evaluation not found")
	ErrTopicNotFound        = errors.New("topic not found")
	ErrNameRequired         = errors.New("name is required")
	ErrInvalidDateRange     = errors.New("endDate must be on or after startDate")
	ErrInvalidStatus        = errors.New("invalid evaluation status")
	ErrCancelled            = errors.New("cancelled evaluation cannot change status")
	ErrInvalidIndicatorType = errors.New("unknown indicator type")
	ErrInvalidWeight        = errors.New("weight must be greater than zero")
)
