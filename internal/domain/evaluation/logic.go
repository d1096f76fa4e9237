package evaluation

import (
	"strings"
	"time"
)

func ValidateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	return ValidateDates(in.StartDate, in.EndDate)
}

func ValidateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

func ValidateTopic(in TopicInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if in.Weight < 0 {
		return ErrInvalidWeight
	}
	return nil
}

func ValidateIndicator(in IndicatorInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if !ValidIndicatorType(in.Type) {
		return ErrInvalidIndicatorType
	}
	if in.Weight <= 0 {
		return ErrInvalidWeight
	}
	return nil
}

func ValidIndicatorType(value string) bool {
	for _, t := range IndicatorTypes {
		if t == value {
			return true
		}
	}
	return false
}

// NextStatus validates a status change. CANCELLED is terminal.
func NextStatus(current, requested string) (string, error) {
	requested = strings.ToUpper(strings.TrimSpace(requested))
	valid := false
	for _, s := range Statuses {
		if s == requested {
			valid = true
			break
		}
	}
	if !valid {
		return "", ErrInvalidStatus
	}
	if current == StatusCancelled && requested != StatusCancelled {
		return "", ErrCancelled
	}
	return requested, nil
}

// StatusFromOpen maps the legacy isOpen toggle onto a status.
func StatusFromOpen(open bool) string {
	if open {
		return StatusOpen
	}
	return StatusClosed
}
