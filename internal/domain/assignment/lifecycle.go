package assignment

// Transition applies a lifecycle action:
//
//	DRAFT --submit--> SUBMITTED --lock--> LOCKED
//	SUBMITTED --reopen--> DRAFT
func Transition(current, action string) (string, error) {
	switch {
	case current == StatusDraft && action == ActionSubmit:
		return StatusSubmitted, nil
	case current == StatusSubmitted && action == ActionLock:
		return StatusLocked, nil
	case current == StatusSubmitted && action == ActionReopen:
		return StatusDraft, nil
	}
	return current, ErrInvalidTransition
}

// Editable reports whether scores may still change.
func Editable(status string) bool {
	return status != StatusSubmitted && status != StatusLocked
}

// Completed reports whether the assignment counts as done in progress reports.
func Completed(status string) bool {
	return status == StatusSubmitted || status == StatusLocked
}
