package assignment

const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusLocked    = "LOCKED"

	ActionSubmit = "submit"
	ActionReopen = "reopen"
	ActionLock   = "lock"
)
