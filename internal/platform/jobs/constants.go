package jobs

const (
	TypeCloseExpired = "evaluation:close_expired"
	TypeEmail        = "notification:email"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
