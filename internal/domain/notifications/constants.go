package notifications

const (
	TypeAssignmentCreated   = "assignment_created"
	TypeAssignmentSubmitted = "assignment_submitted"
	TypeAssignmentReopened  = "assignment_reopened"
	TypeAssignmentLocked    = "assignment_locked"
	TypeEvidenceUploaded    = "evidence_uploaded"
)
