package auth

import "context"

const (
	PermUsersManage          = "users.manage"
	PermEvaluationsManage    = "evaluations.manage"
	PermAssignmentsManage    = "assignments.manage"
	PermAssignmentsReadOwn   = "assignments.read_own"
	PermAssignmentsSubmit    = "assignments.submit"
	PermScoresWrite          = "scores.write"
	PermScoresHistory        = "scores.history"
	PermEvidenceUpload       = "evidence.upload"
	PermEvidenceRead         = "evidence.read"
	PermResultsReadAll       = "results.read_all"
	PermResultsReadOwn       = "results.read_own"
	PermResultsReadEvaluated = "results.read_evaluated"
	PermResultsPDF           = "results.pdf"
	PermNotificationsRead    = "notifications.read"
	PermAuditRead            = "audit.read"
	PermJobsRun              = "jobs.run"
	PermSystemMetrics        = "system.metrics"
)

var DefaultPermissions = []string{
	PermUsersManage,
	PermEvaluationsManage,
	PermAssignmentsManage,
	PermAssignmentsReadOwn,
	PermAssignmentsSubmit,
	PermScoresWrite,
	PermScoresHistory,
	PermEvidenceUpload,
	PermEvidenceRead,
	PermResultsReadAll,
	PermResultsReadOwn,
	PermResultsReadEvaluated,
	PermResultsPDF,
	PermNotificationsRead,
	PermAuditRead,
	PermJobsRun,
	PermSystemMetrics,
}

var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermUsersManage,
		PermEvaluationsManage,
		PermAssignmentsManage,
		PermScoresHistory,
		PermEvidenceRead,
		PermResultsReadAll,
		PermResultsPDF,
		PermNotificationsRead,
		PermAuditRead,
		PermJobsRun,
		PermSystemMetrics,
	},
	RoleEvaluator: {
		PermAssignmentsReadOwn,
		PermAssignmentsSubmit,
		PermScoresWrite,
		PermScoresHistory,
		PermEvidenceRead,
		PermResultsReadEvaluated,
		PermResultsPDF,
		PermNotificationsRead,
	},
	RoleEvaluatee: {
		PermAssignmentsReadOwn,
		PermEvidenceUpload,
		PermEvidenceRead,
		PermResultsReadOwn,
		PermResultsPDF,
		PermNotificationsRead,
	},
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, candidate := range RolePermissions[role] {
		if candidate == permission {
			return true, nil
		}
	}
	return false, nil
}
