package auth

import "strings"

const (
	RoleAdmin     = "ADMIN"
	RoleEvaluator = "EVALUATOR"
	RoleEvaluatee = "EVALUATEE"
)

var Roles = []string{RoleAdmin, RoleEvaluator, RoleEvaluatee}

type UserContext struct {
	UserID    string
	Role      string
	SessionID string
}

func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeRole upper-cases a role name and reports whether it is known.
func NormalizeRole(role string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(role))
	for _, candidate := range Roles {
		if candidate == normalized {
			return normalized, true
		}
	}
	return normalized, false
}
