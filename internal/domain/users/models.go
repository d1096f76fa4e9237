package users

import "time"

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	DepartmentID   *string   `json:"departmentId"`
	DepartmentName string    `json:"departmentName"`
	MFAEnabled     bool      `json:"mfaEnabled"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CreateInput struct {
	Email        string
	Password     string
	Name         string
	Role         string
	DepartmentID string
}

// UpdateInput carries optional fields; nil leaves the column untouched.
type UpdateInput struct {
	Email        *string
	Password     *string
	Name         *string
	Role         *string
	DepartmentID *string
}

type Filter struct {
	Query string
	Role  string
	Sort  string
	Desc  bool
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserCount int       `json:"userCount"`
	CreatedAt time.Time `json:"createdAt"`
}
