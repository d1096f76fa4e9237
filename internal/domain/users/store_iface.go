package users

import "context"

type StoreAPI interface {
	List(ctx context.Context, filter Filter, limit, offset int) ([]User, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, email, passwordHash, name, role string, departmentID *string) (string, error)
	Update(ctx context.Context, id string, email, passwordHash, name, role, departmentID *string) error
	Delete(ctx context.Context, id string) error
	RoleOf(ctx context.Context, id string) (string, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	CreateDepartment(ctx context.Context, name string) (string, error)
	EnsureDepartment(ctx context.Context, name string) (string, error)
}
