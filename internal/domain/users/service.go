package users

import (
	"context"
	"strings"

	"perfeval/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]User, int, error) {
	if filter.Role != "" {
		role, ok := auth.NormalizeRole(filter.Role)
		if !ok {
			return nil, 0, ErrInvalidRole
		}
		filter.Role = role
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	role, ok := auth.NormalizeRole(in.Role)
	if !ok {
		return User{}, ErrInvalidRole
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	var departmentID *string
	if dep := strings.TrimSpace(in.DepartmentID); dep != "" {
		departmentID = &dep
	}
	id, err := s.store.Create(ctx, normalizeEmail(in.Email), hash, strings.TrimSpace(in.Name), role, departmentID)
	if err != nil {
		return User{}, err
	}
	return s.store.Get(ctx, id)
}

// Register is the self-signup path; it never grants ADMIN.
func (s *Service) Register(ctx context.Context, in CreateInput) (User, error) {
	role, ok := auth.NormalizeRole(in.Role)
	if !ok {
		return User{}, ErrInvalidRole
	}
	if role == auth.RoleAdmin {
		return User{}, ErrRoleNotAllowed
	}
	in.Role = role
	in.DepartmentID = ""
	return s.Create(ctx, in)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	var hash *string
	if in.Password != nil && *in.Password != "" {
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return User{}, err
		}
		hash = &hashed
	}
	if in.Role != nil {
		role, ok := auth.NormalizeRole(*in.Role)
		if !ok {
			return User{}, ErrInvalidRole
		}
		in.Role = &role
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := s.store.Update(ctx, id, in.Email, hash, in.Name, in.Role, in.DepartmentID); err != nil {
		return User{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	return s.store.Delete(ctx, id)
}

// HasRole reports whether the user exists with the given role.
func (s *Service) HasRole(ctx context.Context, id, role string) (bool, error) {
	actual, err := s.store.RoleOf(ctx, id)
	if err != nil {
		return false, err
	}
	return actual == role, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) CreateDepartment(ctx context.Context, name string) (Department, error) {
	name = strings.TrimSpace(name)
	id, err := s.store.CreateDepartment(ctx, name)
	if err != nil {
		return Department{}, err
	}
	return Department{ID: id, Name: name}, nil
}

func (s *Service) EnsureDepartment(ctx context.Context, name string) (string, error) {
	return s.store.EnsureDepartment(ctx, strings.TrimSpace(name))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
