package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const userColumns = `
    u.id, u.email, u.name, u.role, u.department_id::text, COALESCE(d.name, ''), u.mfa_enabled, u.created_at
  `

var sortColumns = map[string]string{
	"name":      "u.name",
	"email":     "u.email",
	"role":      "u.role",
	"createdAt": "u.created_at",
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.DepartmentID, &u.DepartmentName, &u.MFAEnabled, &u.CreatedAt)
	return u, err
}

func (s *Store) buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where += fmt.Sprintf(" AND (u.name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND u.role = $%d", len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]User, error) {
	where, args := s.buildFilter(filter)
	orderBy := "u.created_at"
	if col, ok := sortColumns[filter.Sort]; ok {
		orderBy = col
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	query := "SELECT " + userColumns + " FROM users u LEFT JOIN departments d ON d.id = u.department_id" + where
	query += fmt.Sprintf(" ORDER BY %s %s, u.id LIMIT $%d OFFSET $%d", orderBy, direction, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := s.buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users u"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) Get(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM users u
    LEFT JOIN departments d ON d.id = u.department_id
    WHERE u.id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) Create(ctx context.Context, email, passwordHash, name, role string, departmentID *string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, name, role, department_id)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, email, passwordHash, name, role, departmentID).Scan(&id)
	if querier.IsUniqueViolation(err) {
		return "", ErrEmailTaken
	}
	if querier.IsForeignKeyViolation(err) {
		return "", ErrDepartmentNotFound
	}
	return id, err
}

func (s *Store) Update(ctx context.Context, id string, email, passwordHash, name, role, departmentID *string) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if email != nil {
		add("email", *email)
	}
	if passwordHash != nil {
		add("password_hash", *passwordHash)
	}
	if name != nil {
		add("name", *name)
	}
	if role != nil {
		add("role", *role)
	}
	if departmentID != nil {
		if *departmentID == "" {
			add("department_id", nil)
		} else {
			add("department_id", *departmentID)
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s, updated_at = now() WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := s.DB.Exec(ctx, query, args...)
	if querier.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if querier.IsForeignKeyViolation(err) {
		return ErrDepartmentNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) RoleOf(ctx context.Context, id string) (string, error) {
	var role string
	err := s.DB.QueryRow(ctx, "SELECT role FROM users WHERE id = $1", id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT d.id, d.name, COUNT(u.id), d.created_at
    FROM departments d
    LEFT JOIN users u ON u.department_id = d.id
    GROUP BY d.id
    ORDER BY d.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.UserCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "INSERT INTO departments (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if querier.IsUniqueViolation(err) {
		return "", ErrDepartmentExists
	}
	return id, err
}

// EnsureDepartment returns the id of the named department, creating it when missing.
func (s *Store) EnsureDepartment(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	return id, err
}
