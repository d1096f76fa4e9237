package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/config"
	"perfeval/internal/platform/querier"
)

// Seed creates the bootstrap admin account when it does not exist yet.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		slog.Info("seed skipped, admin credentials not configured")
		return nil
	}

	var id string
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(cfg.SeedAdminName)
	if name == "" {
		name = "Administrator"
	}
	_, err = db.Exec(ctx, `
    INSERT INTO users (email, password_hash, name, role)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (email) DO NOTHING
  `, email, hash, name, auth.RoleAdmin)
	if err != nil {
		return err
	}
	slog.Info("seeded admin user", "email", email)
	return nil
}
