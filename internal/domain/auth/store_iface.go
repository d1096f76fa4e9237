package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindUserByEmail(ctx context.Context, email string) (AuthUser, error)
	CreateSession(ctx context.Context, userID, sessionHash string, expires time.Time) error
	UpdateLastLogin(ctx context.Context, userID string) error
	RevokeSession(ctx context.Context, userID, sessionHash string) error
	SessionValid(ctx context.Context, userID, sessionHash string) (bool, error)
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	GetMFASecret(ctx context.Context, userID string) ([]byte, error)
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}
