package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"perfeval/internal/platform/config"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Object is an opened stored file.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Storage keeps uploaded evidence files.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

func New(ctx context.Context, cfg config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		return NewS3(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
	case config.StorageLocal, "":
		return NewLocal(cfg.StorageLocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// CleanKey normalises a slash separated key and rejects traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
