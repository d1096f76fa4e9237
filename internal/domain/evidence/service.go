package evidence

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/storage"
)

type Service struct {
	store    StoreAPI
	access   AccessChecker
	files    storage.Storage
	maxBytes int64
	now      func() time.Time
}

func NewService(store StoreAPI, access AccessChecker, files storage.Storage, maxBytes int64) *Service {
	return &Service{store: store, access: access, files: files, maxBytes: maxBytes, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Upload attaches evidence for the calling evaluatee to an indicator. A
// second upload replaces the first and the old stored object is removed.
func (s *Service) Upload(ctx context.Context, user auth.UserContext, indicatorID string, in UploadInput) (UploadResult, error) {
	record := Evidence{IndicatorID: indicatorID, EvaluateeID: user.UserID}
	var ext string
	if in.File != nil {
		if in.File.Size > s.maxBytes {
			return UploadResult{}, ErrFileTooLarge
		}
		var err error
		if ext, err = Extension(in.File.Name); err != nil {
			return UploadResult{}, err
		}
	} else {
		fileURL, err := ValidateURL(in.FileURL)
		if err != nil {
			return UploadResult{}, err
		}
		record.FileURL = fileURL
	}

	e, err := s.store.EvaluationOf(ctx, indicatorID)
	if err != nil {
		return UploadResult{}, err
	}
	if !e.AcceptsSubmissions(s.now()) {
		return UploadResult{}, ErrEvaluationClosed
	}
	assigned, err := s.access.IsEvaluatee(ctx, e.ID, user.UserID)
	if err != nil {
		return UploadResult{}, err
	}
	if !assigned {
		return UploadResult{}, ErrNotEvaluatee
	}

	if in.File != nil {
		record.StorageKey = StorageKey(indicatorID, user.UserID, uuid.NewString(), ext)
		record.FileName = filepath.Base(in.File.Name)
		record.ContentType = in.File.ContentType
		record.SizeBytes = in.File.Size
		if err := s.files.Put(ctx, record.StorageKey, in.File.Body, in.File.Size, in.File.ContentType); err != nil {
			return UploadResult{}, err
		}
	}

	saved, previousKey, replaced, err := s.store.Upsert(ctx, record)
	if err != nil {
		if record.Stored() {
			s.discard(ctx, record.StorageKey)
		}
		return UploadResult{}, err
	}
	if previousKey != "" && previousKey != saved.StorageKey {
		s.discard(ctx, previousKey)
	}

	evaluators, err := s.store.EvaluatorsOf(ctx, e.ID, user.UserID)
	if err != nil {
		slog.Warn("evidence evaluator lookup failed", "err", err)
	}
	return UploadResult{Evidence: saved, Replaced: replaced, EvaluationID: e.ID, EvaluatorIDs: evaluators}, nil
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		slog.Warn("evidence object delete failed", "key", key, "err", err)
	}
}

// Open resolves a download for the owner evaluatee, one of their evaluators
// in the same evaluation, or an admin.
func (s *Service) Open(ctx context.Context, user auth.UserContext, id string) (Download, error) {
	e, evaluationID, err := s.store.Get(ctx, id)
	if err != nil {
		return Download{}, err
	}
	allowed, err := s.access.CanReadEvidence(ctx, user, evaluationID, e.EvaluateeID)
	if err != nil {
		return Download{}, err
	}
	if !allowed {
		return Download{}, ErrForbidden
	}
	if !e.Stored() {
		return Download{Evidence: e, RedirectURL: e.FileURL}, nil
	}
	obj, err := s.files.Open(ctx, e.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Download{}, ErrNotFound
		}
		return Download{}, err
	}
	contentType := e.ContentType
	if contentType == "" {
		contentType = obj.ContentType
	}
	return Download{Evidence: e, Body: obj.Body, ContentType: contentType, Size: obj.Size}, nil
}

func (s *Service) ListMine(ctx context.Context, user auth.UserContext) ([]Evidence, error) {
	return s.store.ListForEvaluatee(ctx, user.UserID)
}
