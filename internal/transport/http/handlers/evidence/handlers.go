package evidencehandler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evidence"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

const multipartMemory = 1 << 20

type Handler struct {
	Service *evidence.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *evidence.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, m *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Metrics: m}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	upload := middleware.RequirePermission(auth.PermEvidenceUpload, h.Perms)
	r.With(upload).Post("/indicators/{indicatorID}/evidence", h.handleUpload)
	r.With(upload).Get("/evidence/my", h.handleMine)
	r.With(middleware.RequirePermission(auth.PermEvidenceRead, h.Perms)).Get("/evidence/{evidenceID}/download", h.handleDownload)
}

func errorStatus(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, evidence.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, evidence.ErrNotFound), errors.Is(err, evidence.ErrIndicatorNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, evidence.ErrEvaluationClosed):
		return http.StatusForbidden, "evaluation_closed"
	case errors.Is(err, evidence.ErrNotEvaluatee), errors.Is(err, evidence.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, evidence.ErrFileURLRequired), errors.Is(err, evidence.ErrInvalidFileURL):
		return http.StatusBadRequest, "invalid_payload"
	case errors.Is(err, evidence.ErrFileType):
		return http.StatusBadRequest, "file_type"
	}
	return http.StatusInternalServerError, ""
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMsg string) {
	reqID := middleware.GetRequestID(r.Context())
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Warn(fallbackCode, "err", err)
		api.Fail(w, status, fallbackCode, fallbackMsg, reqID)
		return
	}
	api.Fail(w, status, code, err.Error(), reqID)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readInput builds the upload from either a multipart file or a JSON link.
func readInput(r *http.Request) (evidence.UploadInput, func(), error) {
	noop := func() {}
	if !isMultipart(r) {
		var payload struct {
			FileURL string `json:"fileUrl"`
		}
		if err := shared.DecodeJSON(r, &payload); err != nil {
			return evidence.UploadInput{}, noop, evidence.ErrFileURLRequired
		}
		return evidence.UploadInput{FileURL: payload.FileURL}, noop, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return evidence.UploadInput{}, noop, err
		}
		return evidence.UploadInput{}, noop, evidence.ErrFileURLRequired
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if url := strings.TrimSpace(r.FormValue("fileUrl")); url != "" {
			return evidence.UploadInput{FileURL: url}, cleanup, nil
		}
		return evidence.UploadInput{}, cleanup, evidence.ErrFileURLRequired
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	done := func() {
		_ = file.Close()
		cleanup()
	}
	return evidence.UploadInput{File: &evidence.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}}, done, nil
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	indicatorID, ok := shared.IDParam(w, r, reqID, "indicatorID")
	if !ok {
		return
	}
	in, done, err := readInput(r)
	defer done()
	if err != nil {
		h.fail(w, r, err, "evidence_upload_failed", "failed to read upload")
		return
	}

	res, err := h.Service.Upload(r.Context(), user, indicatorID, in)
	if err != nil {
		h.fail(w, r, err, "evidence_upload_failed", "failed to upload evidence")
		return
	}

	h.Metrics.Inc(metrics.EventEvidenceUploaded)
	if err := h.Audit.Record(r.Context(), user.UserID, "evidence.upload", "evidence", res.Evidence.ID, reqID, shared.ClientIP(r), nil, res.Evidence); err != nil {
		slog.Warn("audit evidence event failed", "err", err)
	}
	if h.Notify != nil {
		h.Notify.Notify(r.Context(), res.EvaluatorIDs, notifications.TypeEvidenceUploaded,
			"Evidence uploaded", "New evidence is available for one of your evaluatees.")
	}

	status := http.StatusCreated
	if res.Replaced {
		status = http.StatusOK
	}
	api.WriteJSON(w, status, api.Envelope{Success: true, Data: map[string]any{
		"evidence": res.Evidence,
		"replaced": res.Replaced,
	}, RequestID: reqID})
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.ListMine(r.Context(), user)
	if err != nil {
		h.fail(w, r, err, "evidence_list_failed", "failed to list evidence")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	evidenceID, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "evidenceID")
	if !ok {
		return
	}
	dl, err := h.Service.Open(r.Context(), user, evidenceID)
	if err != nil {
		h.fail(w, r, err, "evidence_download_failed", "failed to open evidence")
		return
	}
	if dl.RedirectURL != "" {
		http.Redirect(w, r, dl.RedirectURL, http.StatusFound)
		return
	}
	defer dl.Body.Close()

	name := dl.Evidence.FileName
	if name == "" {
		name = "evidence"
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	if _, err := io.Copy(w, dl.Body); err != nil {
		slog.Warn("evidence stream failed", "evidenceId", dl.Evidence.ID, "err", fmt.Errorf("copy: %w", err))
	}
}
