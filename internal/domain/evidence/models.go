package evidence

import (
	"io"
	"time"
)

type Evidence struct {
	ID          string    `json:"id"`
	IndicatorID string    `json:"indicatorId"`
	EvaluateeID string    `json:"evaluateeId"`
	FileURL     string    `json:"fileUrl"`
	StorageKey  string    `json:"-"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Stored reports whether the evidence is a file kept by the storage backend
// rather than an external link.
func (e Evidence) Stored() bool {
	return e.StorageKey != ""
}

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadInput carries either an external link or a file.
type UploadInput struct {
	FileURL string
	File    *File
}

type UploadResult struct {
	Evidence     Evidence
	Replaced     bool
	EvaluationID string
	EvaluatorIDs []string
}

type Download struct {
	Evidence    Evidence
	RedirectURL string
	Body        io.ReadCloser
	ContentType string
	Size        int64
}
