package evidencehandler

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/evidence"
)

func TestReadInputJSONLink(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/indicators/i1/evidence", strings.NewReader(`{"fileUrl":"https://x.org/a.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	in, done, err := readInput(req)
	defer done()
	require.NoError(t, err)
	assert.Equal(t, "https://x.org/a.pdf", in.FileURL)
	assert.Nil(t, in.File)
}

func TestReadInputMultipartFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/indicators/i1/evidence", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	in, done, err := readInput(req)
	defer done()
	require.NoError(t, err)
	require.NotNil(t, in.File)
	assert.Equal(t, "report.pdf", in.File.Name)
	assert.Equal(t, int64(8), in.File.Size)
}

func TestReadInputMultipartWithoutFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/indicators/i1/evidence", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	_, done, err := readInput(req)
	defer done()
	require.ErrorIs(t, err, evidence.ErrFileURLRequired)
}

func TestErrorStatus(t *testing.T) {
	status, code := errorStatus(&http.MaxBytesError{Limit: 10})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "file_too_large", code)

	status, code = errorStatus(evidence.ErrEvaluationClosed)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "evaluation_closed", code)

	status, _ = errorStatus(evidence.ErrIndicatorNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = errorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
