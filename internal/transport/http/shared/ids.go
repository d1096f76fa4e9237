package shared

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"perfeval/internal/transport/http/api"
)

// CanonicalID parses a UUID and returns it in lower-case hyphenated form.
func CanonicalID(raw string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// IDParam returns the named path parameter as a canonical UUID. Any other
// value cannot name a stored row, so the request is answered with 404.
func IDParam(w http.ResponseWriter, r *http.Request, requestID, name string) (string, bool) {
	id, ok := CanonicalID(URLParam(r, name))
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
		return "", false
	}
	return id, true
}

// ID records an issue when a non-empty value is not a UUID and returns the
// canonical form otherwise.
func (v *Validator) ID(field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	id, ok := CanonicalID(value)
	if !ok {
		v.Add(field, "must be a UUID")
		return value
	}
	return id
}
