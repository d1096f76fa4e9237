package evidence

import (
	"net/url"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
}

// Extension returns the lower-cased extension of an allowed file name.
func Extension(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", ErrFileType
	}
	return ext, nil
}

func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrFileURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidFileURL
	}
	return raw, nil
}

// StorageKey places uploads under evidence/<indicator>/<evaluatee>/.
func StorageKey(indicatorID, evaluateeID, objectID, ext string) string {
	return "evidence/" + indicatorID + "/" + evaluateeID + "/" + objectID + ext
}
