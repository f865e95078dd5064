package helpers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"velvetden/internal/domain"
)

// MaxUploadBytes bounds multipart request bodies.
const MaxUploadBytes = 10 << 20

// ParseMultipart parses a multipart form body of at most MaxUploadBytes.
// On failure it writes a 400 JSON error and returns false.
func ParseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart form: "+err.Error())
		return false
	}
	return true
}

// FormUpload returns the file sent in field as a domain.Upload, or nil when the
// field is absent. The returned closer must be called once the upload is consumed.
func FormUpload(r *http.Request, field string) (*domain.Upload, io.Closer, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, io.NopCloser(nil), nil
		}
		return nil, nil, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !strings.HasPrefix(contentType, "image/") {
		file.Close()
		return nil, nil, domain.InvalidArgument("uploaded file must be an image")
	}
	return &domain.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        file,
	}, file, nil
}

// FormValue returns the trimmed form value of key.
func FormValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
