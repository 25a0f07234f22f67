// Package media stores uploaded product images on disk and derives their web encodings.
package media

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedMediaType = errors.New("only .png, .jpg and .jpeg format allowed")
	ErrNoFiles              = errors.New("no files uploaded")
	ErrTooManyFiles         = errors.New("too many files")
	ErrFileTooLarge         = errors.New("file too large")
	ErrOutsideStore         = errors.New("path is outside the products directory")
)

// Source is one uploaded file as received from the client
type Source interface {
	Filename() string
	Size() int64
	Open() (io.ReadCloser, error)
}

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
}

// IsAllowedType reports whether a declared or sniffed content type may be uploaded
func IsAllowedType(contentType string) bool {
	_, ok := allowedTypes[strings.ToLower(contentType)]
	return ok
}

// DetectType sniffs the content type of r
func DetectType(r io.Reader) (string, error) {
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	return mime.String(), nil
}

// SniffSource opens src and checks its content is PNG or JPEG
func SniffSource(src Source) (string, error) {
	f, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src.Filename(), err)
	}
	defer f.Close()

	contentType, err := DetectType(f)
	if err != nil {
		return "", err
	}
	if !IsAllowedType(contentType) {
		return contentType, fmt.Errorf("%s (%s): %w", src.Filename(), contentType, ErrUnsupportedMediaType)
	}
	return contentType, nil
}

// Extension picks the file extension for a stored upload: the client's own when it is
// one of the allowed ones, otherwise the one matching the sniffed type.
func Extension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
		return ext
	}
	return allowedTypes[strings.ToLower(contentType)]
}
