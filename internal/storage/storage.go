package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/yoockh/skillradar/internal/models"
)

// MaxUploadSize caps avatar and logo uploads.
const MaxUploadSize = 2 << 20

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmpty           = errors.New("empty file")
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Extension returns the canonical file extension for an accepted content type
// of kind, or "" when the type is not accepted.
func Extension(kind models.FileKind, contentType string) string {
	if ext, ok := imageTypes[contentType]; ok {
		return ext
	}
	if kind == models.FileLogo && contentType == "image/svg+xml" {
		return ".svg"
	}
	return ""
}

// Inspect reads at most MaxUploadSize+1 bytes from r, sniffs the content type
// and checks it against the allow-list for kind. The returned bytes are the
// whole file.
func Inspect(kind models.FileKind, fileName string, r io.Reader) (data []byte, contentType string, err error) {
	data, err = io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	if len(data) > MaxUploadSize {
		return nil, "", ErrTooLarge
	}

	contentType = sniff(fileName, data)
	if Extension(kind, contentType) == "" {
		return nil, contentType, ErrUnsupportedType
	}
	return data, contentType, nil
}

func sniff(fileName string, data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	// DetectContentType reports SVG as xml or plain text
	if ct == "text/xml" || ct == "text/plain" {
		if strings.EqualFold(path.Ext(fileName), ".svg") && bytes.Contains(bytes.ToLower(data), []byte("<svg")) {
			return "image/svg+xml"
		}
	}
	return ct
}
