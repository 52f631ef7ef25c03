// Package upload enforces attachment limits and moves accepted files into
// storage under generated names.
package upload

import (
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultMaxFiles    = 5
	DefaultMaxFileSize = 10 << 20 // 10 MiB
)

// DefaultAllowedTypes are the declared content types accepted for attachments.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"video/mp4",
	"video/quicktime",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ConstraintError rejects a whole upload request.
type ConstraintError struct {
	Reason string
}

func (e *ConstraintError) Error() string {
	return e.Reason
}

// File is one uploaded attachment.
type File struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FromMultipart adapts parsed multipart headers.
func FromMultipart(headers []*multipart.FileHeader) []File {
	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, File{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}

// Policy bounds how many files a request may carry and what they may be.
type Policy struct {
	MaxFiles     int
	MaxFileSize  int64
	AllowedTypes []string
}

// DefaultPolicy returns the 5 file / 10 MiB policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxFiles:     DefaultMaxFiles,
		MaxFileSize:  DefaultMaxFileSize,
		AllowedTypes: DefaultAllowedTypes,
	}
}

// Check validates the whole set before anything is stored.
func (p Policy) Check(files []File) error {
	if len(files) > p.MaxFiles {
		return &ConstraintError{Reason: fmt.Sprintf("Too many files. Maximum is %d.", p.MaxFiles)}
	}
	for _, f := range files {
		if f.Size > p.MaxFileSize {
			return &ConstraintError{Reason: fmt.Sprintf("File %q is too large. Maximum size is %d MB.", f.Filename, p.MaxFileSize>>20)}
		}
		if !p.allowed(f.ContentType) {
			return &ConstraintError{Reason: "Invalid file type. Only images, videos, PDFs, and Word documents are allowed."}
		}
	}
	return nil
}

func (p Policy) allowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, t := range p.AllowedTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// GenerateName returns "<unixMillis>-<random><ext>". The extension comes from
// the original name, or from the content type when the name has none.
func GenerateName(original, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if ext == "" {
		if m := mimetype.Lookup(contentType); m != nil {
			ext = m.Extension()
		}
	}
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.IntN(1e9), ext)
}

// KeyFromURL recovers the storage key from a URL returned by Save.
func KeyFromURL(u string) string {
	return path.Base(u)
}
