// Package intake reads the payment screenshot of a submission, checks its
// media type and size, and persists it through one of several backends.
package intake

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"registration/internal/registration"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 5 << 20

// Reader turns a multipart file into a checked attachment.
type Reader struct {
	MaxBytes int64
}

// Read loads the file and rejects it when it is over the limit or is
// neither an image nor a PDF.
func (r Reader) Read(fh *multipart.FileHeader) (*registration.Attachment, error) {
	limit := r.limit()
	if fh.Size > limit {
		return nil, r.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, r.tooLarge()
	}

	ct := MediaType(fh.Header.Get("Content-Type"), data)
	if !Allowed(ct) {
		return nil, registration.Invalid(registration.ErrUnsupportedMediaType, registration.MsgUnsupportedMediaType)
	}

	return &registration.Attachment{
		OriginalName: filepath.Base(fh.Filename),
		ContentType:  ct,
		Data:         data,
	}, nil
}

func (r Reader) limit() int64 {
	if r.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return r.MaxBytes
}

func (r Reader) tooLarge() error {
	return TooLarge(r.limit())
}

// TooLarge is the error returned for uploads over limit bytes.
func TooLarge(limit int64) error {
	return registration.Invalid(registration.ErrFileTooLarge,
		fmt.Sprintf("File too large. Maximum size is %s", humanSize(limit)))
}

// MediaType returns the declared type without parameters, sniffing the
// content when the client sent nothing useful.
func MediaType(declared string, data []byte) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(mimetype.Detect(data).String())
	}
	return strings.ToLower(mt)
}

// Allowed reports whether payment screenshots may have this media type.
func Allowed(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") || mediaType == "application/pdf"
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// UniqueName builds a collision-free stored filename keeping a sane extension.
func UniqueName(att *registration.Attachment) string {
	ext := strings.ToLower(filepath.Ext(att.OriginalName))
	if !extPattern.MatchString(ext) {
		ext = ""
		if m := mimetype.Lookup(att.ContentType); m != nil {
			ext = m.Extension()
		}
	}
	return "payment-" + uuid.NewString() + ext
}

func humanSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
