// Package media turns a local file, an uploaded stream or a remote URL into
// an in-memory payload that can be sent for transcription.
package media

import (
	"context"
	"strings"
)

// MaxFileSize is the largest payload accepted from any source (100 MiB)
const MaxFileSize = 100 * 1024 * 1024

// DefaultMIMEType is used when a remote server does not declare one
const DefaultMIMEType = "audio/mp3"

// Fallback names for downloads without a Content-Disposition filename
const (
	DriveFallbackName   = "google_drive_file"
	GenericFallbackName = "downloaded_media"
)

// UploadedFile is a media payload that has been read and encoded.
// It is treated as immutable once created.
type UploadedFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"type"`
	Size     int64  `json:"size"`

	// Data is the base64 encoded payload
	Data string `json:"-"`
}

// Subtype returns the upper-cased MIME subtype, e.g. "MPEG" for audio/mpeg
func (f *UploadedFile) Subtype() string {
	_, sub, ok := strings.Cut(f.MIMEType, "/")
	if !ok || sub == "" {
		return strings.ToUpper(f.MIMEType)
	}
	return strings.ToUpper(sub)
}

// Bytes decodes the payload
func (f *UploadedFile) Bytes() ([]byte, error) {
	return Decode(f.Data)
}

// Source is something that can be resolved into an UploadedFile.
//
// Validate performs cheap checks that must not have side effects; a
// Validate failure means the request is rejected outright. Acquire does the
// actual read or download.
type Source interface {
	Describe() string
	Validate() error
	Acquire(ctx context.Context) (*UploadedFile, error)
}

func newUploadedFile(name, mimeType string, data []byte) *UploadedFile {
	return &UploadedFile{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     Encode(data),
	}
}
