package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalSource reads a file from disk
type LocalSource struct {
	Path string
}

// NewLocalSource expands a leading ~ and returns a source for path
func NewLocalSource(path string) *LocalSource {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return &LocalSource{Path: path}
}

func (s *LocalSource) Describe() string { return filepath.Base(s.Path) }

// Validate checks existence, size and media type without reading the file
func (s *LocalSource) Validate() error {
	info, err := os.Stat(s.Path)
	if err != nil {
		return &AcquisitionError{Kind: KindRead, Message: "Failed to read file.", Err: err}
	}
	if info.IsDir() {
		return &AcquisitionError{Kind: KindRead, Message: fmt.Sprintf("%s is a directory, not a media file.", s.Path)}
	}
	if info.Size() > MaxFileSize {
		return tooLargeError(info.Size())
	}
	if mt := MIMETypeFromName(s.Path); !IsMediaType(mt) {
		return unsupportedError(filepath.Base(s.Path), mt)
	}
	return nil
}

func (s *LocalSource) Acquire(ctx context.Context) (*UploadedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &AcquisitionError{Kind: KindRead, Message: "Failed to read file.", Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, &AcquisitionError{Kind: KindRead, Message: "Failed to read file.", Err: err}
	}
	if int64(len(data)) > MaxFileSize {
		return nil, tooLargeError(int64(len(data)))
	}
	return newUploadedFile(filepath.Base(s.Path), MIMETypeFromName(s.Path), data), nil
}

// UploadSource wraps a stream handed over by a client, e.g. a multipart form
// part. Size is the declared size and may be -1 when unknown.
type UploadSource struct {
	Name     string
	MIMEType string
	Size     int64
	Reader   io.Reader
}

func (s *UploadSource) Describe() string { return s.Name }

func (s *UploadSource) mimeType() string {
	mt := strings.ToLower(strings.TrimSpace(s.MIMEType))
	if mt, _, _ = strings.Cut(mt, ";"); mt == "" || mt == "application/octet-stream" {
		return MIMETypeFromName(s.Name)
	}
	return strings.TrimSpace(mt)
}

func (s *UploadSource) Validate() error {
	if s.Reader == nil {
		return &AcquisitionError{Kind: KindRead, Message: "Failed to read file."}
	}
	if s.Size > MaxFileSize {
		return tooLargeError(s.Size)
	}
	if mt := s.mimeType(); !IsMediaType(mt) {
		return unsupportedError(s.Name, mt)
	}
	return nil
}

func (s *UploadSource) Acquire(ctx context.Context) (*UploadedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(s.Reader, MaxFileSize+1))
	if err != nil {
		return nil, &AcquisitionError{Kind: KindRead, Message: "Failed to read file.", Err: err}
	}
	if int64(len(data)) > MaxFileSize {
		return nil, tooLargeError(int64(len(data)))
	}
	return newUploadedFile(filepath.Base(s.Name), s.mimeType(), data), nil
}

func unsupportedError(name, mimeType string) *AcquisitionError {
	if mimeType == "" {
		mimeType = "unknown type"
	}
	return &AcquisitionError{
		Kind:    KindUnsupported,
		Message: fmt.Sprintf("%s (%s) is not an audio or video file.", name, mimeType),
	}
}
