package media

import (
	"errors"
	"fmt"
)

// ErrorKind classifies acquisition failures
type ErrorKind int

const (
	KindTooLarge ErrorKind = iota + 1
	KindUnsupported
	KindNetwork
	KindHTML
	KindEmpty
	KindRead
)

// Sentinels matched by errors.Is against an *AcquisitionError of the same kind
var (
	ErrTooLarge    = errors.New("file too large")
	ErrUnsupported = errors.New("unsupported media")
	ErrNetwork     = errors.New("network failure")
	ErrHTML        = errors.New("web page instead of media")
	ErrEmpty       = errors.New("empty file")
	ErrRead        = errors.New("read failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTooLarge:
		return ErrTooLarge
	case KindUnsupported:
		return ErrUnsupported
	case KindNetwork:
		return ErrNetwork
	case KindHTML:
		return ErrHTML
	case KindEmpty:
		return ErrEmpty
	case KindRead:
		return ErrRead
	default:
		return nil
	}
}

// String returns the kind name
func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown"
}

// AcquisitionError describes why a file or URL could not be turned into a payload
type AcquisitionError struct {
	Kind    ErrorKind
	Message string

	// Guidance is the manual fallback advice shown for URL failures
	Guidance string

	Err error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

func (e *AcquisitionError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// UserMessage converts an acquisition failure into the text shown to the
// user. Network-class URL failures are replaced by their guidance, the way a
// blocked download is best explained by what to do next.
func UserMessage(err error) string {
	var acqErr *AcquisitionError
	if !errors.As(err, &acqErr) {
		return "Failed to read file."
	}
	if acqErr.Kind == KindNetwork && acqErr.Guidance != "" {
		return acqErr.Guidance
	}
	return acqErr.Message
}

// GuidanceFor returns the manual fallback advice attached to err, if any
func GuidanceFor(err error) string {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr.Guidance
	}
	return ""
}

func tooLargeError(size int64) *AcquisitionError {
	return &AcquisitionError{
		Kind:    KindTooLarge,
		Message: fmt.Sprintf("File is too large (%s). The maximum is %s.", FormatSize(size), FormatSize(MaxFileSize)),
	}
}
