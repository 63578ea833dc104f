package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a whole remote download
const DefaultFetchTimeout = 5 * time.Minute

// URLSource downloads media from an http(s) link. Google Drive share links
// are rewritten to their direct download form first.
type URLSource struct {
	URL        string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewURLSource returns a source for rawURL using client, or a client with
// DefaultFetchTimeout when client is nil
func NewURLSource(rawURL string, client *http.Client) *URLSource {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &URLSource{URL: strings.TrimSpace(rawURL), HTTPClient: client}
}

func (s *URLSource) Describe() string { return s.URL }

func (s *URLSource) Validate() error {
	if s.URL == "" {
		return &AcquisitionError{Kind: KindUnsupported, Message: "A URL is required."}
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" {
		return &AcquisitionError{Kind: KindUnsupported, Message: "The URL is not valid.", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &AcquisitionError{Kind: KindUnsupported, Message: "Only http and https links are supported."}
	}
	return nil
}

func (s *URLSource) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *URLSource) fail(kind ErrorKind, msg string, err error) *AcquisitionError {
	return &AcquisitionError{Kind: kind, Message: msg, Guidance: Guidance(s.URL), Err: err}
}

func (s *URLSource) Acquire(ctx context.Context) (*UploadedFile, error) {
	target, drive := ResolveURL(s.URL)
	log := s.logger().With(slog.String("url", s.URL))
	if target != s.URL {
		log.Debug("rewrote drive link", slog.String("target", target))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, s.fail(KindNetwork, "Failed to fetch", err)
	}
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, s.fail(KindNetwork, "Failed to fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, s.fail(KindNetwork, fmt.Sprintf("Network response was not ok (%d)", resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if IsHTMLContentType(contentType) {
		if drive {
			return nil, s.fail(KindHTML, "Google Drive returned a web page instead of the audio file. "+
				"This often happens if the file is restricted or too large (virus scan warning).", nil)
		}
		return nil, s.fail(KindHTML, "The URL returned a web page instead of a media file.", nil)
	}

	if resp.ContentLength > MaxFileSize {
		return nil, s.tooLarge(resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, s.fail(KindNetwork, "Failed to read the response body", err)
	}
	if int64(len(body)) > MaxFileSize {
		return nil, s.tooLarge(int64(len(body)))
	}
	if len(body) == 0 {
		return nil, s.fail(KindEmpty, "Empty file received", nil)
	}

	name := FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		if drive {
			name = DriveFallbackName
		} else {
			name = GenericFallbackName
		}
	}
	mimeType := ResponseMIMEType(contentType, name)

	log.Info("downloaded media",
		slog.String("name", name),
		slog.String("mime_type", mimeType),
		slog.Int("bytes", len(body)))

	return newUploadedFile(name, mimeType, body), nil
}

func (s *URLSource) tooLarge(size int64) *AcquisitionError {
	e := tooLargeError(size)
	e.Guidance = Guidance(s.URL)
	return e
}
