package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// BaseURL is the Google AI Studio API base URL
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout for API requests; long recordings take a while
	DefaultTimeout = 10 * time.Minute

	// MaxOutputTokens caps the structured answer
	MaxOutputTokens = 8192
)

// apiKeyEnvVars are consulted in order by APIKeyFromEnv
var apiKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"}

// Client is the Google Gemini API client
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	debug      bool
	logger     *slog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if parsed.Host == "" {
			return
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout; zero keeps the default
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithModel selects the model; empty keeps DefaultModel
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithDebug enables request/response logging at debug level
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Google Gemini API client
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: BaseURL,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// APIKeyFromEnv returns the first of GEMINI_API_KEY, GOOGLE_API_KEY and
// API_KEY that is set
func APIKeyFromEnv() string {
	for _, name := range apiKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// NewClientFromEnv creates a client using the key from APIKeyFromEnv
func NewClientFromEnv(opts ...ClientOption) (*Client, error) {
	return NewClient(APIKeyFromEnv(), opts...)
}

// Model returns the model the client calls
func (c *Client) Model() string { return c.model }

// Transcribe sends payload (base64) to the model together with the
// transcription prompt and decodes the structured answer. Failures of the
// call itself are returned as a *RemoteError; an unparseable answer
// additionally wraps a *ParseError.
func (c *Client) Transcribe(ctx context.Context, payload, mimeType string) (*TranscriptResult, error) {
	if payload == "" {
		return nil, fmt.Errorf("payload is empty")
	}
	if mimeType == "" {
		return nil, fmt.Errorf("MIME type is required")
	}

	startTime := time.Now()
	req := NewTranscriptionRequest(payload, mimeType)

	resp, err := c.generateContent(ctx, c.model, req)
	if err != nil {
		return nil, &RemoteError{Op: "generateContent", Err: err}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, &RemoteError{Op: "generateContent", Err: fmt.Errorf("%w (blocked: %s)", ErrNoResponse, resp.PromptFeedback.BlockReason)}
		}
		return nil, &RemoteError{Op: "generateContent", Err: ErrNoResponse}
	}

	result, err := ParseTranscript(text)
	if err != nil {
		if c.debug {
			c.logger.Debug("transcript parse failed", slog.String("error", err.Error()))
		}
		return nil, &RemoteError{Op: "parse", Err: err}
	}

	attrs := []any{
		slog.String("model", c.model),
		slog.String("mime_type", mimeType),
		slog.Duration("elapsed", time.Since(startTime)),
		slog.Int("key_points", len(result.KeyPoints)),
	}
	if resp.UsageMetadata != nil {
		attrs = append(attrs, slog.Int("tokens", resp.UsageMetadata.TotalTokenCount))
	}
	c.logger.Info("transcription complete", attrs...)

	return result, nil
}

// NewTranscriptionRequest builds the single request sent per transcription:
// the media part first, then the instruction prompt
func NewTranscriptionRequest(payload, mimeType string) *GenerateContentRequest {
	return &GenerateContentRequest{
		Contents: []*Content{
			{
				Role: "user",
				Parts: []*Part{
					{InlineData: &InlineData{MIMEType: mimeType, Data: payload}},
					{Text: TranscriptionPrompt},
				},
			},
		},
		GenerationConfig: &GenerationConfig{
			MaxOutputTokens:  intPtr(MaxOutputTokens),
			ResponseMimeType: "application/json",
			ResponseSchema:   TranscriptSchema(),
		},
	}
}

// generateContent makes an API call to generate content
func (c *Client) generateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	apiURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.debug {
		// the body carries the whole base64 payload, so only its size is logged
		c.logger.Debug("gemini request",
			slog.String("url", c.redact(apiURL)),
			slog.Int("parts", len(req.Contents[0].Parts)),
			slog.Int("body_bytes", len(body)))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.redact(urlErr.URL)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		preview := string(respBody)
		if len(preview) > 2000 {
			preview = preview[:2000] + "..."
		}
		c.logger.Debug("gemini response",
			slog.Int("status", resp.StatusCode),
			slog.String("body", preview))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error.Message == "" {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(respBody)),
			}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErr.Error.Message,
			Details:    apiErr.Error.Status,
		}
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// redact hides the API key in URLs and transport errors
func (c *Client) redact(s string) string {
	s = strings.ReplaceAll(s, url.QueryEscape(c.apiKey), "***")
	return strings.ReplaceAll(s, c.apiKey, "***")
}

// Helper function to create int pointer
func intPtr(i int) *int {
	return &i
}

// GetAPIKeyHelp returns help text for setting up the API key
func GetAPIKeyHelp() string {
	return `To transcribe media with Google Gemini, you need an API key.

1. Go to https://aistudio.google.com/apikey
2. Sign in with your Google account
3. Click "Create API key"
4. Copy the API key
5. Set the environment variable:

   export GEMINI_API_KEY="your-api-key"

Or create a .env file with:
   GEMINI_API_KEY=your-api-key

GOOGLE_API_KEY and API_KEY are accepted as fallbacks.`
}

// CheckConfig verifies an API key is available in the environment
func CheckConfig() error {
	if APIKeyFromEnv() == "" {
		return ErrMissingAPIKey
	}
	return nil
}
