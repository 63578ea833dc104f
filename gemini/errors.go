package gemini

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("API Key missing: set GEMINI_API_KEY, GOOGLE_API_KEY or API_KEY")

// ErrNoResponse is returned when the API answered without any text
var ErrNoResponse = errors.New("no response from Gemini")

// APIError represents an error from the Gemini API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (status %d)", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// ParseError means the model answered but the text was not a valid transcript
type ParseError struct {
	// Field is set when a required field was missing or null
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("failed to parse transcript: missing field %q", e.Field)
	}
	return fmt.Sprintf("failed to parse transcript: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RemoteError wraps every failure of a Transcribe call: transport, auth,
// API status, empty answers and unparseable answers alike
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gemini %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRemoteError reports whether err came from talking to Gemini
func IsRemoteError(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) || errors.Is(err, ErrMissingAPIKey)
}
