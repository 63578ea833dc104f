// Package session holds the processing state machine shared by the TUI and
// the web front end: one staged file, one result, one status at a time.
package session

import (
	"fmt"

	"mediascribe/gemini"
	"mediascribe/media"
)

// Status is the user-visible lifecycle step
type Status int

const (
	StatusIdle Status = iota
	StatusUploading
	StatusTranscribing
	// StatusPolishing is a valid status that no transition currently enters
	StatusPolishing
	StatusCompleted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusUploading:
		return "uploading"
	case StatusTranscribing:
		return "transcribing"
	case StatusPolishing:
		return "polishing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText makes Status serialize as its name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name
func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusIdle; c <= StatusError; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Busy reports whether an operation is in flight
func (s Status) Busy() bool {
	return s == StatusUploading || s == StatusTranscribing || s == StatusPolishing
}

// State is the status plus the message shown in the error state
type State struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Guidance string `json:"guidance,omitempty"`
}

// Snapshot is a point-in-time copy of a session
type Snapshot struct {
	State  State                    `json:"state"`
	File   *media.UploadedFile      `json:"file,omitempty"`
	Result *gemini.TranscriptResult `json:"result,omitempty"`
}

// CanAcquire reports whether a new file may be staged
func (s Snapshot) CanAcquire() bool {
	return s.State.Status == StatusIdle || s.State.Status == StatusError
}

// CanTranscribe reports whether transcription may start
func (s Snapshot) CanTranscribe() bool {
	return s.File != nil && s.CanAcquire()
}
