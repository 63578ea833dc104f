package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mediascribe/gemini"
	"mediascribe/media"
)

var (
	// ErrBusy is returned when an acquisition or transcription is in flight
	ErrBusy = errors.New("another operation is in progress")

	// ErrNoFile is returned when transcription starts without a staged file
	ErrNoFile = errors.New("no file staged")

	// ErrInvalidTransition is returned when the current status does not
	// allow the requested operation
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStale is returned when the session was reset while the operation ran;
	// its outcome was discarded
	ErrStale = errors.New("session was reset; result discarded")
)

// Connector returns the Transcriber for one transcription. It is called per
// request so that configuration problems such as a missing API key surface
// as a transcription failure.
type Connector func() (gemini.Transcriber, error)

// Session owns the lifecycle of one staged file and its transcript. It is
// safe for concurrent use; operations are serialized by status rather than
// by holding the lock across remote calls.
type Session struct {
	mu      sync.Mutex
	state   State
	file    *media.UploadedFile
	result  *gemini.TranscriptResult
	epoch   uint64
	connect Connector
	logger  *slog.Logger

	subs       map[int]func(Snapshot)
	nextSub    int
	delivering bool
	pending    bool
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an idle session
func New(connect Connector, opts ...Option) *Session {
	s := &Session{
		state:   State{Status: StatusIdle},
		connect: connect,
		logger:  slog.Default(),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire validates src, then reads or downloads it. Validation failures
// are returned without touching the state. On success the file replaces any
// previously staged one and the session returns to idle; on failure the
// session enters the error state and the previous file, if any, is kept.
func (s *Session) Acquire(ctx context.Context, src media.Source) error {
	if err := src.Validate(); err != nil {
		s.logger.Warn("rejected media source",
			slog.String("source", src.Describe()),
			slog.String("error", err.Error()))
		return err
	}

	s.mu.Lock()
	if err := s.checkStartLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch := s.epoch
	s.state = State{Status: StatusUploading}
	s.mu.Unlock()
	s.notify()

	s.logger.Info("acquiring media", slog.String("source", src.Describe()))
	file, err := src.Acquire(ctx)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding stale acquisition", slog.String("source", src.Describe()))
		return ErrStale
	}
	if err != nil {
		s.state = State{
			Status:   StatusError,
			Message:  media.UserMessage(err),
			Guidance: media.GuidanceFor(err),
		}
	} else {
		s.file = file
		s.result = nil
		s.state = State{Status: StatusIdle}
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Error("media acquisition failed",
			slog.String("source", src.Describe()),
			slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("media staged",
		slog.String("name", file.Name),
		slog.String("mime_type", file.MIMEType),
		slog.String("size", media.FormatSize(file.Size)))
	return nil
}

// Transcribe sends the staged file to the transcriber. It is allowed from
// idle and, as a retry, from error.
func (s *Session) Transcribe(ctx context.Context) error {
	s.mu.Lock()
	if s.file == nil {
		s.mu.Unlock()
		return ErrNoFile
	}
	if err := s.checkStartLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch := s.epoch
	file := s.file
	s.result = nil
	s.state = State{Status: StatusTranscribing}
	s.mu.Unlock()
	s.notify()

	s.logger.Info("transcribing",
		slog.String("name", file.Name),
		slog.String("mime_type", file.MIMEType))
	result, err := s.run(ctx, file)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding stale transcription", slog.String("name", file.Name))
		return ErrStale
	}
	if err != nil {
		s.state = State{Status: StatusError, Message: ClassifyError(err)}
	} else {
		s.result = result
		s.state = State{Status: StatusCompleted}
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Error("transcription failed",
			slog.String("name", file.Name),
			slog.String("error", err.Error()))
	}
	return err
}

func (s *Session) run(ctx context.Context, file *media.UploadedFile) (*gemini.TranscriptResult, error) {
	if s.connect == nil {
		return nil, fmt.Errorf("no transcriber configured")
	}
	t, err := s.connect()
	if err != nil {
		return nil, err
	}
	return t.Transcribe(ctx, file.Data, file.MIMEType)
}

// Reset returns to idle from any status, clearing the staged file and the
// result. An operation still in flight finishes but its outcome is dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	s.epoch++
	s.state = State{Status: StatusIdle}
	s.file = nil
	s.result = nil
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after changes.
// Calls happen outside the session lock, one at a time, and always end with
// the latest state: a change made while subscribers are running is
// delivered by the goroutine already delivering, so intermediate snapshots
// may be skipped but never arrive after a newer one. The returned func
// unregisters fn.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) checkStartLocked() error {
	switch s.state.Status {
	case StatusIdle, StatusError:
		return nil
	case StatusCompleted:
		return fmt.Errorf("%w: reset before starting over", ErrInvalidTransition)
	default:
		return ErrBusy
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, File: s.file}
	if s.result != nil {
		r := *s.result
		r.KeyPoints = append([]string(nil), s.result.KeyPoints...)
		if r.KeyPoints == nil {
			r.KeyPoints = []string{}
		}
		snap.Result = &r
	}
	return snap
}

// notify delivers the current snapshot to subscribers. Only one goroutine
// delivers at a time; others mark the state pending and return at once.
func (s *Session) notify() {
	s.mu.Lock()
	s.pending = true
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for s.pending {
		s.pending = false
		snap := s.snapshotLocked()
		fns := make([]func(Snapshot), 0, len(s.subs))
		for _, fn := range s.subs {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}

		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}
