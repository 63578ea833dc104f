package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mediascribe/export"
	"mediascribe/gemini"
	"mediascribe/media"
	"mediascribe/session"
)

// uploadOverhead leaves room for multipart framing around the file
const uploadOverhead = 1 << 20

// FileView is the staged file as the page shows it
type FileView struct {
	Name      string `json:"name"`
	MIMEType  string `json:"type"`
	Subtype   string `json:"subtype"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
}

// StateResponse is the JSON shape of a session snapshot
type StateResponse struct {
	State  session.State            `json:"state"`
	File   *FileView                `json:"file,omitempty"`
	Result *gemini.TranscriptResult `json:"result,omitempty"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error    string         `json:"error"`
	Guidance string         `json:"guidance,omitempty"`
	State    *StateResponse `json:"state,omitempty"`
}

// emptySnapshot stands in for a browser that has no session yet
var emptySnapshot = session.Snapshot{State: session.State{Status: session.StatusIdle}}

func snapshotOf(sess *session.Session) session.Snapshot {
	if sess == nil {
		return emptySnapshot
	}
	return sess.Snapshot()
}

func newStateResponse(snap session.Snapshot) StateResponse {
	resp := StateResponse{State: snap.State, Result: snap.Result}
	if f := snap.File; f != nil {
		resp.File = &FileView{
			Name:      f.Name,
			MIMEType:  f.MIMEType,
			Subtype:   f.Subtype(),
			Size:      f.Size,
			SizeLabel: media.FormatSize(f.Size),
		}
	}
	return resp
}

func (s *Server) serveHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "mediascribe-web",
		"version":   s.version,
		"sessions":  s.SessionCount(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, sess := s.lookupSession(r)
	writeJSON(w, http.StatusOK, newStateResponse(snapshotOf(sess)))
}

// handleUpload stages a multipart "file" field. The read happens inside the
// request, so the response already carries the staged file. A session is
// created only once the form carries a file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.allow(w) {
		return
	}
	if _, existing := s.lookupSession(r); existing != nil && !existing.Snapshot().CanAcquire() {
		s.sendError(w, existing, session.ErrBusy)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxFileSize+uploadOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("File exceeds %s limit.", media.FormatSize(media.MaxFileSize)),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "Failed to parse form data: expected multipart/form-data with a 'file' field",
		})
		return
	}
	defer file.Close()

	sess := s.sessionFor(w, r)
	src := &media.UploadSource{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Reader:   file,
	}
	if err := sess.Acquire(r.Context(), src); err != nil {
		s.sendError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(sess.Snapshot()))
}

type fetchRequest struct {
	URL string `json:"url"`
}

// handleFetch validates the URL and downloads it in the background
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req fetchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: `expected JSON body {"url": "..."}`})
		return
	}
	if !s.allow(w) {
		return
	}

	src := media.NewURLSource(strings.TrimSpace(req.URL), s.httpClient)
	src.Logger = s.logger
	if err := src.Validate(); err != nil {
		_, existing := s.lookupSession(r)
		s.sendError(w, existing, err)
		return
	}
	sess := s.sessionFor(w, r)
	if !sess.Snapshot().CanAcquire() {
		s.sendError(w, sess, session.ErrBusy)
		return
	}

	go func() {
		if err := sess.Acquire(s.ctx, src); err != nil && !errors.Is(err, session.ErrStale) {
			s.logger.Debug("background fetch ended", slog.String("error", err.Error()))
		}
	}()
	writeJSON(w, http.StatusAccepted, newStateResponse(sess.Snapshot()))
}

// handleTranscribe starts transcription of the staged file in the background
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.allow(w) {
		return
	}
	_, sess := s.lookupSession(r)
	snap := snapshotOf(sess)
	switch {
	case snap.File == nil:
		s.sendError(w, sess, session.ErrNoFile)
		return
	case !snap.CanTranscribe():
		s.sendError(w, sess, session.ErrBusy)
		return
	}

	go func() {
		if err := sess.Transcribe(s.ctx); err != nil && !errors.Is(err, session.ErrStale) {
			s.logger.Debug("background transcription ended", slog.String("error", err.Error()))
		}
	}()
	writeJSON(w, http.StatusAccepted, newStateResponse(sess.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, sess := s.lookupSession(r)
	if sess != nil {
		sess.Reset()
	}
	writeJSON(w, http.StatusOK, newStateResponse(snapshotOf(sess)))
}

// handleDownload serves one field of the result as a text attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	field, err := export.ParseField(r.URL.Query().Get("field"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	_, sess := s.lookupSession(r)
	snap := snapshotOf(sess)
	if snap.Result == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no transcript available"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, field.Filename()))
	w.Write([]byte(export.Text(snap.Result, field)))
}

// allow applies the start-action rate limit
func (s *Server) allow(w http.ResponseWriter) bool {
	if s.limiter.Allow() {
		return true
	}
	w.Header().Set("Retry-After", "1")
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, slow down."})
	return false
}

// sendError maps a session or acquisition error to a status code. sess may
// be nil when the caller has no session.
func (s *Server) sendError(w http.ResponseWriter, sess *session.Session, err error) {
	state := newStateResponse(snapshotOf(sess))
	resp := ErrorResponse{Error: err.Error(), State: &state}

	var acqErr *media.AcquisitionError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &acqErr):
		resp.Error = media.UserMessage(err)
		resp.Guidance = acqErr.Guidance
		status = http.StatusUnprocessableEntity
		if errors.Is(err, media.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		} else if errors.Is(err, media.ErrUnsupported) {
			status = http.StatusBadRequest
		}
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrStale):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoFile):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
