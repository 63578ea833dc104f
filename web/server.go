// Package web serves the browser front end: an embedded single page, a JSON
// API over session.Session and a websocket that pushes state changes.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"mediascribe/session"
)

//go:embed static/index.html
var staticFiles embed.FS

// SessionCookie names the cookie carrying the browser session id
const SessionCookie = "mediascribe_session"

// Default limits for actions that start work
const (
	DefaultRateLimit = rate.Limit(1)
	DefaultRateBurst = 5
)

// DefaultSessionTTL is how long an unused browser session is kept
const DefaultSessionTTL = 30 * time.Minute

// Options configures a Server
type Options struct {
	Addr    string
	Connect session.Connector

	// HTTPClient is used for URL downloads; nil uses the media default
	HTTPClient *http.Client

	// RateLimit and RateBurst bound upload, fetch and transcribe requests
	// across all browsers. Zero values use the defaults.
	RateLimit rate.Limit
	RateBurst int

	// SessionTTL drops sessions that saw no request for this long. Busy
	// sessions and sessions with an open websocket are kept.
	SessionTTL time.Duration

	Version string
	Logger  *slog.Logger
}

type sessionEntry struct {
	sess     *session.Session
	lastUsed time.Time
	watchers int
}

// Server is the web UI server. Each browser gets its own session, keyed by
// a cookie. Sessions are created only by requests that stage a file.
type Server struct {
	addr       string
	connect    session.Connector
	httpClient *http.Client
	limiter    *rate.Limiter
	version    string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	ttl        time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	// ctx bounds background work started by requests
	ctx    context.Context
	cancel context.CancelFunc

	server *http.Server
}

// NewServer creates a server; call Start to listen
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.RateBurst == 0 {
		opts.RateBurst = DefaultRateBurst
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:       opts.Addr,
		connect:    opts.Connect,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		version:    opts.Version,
		logger:     opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		ttl:      opts.SessionTTL,
		sessions: make(map[string]*sessionEntry),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.server = s.createSecureServer()
	go s.expireLoop()
	return s
}

// Handler returns the routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHome)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/fetch", s.handleFetch)
	mux.HandleFunc("/api/transcribe", s.handleTranscribe)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start listens on the configured address until Shutdown is called
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web UI started", slog.String("url", "http://"+ln.Addr().String()))

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and abandons background work
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) createSecureServer() *http.Server {
	return &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		// uploads may be up to 100 MiB
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// lookupSession returns the caller's existing session and its id, or nil
func (s *Server) lookupSession(r *http.Request) (string, *session.Session) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[c.Value]
	if !ok {
		return "", nil
	}
	e.lastUsed = time.Now()
	return c.Value, e.sess
}

// sessionFor returns the caller's session, creating one and setting the
// cookie when needed
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	if _, sess := s.lookupSession(r); sess != nil {
		return sess
	}

	id := uuid.NewString()
	sess := session.New(s.connect, session.WithLogger(s.logger.With(slog.String("session", id[:8]))))

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{sess: sess, lastUsed: time.Now()}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// watch tracks open websockets so that their sessions do not expire
func (s *Server) watch(id string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.watchers += delta
		e.lastUsed = time.Now()
	}
}

func (s *Server) expireLoop() {
	interval := max(s.ttl/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.expireIdle(now)
		}
	}
}

// expireIdle drops sessions unused since now-ttl and frees their payloads.
// It returns how many were dropped.
func (s *Server) expireIdle(now time.Time) int {
	var expired []*session.Session
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.watchers > 0 || now.Sub(e.lastUsed) < s.ttl || e.sess.Snapshot().State.Status.Busy() {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, e.sess)
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Reset()
	}
	if len(expired) > 0 {
		s.logger.Debug("expired idle sessions", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// SessionCount reports how many browser sessions exist
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
