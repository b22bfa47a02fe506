// Package listener implements the loopback-only HTTP endpoint that hotkey
// clients post caught text to.
//
//	GET  /           liveness probe, always "Success"
//	POST /<segment>  segment (1-80 chars, no / ? & #) is the caught text
//
// Everything else falls through to 404. The acknowledgement body never
// encodes whether the note was written; the outcome is logged and shown to
// the user through the capture callback.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ryan-winkler/catch/internal/config"
	"github.com/ryan-winkler/catch/internal/httputil"
	"github.com/ryan-winkler/catch/internal/ratelimit"
)

// Host is the only interface the listener ever binds.
const Host = "127.0.0.1"

// SuccessBody is the fixed acknowledgement for every handled request.
const SuccessBody = "Success"

var (
	// ErrAlreadyRunning is wrapped in a BindError when Start is called twice.
	ErrAlreadyRunning = errors.New("listener already running")
	// ErrNotRunning is returned by Stop when nothing is listening.
	ErrNotRunning = errors.New("listener not running")
	// ErrInvalidPort is wrapped in a BindError for out-of-range ports.
	ErrInvalidPort = errors.New("invalid port")
)

// segmentPattern matches the raw (still escaped) path segment.
var segmentPattern = regexp.MustCompile(`^[^/?&#]{1,80}$`)

// BindError reports that the listener could not start.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// CaptureFunc receives decoded text and returns a status message.
type CaptureFunc func(text string) string

// Server is the capture listener. At most one socket is open at a time.
type Server struct {
	onCapture CaptureFunc
	limiter   *ratelimit.Limiter
	logger    *slog.Logger

	mu   sync.Mutex
	srv  *http.Server
	addr string
	done chan struct{}
}

// New creates a stopped Server. limiter may be nil.
func New(onCapture CaptureFunc, limiter *ratelimit.Limiter, logger *slog.Logger) *Server {
	return &Server{onCapture: onCapture, limiter: limiter, logger: logger}
}

// ParsePort converts a configured port string, falling back to
// config.DefaultPort when it is not a number.
func ParsePort(port string) int {
	n, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return config.DefaultPort
	}
	return n
}

// Start binds 127.0.0.1:port and serves in the background. Port "0" picks a
// free port (see Addr). A busy or invalid port, or a second Start without
// Stop, returns a *BindError and leaves the previous state untouched.
func (s *Server) Start(port string) error {
	p := ParsePort(port)
	addr := net.JoinHostPort(Host, strconv.Itoa(p))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return &BindError{Addr: addr, Err: ErrAlreadyRunning}
	}
	if p < 0 || p > 65535 {
		return &BindError{Addr: addr, Err: ErrInvalidPort}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("listener failed", "addr", ln.Addr().String(), "error", err)
		}
	}()

	s.srv = srv
	s.addr = ln.Addr().String()
	s.done = done
	s.logger.Info("catch server started", "url", s.urlLocked())
	return nil
}

// Stop closes the socket and waits up to 10 seconds for in-flight
// captures to finish. The port is free when Stop returns.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return ErrNotRunning
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done

	s.srv, s.addr, s.done = nil, "", nil
	s.logger.Info("catch server stopped")
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Running reports whether the listener is bound.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Addr returns the bound host:port, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portLocked()
}

// URL returns http://localhost:<port>, or "" when stopped.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlLocked()
}

func (s *Server) portLocked() int {
	_, p, err := net.SplitHostPort(s.addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}

func (s *Server) urlLocked() string {
	if s.addr == "" {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", s.portLocked())
}

// Handler returns the routed handler wrapped in access logging and the
// optional rate limiter. Routing matches the raw escaped path, uncleaned, so
// "/." and "/.." reach the capture route like any other segment.
func (s *Server) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.route)
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return accessLog(s.logger, h)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	switch {
	case r.Method == http.MethodGet && path == "/":
		s.handleProbe(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/"):
		s.handleCapture(w, r)
	default:
		httputil.NotFound(w, r, s.logger, "WHY: only GET / and POST /<text> are routed")
	}
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("connection test OK", "remote", r.RemoteAddr, "method", r.Method, "path", r.URL.Path)
	httputil.Text(w, http.StatusOK, SuccessBody)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/")
	text, ok := DecodeSegment(raw)
	if !ok {
		httputil.NotFound(w, r, s.logger, "WHY: segment must be 1-80 chars without / ? & # and validly escaped")
		return
	}

	// The write completes before the acknowledgement is sent, but the body
	// is the same either way.
	msg := s.onCapture(text)
	s.logger.Info("capture", "remote", r.RemoteAddr, "path", r.URL.Path, "result", msg)
	httputil.Text(w, http.StatusOK, SuccessBody)
}

// DecodeSegment validates a raw path segment against the route constraint,
// turns every literal '+' into a space, and URL-decodes the result, so an
// escaped "%2B" still yields a plus sign.
func DecodeSegment(raw string) (string, bool) {
	if !segmentPattern.MatchString(raw) {
		return "", false
	}
	text, err := url.PathUnescape(strings.ReplaceAll(raw, "+", " "))
	if err != nil {
		return "", false
	}
	return text, true
}
