package listener

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ryan-winkler/catch/internal/ratelimit"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects every text passed to the capture callback.
type recorder struct {
	mu    sync.Mutex
	texts []string
	reply string
}

func (r *recorder) capture(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.reply
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestProbe(t *testing.T) {
	rec := &recorder{}
	s := New(rec.capture, nil, discard())

	resp := serve(t, s, http.MethodGet, "/")

	if resp.Code != http.StatusOK || resp.Body.String() != SuccessBody {
		t.Errorf("GET / = %d %q, want 200 %q", resp.Code, resp.Body.String(), SuccessBody)
	}
	if len(rec.calls()) != 0 {
		t.Errorf("GET / invoked capture %d times", len(rec.calls()))
	}
}

func TestCaptureDecodesSegment(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/buy+milk", "buy milk"},
		{"/hello%20world", "hello world"},
		{"/a+b+c", "a b c"},
		{"/caf%C3%A9", "café"},
		{"/1%2B1", "1+1"},
		{"/x", "x"},
		{"/.", "."},
		{"/..", ".."},
		{"/%2E", "."},
		{"/" + strings.Repeat("a", 80), strings.Repeat("a", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := &recorder{reply: "✅ ok"}
			s := New(rec.capture, nil, discard())

			resp := serve(t, s, http.MethodPost, tt.target)

			if resp.Code != http.StatusOK || resp.Body.String() != SuccessBody {
				t.Errorf("POST %s = %d %q, want 200 Success", tt.target, resp.Code, resp.Body.String())
			}
			calls := rec.calls()
			if len(calls) != 1 || calls[0] != tt.want {
				t.Errorf("capture calls = %q, want [%q]", calls, tt.want)
			}
		})
	}
}

func TestCaptureFailureStillSuccess(t *testing.T) {
	rec := &recorder{reply: "🚫 Error: create /x.md: inbox folder not configured"}
	s := New(rec.capture, nil, discard())

	resp := serve(t, s, http.MethodPost, "/x")

	if resp.Code != http.StatusOK || resp.Body.String() != SuccessBody {
		t.Errorf("POST /x = %d %q, want 200 Success regardless of outcome", resp.Code, resp.Body.String())
	}
}

func TestUnroutedRequestsNotFound(t *testing.T) {
	tests := []struct {
		method, target string
	}{
		{http.MethodPost, "/"},
		{http.MethodPost, "/" + strings.Repeat("a", 81)},
		{http.MethodPost, "/a/b"},
		{http.MethodPost, "/a&b"},
		{http.MethodPut, "/x"},
		{http.MethodDelete, "/"},
		{http.MethodGet, "/x"},
		{http.MethodGet, "/."},
		{http.MethodHead, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := &recorder{}
			s := New(rec.capture, nil, discard())

			resp := serve(t, s, tt.method, tt.target)

			if resp.Code != http.StatusNotFound {
				t.Errorf("%s %s = %d, want 404", tt.method, tt.target, resp.Code)
			}
			if len(rec.calls()) != 0 {
				t.Errorf("capture called for %s %s", tt.method, tt.target)
			}
		})
	}
}

func TestDecodeSegment(t *testing.T) {
	if _, ok := DecodeSegment(""); ok {
		t.Error("empty segment should not match")
	}
	if _, ok := DecodeSegment("a#b"); ok {
		t.Error("segment with # should not match")
	}
	if _, ok := DecodeSegment("a?b"); ok {
		t.Error("segment with ? should not match")
	}
	if _, ok := DecodeSegment("bad%zz"); ok {
		t.Error("malformed escape should not decode")
	}
	if got, ok := DecodeSegment("call+mom%21"); !ok || got != "call mom!" {
		t.Errorf("DecodeSegment = %q, %v, want %q", got, ok, "call mom!")
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"8980", 8980},
		{"9000", 9000},
		{" 9001 ", 9001},
		{"", 8980},
		{"not-a-port", 8980},
		{"80a", 8980},
	}
	for _, tt := range tests {
		if got := ParsePort(tt.in); got != tt.want {
			t.Errorf("ParsePort(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStartServesOnLoopback(t *testing.T) {
	rec := &recorder{reply: "✅ ok"}
	s := New(rec.capture, nil, discard())
	if err := s.Start("0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	host, _, _ := net.SplitHostPort(s.Addr())
	if host != Host {
		t.Errorf("bound host = %q, want %q", host, Host)
	}
	if !s.Running() || s.Port() == 0 {
		t.Fatalf("Running() = %v, Port() = %d", s.Running(), s.Port())
	}
	if s.URL() != "http://localhost:"+strconv.Itoa(s.Port()) {
		t.Errorf("URL() = %q", s.URL())
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post("http://"+s.Addr()+"/buy+milk", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != SuccessBody {
		t.Errorf("body = %q, want %q", body, SuccessBody)
	}
	if calls := rec.calls(); len(calls) != 1 || calls[0] != "buy milk" {
		t.Errorf("capture calls = %q, want [buy milk]", calls)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	s := New((&recorder{}).capture, nil, discard())
	if err := s.Start("0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	first := s.Addr()

	err := s.Start(strconv.Itoa(s.Port()))
	var be *BindError
	if !errors.As(err, &be) || !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want BindError wrapping ErrAlreadyRunning", err)
	}
	if s.Addr() != first {
		t.Errorf("Addr changed to %q after rejected Start", s.Addr())
	}
}

func TestStartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	s := New((&recorder{}).capture, nil, discard())
	err = s.Start(port)

	var be *BindError
	if !errors.As(err, &be) {
		t.Fatalf("Start on busy port = %v, want *BindError", err)
	}
	if s.Running() {
		t.Error("listener should stay stopped after a bind failure")
	}
}

func TestStartInvalidPort(t *testing.T) {
	s := New((&recorder{}).capture, nil, discard())
	for _, port := range []string{"70000", "-1"} {
		if err := s.Start(port); !errors.Is(err, ErrInvalidPort) {
			t.Errorf("Start(%q) = %v, want ErrInvalidPort", port, err)
		}
	}
}

func TestStartNonNumericUsesDefaultPort(t *testing.T) {
	s := New((&recorder{}).capture, nil, discard())
	err := s.Start("not-a-port")
	if err != nil {
		var be *BindError
		if !errors.As(err, &be) || be.Addr != "127.0.0.1:8980" {
			t.Fatalf("Start = %v, want bind attempt on 127.0.0.1:8980", err)
		}
		t.Skip("port 8980 busy on this machine")
	}
	defer s.Stop()
	if s.Port() != 8980 {
		t.Errorf("Port() = %d, want 8980", s.Port())
	}
}

func TestStopReleasesPort(t *testing.T) {
	s := New((&recorder{}).capture, nil, discard())
	if err := s.Start("0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	port := strconv.Itoa(s.Port())

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Running() || s.Addr() != "" {
		t.Error("listener should be stopped")
	}

	if err := s.Start(port); err != nil {
		t.Fatalf("restart on %s: %v", port, err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStopWhenStopped(t *testing.T) {
	s := New((&recorder{}).capture, nil, discard())
	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() = %v, want ErrNotRunning", err)
	}
}

func TestRateLimitedCaptures(t *testing.T) {
	rec := &recorder{}
	s := New(rec.capture, ratelimit.New(1, time.Minute, discard()), discard())

	first := serve(t, s, http.MethodPost, "/one")
	second := serve(t, s, http.MethodPost, "/two")

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Errorf("codes = %d, %d, want 200, 429", first.Code, second.Code)
	}
	if calls := rec.calls(); len(calls) != 1 {
		t.Errorf("capture calls = %q, want one", calls)
	}
}
