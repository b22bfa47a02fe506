// Package httputil provides the plain-text responses used by the capture
// listener.
//
// Every response that is not the fixed acknowledgement goes through this
// package so that it is logged with the request context (method, path,
// remote) and a short explanation of why it was produced.
//
// Usage:
//
//	httputil.NotFound(w, r, logger, "WHY: segment longer than 80 characters")
package httputil

import (
	"log/slog"
	"net/http"
)

// Text writes body as a text/plain response with the given status.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// Error logs the failed request and writes a plain-text error response.
// The 'why' parameter is logged but NOT sent to the client.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, reason string, why string) {
	logger.Warn(reason,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
		"why", why,
	)
	Text(w, status, reason+"\n")
}

// NotFound is the default response for every unmatched method/path pair.
func NotFound(w http.ResponseWriter, r *http.Request, logger *slog.Logger, why string) {
	Error(w, r, logger, http.StatusNotFound, "404 page not found", why)
}
