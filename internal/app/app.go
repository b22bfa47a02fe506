// Package app owns the capture listener lifecycle and keeps it in step with
// the settings: webserver enabled means the listener is running on the
// configured port, disabled means it is not.
package app

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ryan-winkler/catch/internal/config"
	"github.com/ryan-winkler/catch/internal/listener"
	"github.com/ryan-winkler/catch/internal/notify"
	"github.com/ryan-winkler/catch/internal/ratelimit"
	"github.com/ryan-winkler/catch/internal/vault"
)

// ConfigureMessage is shown once at startup when no inbox folder is set.
const ConfigureMessage = "🚩 Configure to get started..."

// App wires the settings store, the inbox writer, and the listener.
type App struct {
	store    *config.Store
	writer   *vault.Writer
	notifier notify.Notifier
	logger   *slog.Logger
	server   *listener.Server

	// mu serialises lifecycle transitions. Capture never takes it: Stop
	// waits for in-flight handlers, which call Capture.
	mu      sync.Mutex
	applied config.Settings
	port    string // overrides the settings port when set
	closed  bool
}

// New creates an App. limiter may be nil.
func New(store *config.Store, writer *vault.Writer, notifier notify.Notifier, limiter *ratelimit.Limiter, logger *slog.Logger) *App {
	a := &App{
		store:    store,
		writer:   writer,
		notifier: notifier,
		logger:   logger,
		applied:  config.DefaultSettings(),
	}
	a.server = listener.New(a.Capture, limiter, logger)
	return a
}

// Server returns the capture listener.
func (a *App) Server() *listener.Server {
	return a.server
}

// OverridePort makes the listener use port regardless of the settings file.
// An empty port removes the override.
func (a *App) OverridePort(port string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.port = port
}

// Capture writes text to the current inbox folder using the current template
// and returns the status message.
func (a *App) Capture(text string) string {
	s := a.store.Current()
	return a.writer.Capture(text, s.InboxFolder, s.Template)
}

// Startup applies the stored settings. A missing inbox folder produces one
// warning notification and nothing else.
func (a *App) Startup() {
	s := a.store.Current()
	if !s.Configured() {
		a.logger.Warn("inbox folder not configured")
		if a.notifier != nil {
			a.notifier.Notify(ConfigureMessage)
		}
	}
	a.Apply(s)
}

// Apply moves the listener to the state next describes. Bind failures are
// logged and leave the listener stopped. Captures read folder and template
// from the store, so callers save next there first.
func (a *App) Apply(next config.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	if a.port != "" {
		next.Port = a.port
	}
	change := config.Diff(a.applied, next)
	a.applied = next

	running := a.server.Running()
	switch {
	case next.Webserver && !running:
		a.start(next.Port)
	case !next.Webserver && running:
		a.stop()
	case next.Webserver && running && change.PortChanged:
		a.logger.Info("port changed, restarting catch server", "port", next.Port)
		a.stop()
		a.start(next.Port)
	}

	if !change.Any() {
		return
	}
	a.logger.Info("settings applied",
		"webserver_toggled", change.WebserverToggled,
		"port_changed", change.PortChanged,
		"folder_changed", change.FolderChanged,
		"template_changed", change.TemplateChanged,
		"folder", next.InboxFolder,
		"running", a.server.Running(),
	)
}

// Reload re-reads the settings file and applies it. On a parse error the
// previous settings stay in effect.
func (a *App) Reload() error {
	s, err := a.store.Load()
	if err != nil {
		a.logger.Error("settings reload failed", "path", a.store.Path(), "error", err)
		return err
	}
	a.Apply(s)
	return nil
}

// Shutdown stops the listener if it is running. Later Apply and Reload calls
// are ignored, so a late settings event cannot bring the listener back.
func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.server.Running() {
		a.stop()
	}
}

func (a *App) start(port string) {
	if err := a.server.Start(port); err != nil {
		var be *listener.BindError
		if errors.As(err, &be) {
			a.logger.Error("catch server not started", "addr", be.Addr, "error", be.Err)
			return
		}
		a.logger.Error("catch server not started", "error", err)
		return
	}
	a.logger.Info("catch server [port " + strconv.Itoa(a.server.Port()) + "]")
}

func (a *App) stop() {
	if err := a.server.Stop(); err != nil && !errors.Is(err, listener.ErrNotRunning) {
		a.logger.Error("catch server stop failed", "error", err)
	}
}
