// Package notify delivers short, transient status messages to the user.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier shows a short status message to the user.
type Notifier interface {
	Notify(message string)
}

// Desktop sends messages as desktop notifications.
type Desktop struct {
	title  string
	logger *slog.Logger
	send   func(title, message string) error
}

// NewDesktop creates a Desktop notifier with the given notification title.
func NewDesktop(title string, logger *slog.Logger) *Desktop {
	return &Desktop{title: title, logger: logger, send: sendDesktop}
}

// Notify shows message. A failing notification daemon is logged and ignored.
func (d *Desktop) Notify(message string) {
	if err := d.send(d.title, message); err != nil {
		d.logger.Warn("desktop notification failed", "error", err, "message", message)
	}
}

// Log writes messages to a logger. Used when desktop notifications are off.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs message at info level.
func (l *Log) Notify(message string) {
	l.logger.Info("notice", "message", message)
}

// Func adapts a plain function to Notifier.
type Func func(message string)

// Notify calls f(message).
func (f Func) Notify(message string) {
	f(message)
}

func sendDesktop(title, message string) error {
	return beeep.Notify(title, message, "")
}
