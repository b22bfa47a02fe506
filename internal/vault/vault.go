// Package vault turns caught text into note files inside a markdown vault.
// Each capture becomes its own file, named after the text, for compatibility
// with Obsidian, Logseq, and other PKM tools.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/ryan-winkler/catch/internal/notify"
)

// Status message markers.
const (
	SuccessMarker = "✅"
	ErrorMarker   = "🚫 Error:"
)

var (
	// ErrFolderNotConfigured is returned when no inbox folder is set.
	ErrFolderNotConfigured = errors.New("inbox folder not configured")
	// ErrInvalidName is returned for text that cannot be used as a filename.
	ErrInvalidName = errors.New("invalid note name")
)

// Storage creates files inside the vault. Paths are vault-relative and
// slash-separated.
type Storage interface {
	CreateFile(path, content string) error
}

// Attempt is one capture attempt, successful or not.
type Attempt struct {
	Text    string
	Path    string
	Created bool
	Message string
	At      time.Time
}

// Recorder keeps a history of capture attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// Writer creates inbox notes from caught text.
type Writer struct {
	storage  Storage
	notifier notify.Notifier
	recorder Recorder
	logger   *slog.Logger
}

// NewWriter creates a Writer. recorder may be nil.
func NewWriter(storage Storage, notifier notify.Notifier, recorder Recorder, logger *slog.Logger) *Writer {
	return &Writer{storage: storage, notifier: notifier, recorder: recorder, logger: logger}
}

// Capture creates folder/rawText.md with template as its body and returns a
// status message. Failures are reported in the message, never returned.
// The same message is sent to the notifier.
func (w *Writer) Capture(rawText, folder, template string) string {
	filename := rawText + ".md"
	path := TargetPath(folder, filename)

	err := w.create(rawText, folder, path, template)

	msg := fmt.Sprintf("%s '%s' created in '%s'", SuccessMarker, filename, folder)
	if err != nil {
		msg = fmt.Sprintf("%s %v", ErrorMarker, err)
		w.logger.Warn("capture failed", "path", path, "error", err)
	} else {
		w.logger.Info("note captured", "path", path, "bytes", len(template))
	}

	w.record(Attempt{Text: rawText, Path: path, Created: err == nil, Message: msg, At: time.Now()})
	if w.notifier != nil {
		w.notifier.Notify(msg)
	}
	return msg
}

func (w *Writer) create(rawText, folder, path, template string) error {
	if folder == "" {
		return &CreateError{Path: path, Err: ErrFolderNotConfigured}
	}
	if err := ValidateName(rawText); err != nil {
		return &CreateError{Path: path, Err: err}
	}
	return w.storage.CreateFile(path, template)
}

func (w *Writer) record(a Attempt) {
	if w.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.recorder.Record(ctx, a); err != nil {
		w.logger.Error("journal write failed", "error", err, "path", a.Path)
	}
}

// IsError reports whether a status message describes a failed capture.
func IsError(msg string) bool {
	return strings.HasPrefix(msg, ErrorMarker)
}

// TargetPath joins an inbox folder and a filename with a single slash.
// The vault-level folder "/" yields "/<filename>".
func TargetPath(folder, filename string) string {
	return strings.TrimSuffix(folder, "/") + "/" + filename
}

// ValidateName rejects text that would escape the inbox folder or produce
// an unusable filename: empty names, "." and "..", path separators, and
// control characters.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidName, name)
		}
	}
	return nil
}
