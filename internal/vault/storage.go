package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrExists is returned when the target note already exists.
	ErrExists = errors.New("file already exists")
	// ErrFolderMissing is returned when the target folder does not exist.
	ErrFolderMissing = errors.New("folder does not exist")
	// ErrOutsideVault is returned for paths that resolve outside the vault root.
	ErrOutsideVault = errors.New("path is outside the vault")
)

// CreateError describes a failed note creation.
type CreateError struct {
	Path string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Path, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// FS is a Storage backed by a directory on disk.
type FS struct {
	root string
}

// NewFS creates a filesystem Storage rooted at dir.
func NewFS(dir string) *FS {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &FS{root: filepath.Clean(dir)}
}

// CreateFile creates a new file at the vault-relative path with content.
// It never overwrites and never creates missing folders.
func (f *FS) CreateFile(path, content string) error {
	full, err := f.resolve(path)
	if err != nil {
		return &CreateError{Path: path, Err: err}
	}

	info, err := os.Stat(filepath.Dir(full))
	if err != nil || !info.IsDir() {
		return &CreateError{Path: path, Err: ErrFolderMissing}
	}

	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return &CreateError{Path: path, Err: ErrExists}
	}
	if err != nil {
		return &CreateError{Path: path, Err: err}
	}

	if _, err := file.WriteString(content); err != nil {
		file.Close()
		os.Remove(full)
		return &CreateError{Path: path, Err: fmt.Errorf("write: %w", err)}
	}
	if err := file.Close(); err != nil {
		return &CreateError{Path: path, Err: fmt.Errorf("close: %w", err)}
	}
	return nil
}

func (f *FS) resolve(path string) (string, error) {
	rel := strings.TrimLeft(filepath.FromSlash(path), string(filepath.Separator))
	full := filepath.Join(f.root, rel)
	if full != f.root && !strings.HasPrefix(full, f.root+string(filepath.Separator)) {
		return "", ErrOutsideVault
	}
	return full, nil
}
