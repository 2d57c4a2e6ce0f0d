package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sudankdk/refix-sandbox/internal/model"
)

// DefaultRoot is where run directories are created when no root is configured.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "refix-sandbox")
}

// Workspace is the scratch directory owned by a single run.
type Workspace struct {
	ID    uuid.UUID
	Path  string
	Files []model.File

	once sync.Once
	err  error
}

// Build creates <root>/<uuid> and writes files into it in order. If any write
// fails the directory is removed before returning.
func Build(root string, files []model.File) (*Workspace, error) {
	if root == "" {
		root = DefaultRoot()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("prepare scratch root: %w", err)
	}

	id := uuid.New()
	dir := filepath.Join(root, id.String())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("invalid workspace file name %q", f.Name)
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), []byte(f.Content), 0o644); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}

	return &Workspace{ID: id, Path: dir, Files: files}, nil
}

// ReadFile returns the on-disk content of one workspace file.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(w.Path, name))
}

// Destroy removes the directory. Only the first call does any work; a
// directory that is already gone is not an error.
func (w *Workspace) Destroy() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.err = fmt.Errorf("remove workspace %s: %w", w.ID, err)
		}
	})
	return w.err
}

// PurgeOrphans removes run directories under root last modified more than
// maxAge ago. Younger directories may belong to a run in another process
// sharing the root, so they are left alone. It returns how many were removed.
func PurgeOrphans(root string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan scratch root: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < maxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
