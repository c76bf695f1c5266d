package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tbruckner/tasktriage/internal/apperr"
)

// FS implements Backend over a plain directory tree. Both the local
// override and the USB mount use it, rooted differently.
type FS struct {
	name string
	root string
}

// NewFS creates a filesystem backend rooted at root. The root's presence
// is checked on access, not here, so an unplugged mount surfaces as
// ErrNotMounted from the operation that hit it.
func NewFS(name, root string) *FS {
	return &FS{name: name, root: root}
}

func (f *FS) Name() string { return f.name }

// abs resolves a backend-relative path and rejects escapes from the root.
func (f *FS) abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("storage: path escapes notes root: %s", rel)
	}
	return filepath.Join(f.root, cleaned), nil
}

// checkRoot distinguishes an unplugged mount from a missing subdirectory.
func (f *FS) checkRoot() error {
	info, err := os.Stat(f.root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: expected notes directory at %s", apperr.ErrNotMounted, f.root)
	}
	return nil
}

func (f *FS) List(dir string) ([]Entry, error) {
	if err := f.checkRoot(); err != nil {
		return nil, err
	}
	base, err := f.abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrDirMissing, base)
		}
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, Entry{Name: e.Name(), Path: dir + "/" + e.Name()})
	}
	return out, nil
}

func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write stores content atomically: tmp file, fsync, rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tasktriage-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.abs(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return true, nil
}

func (f *FS) EnsureDir(dir string) error {
	abs, err := f.abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	return nil
}
