// Package storage abstracts where notes and analyses live: a local
// directory, a removable USB mount, or a Google Drive folder.
package storage

import (
	"fmt"
	"os"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/config"
)

// Entry is one file visible in a backend directory.
type Entry struct {
	Name string // base name, e.g. 20251231_143000.txt
	Path string // backend-relative path, e.g. daily/20251231_143000.txt
}

// Backend is the interface for note storage. Paths are always relative
// to the backend root and use forward slashes.
type Backend interface {
	// Name identifies the backend for log lines ("local", "usb", "gdrive").
	Name() string
	// List returns the files directly under dir, unsorted.
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write stores content at path, overwriting any existing file.
	Write(path string, content []byte) error
	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)
	// EnsureDir creates dir if absent. Idempotent.
	EnsureDir(dir string) error
}

// Resolve picks the active backend from configuration. In auto mode the
// preference order is fixed: configured local dir, then USB mount, then
// Google Drive. An explicitly requested backend that is unavailable is a
// configuration error.
func Resolve(cfg *config.Config) (Backend, error) {
	src := cfg.Source
	switch src.Preference {
	case "local":
		if src.LocalDir == "" || !dirPresent(src.LocalDir) {
			return nil, fmt.Errorf("%w: local source requested but local_dir is not set or missing: %q", apperr.ErrBadConfig, src.LocalDir)
		}
		return NewFS("local", src.LocalDir), nil
	case "usb":
		if src.USBDir == "" || !dirPresent(src.USBDir) {
			return nil, fmt.Errorf("%w: usb source requested but usb_dir is not mounted: %q", apperr.ErrBadConfig, src.USBDir)
		}
		return NewFS("usb", src.USBDir), nil
	case "gdrive":
		if !driveAvailable(cfg) {
			return nil, fmt.Errorf("%w: gdrive source requested but folder_id or %s is empty", apperr.ErrBadConfig, src.Drive.TokenEnv)
		}
		return NewDrive(src.Drive.FolderID, cfg.DriveToken()), nil
	case "auto", "":
		if src.LocalDir != "" && dirPresent(src.LocalDir) {
			return NewFS("local", src.LocalDir), nil
		}
		if src.USBDir != "" && dirPresent(src.USBDir) {
			return NewFS("usb", src.USBDir), nil
		}
		if driveAvailable(cfg) {
			return NewDrive(src.Drive.FolderID, cfg.DriveToken()), nil
		}
		return nil, fmt.Errorf("%w: no notes source available (checked local_dir, usb_dir, gdrive)", apperr.ErrBadConfig)
	}
	return nil, fmt.Errorf("%w: unknown source preference %q", apperr.ErrBadConfig, src.Preference)
}

func dirPresent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func driveAvailable(cfg *config.Config) bool {
	return cfg.Source.Drive.FolderID != "" && cfg.DriveToken() != ""
}
