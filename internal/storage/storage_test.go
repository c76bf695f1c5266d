package storage

import (
	"errors"
	"testing"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/config"
)

func TestResolveExplicitLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Source: config.Source{Preference: "local", LocalDir: dir}}

	backend, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if backend.Name() != "local" {
		t.Errorf("expected local backend, got %s", backend.Name())
	}
}

func TestResolveExplicitLocalMissing(t *testing.T) {
	cfg := &config.Config{Source: config.Source{Preference: "local", LocalDir: "/does/not/exist"}}

	_, err := Resolve(cfg)
	if !errors.Is(err, apperr.ErrBadConfig) {
		t.Errorf("expected ErrBadConfig, got %v", err)
	}
}

func TestResolveExplicitUSBUnmounted(t *testing.T) {
	cfg := &config.Config{Source: config.Source{Preference: "usb", USBDir: "/media/gone"}}

	_, err := Resolve(cfg)
	if !errors.Is(err, apperr.ErrBadConfig) {
		t.Errorf("expected ErrBadConfig, got %v", err)
	}
}

func TestResolveAutoPrefersLocal(t *testing.T) {
	local := t.TempDir()
	usb := t.TempDir()
	cfg := &config.Config{Source: config.Source{Preference: "auto", LocalDir: local, USBDir: usb}}

	backend, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if backend.Name() != "local" {
		t.Errorf("expected local to win in auto mode, got %s", backend.Name())
	}
}

func TestResolveAutoFallsBackToUSB(t *testing.T) {
	usb := t.TempDir()
	cfg := &config.Config{Source: config.Source{Preference: "auto", LocalDir: "/does/not/exist", USBDir: usb}}

	backend, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if backend.Name() != "usb" {
		t.Errorf("expected usb fallback, got %s", backend.Name())
	}
}

func TestResolveAutoFallsBackToDrive(t *testing.T) {
	t.Setenv("GDRIVE_TOKEN", "ya29.test")
	cfg := &config.Config{Source: config.Source{
		Preference: "auto",
		Drive:      config.Drive{FolderID: "folder123", TokenEnv: "GDRIVE_TOKEN"},
	}}

	backend, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if backend.Name() != "gdrive" {
		t.Errorf("expected gdrive fallback, got %s", backend.Name())
	}
}

func TestResolveExplicitDriveMissingToken(t *testing.T) {
	t.Setenv("GDRIVE_TOKEN", "")
	cfg := &config.Config{Source: config.Source{
		Preference: "gdrive",
		Drive:      config.Drive{FolderID: "folder123", TokenEnv: "GDRIVE_TOKEN"},
	}}

	_, err := Resolve(cfg)
	if !errors.Is(err, apperr.ErrBadConfig) {
		t.Errorf("expected ErrBadConfig, got %v", err)
	}
}

func TestResolveAutoNothingAvailable(t *testing.T) {
	t.Setenv("GDRIVE_TOKEN", "")
	cfg := &config.Config{Source: config.Source{
		Preference: "auto",
		Drive:      config.Drive{TokenEnv: "GDRIVE_TOKEN"},
	}}

	_, err := Resolve(cfg)
	if !errors.Is(err, apperr.ErrBadConfig) {
		t.Errorf("expected ErrBadConfig, got %v", err)
	}
}

func TestResolveUnknownPreference(t *testing.T) {
	cfg := &config.Config{Source: config.Source{Preference: "ftp"}}

	_, err := Resolve(cfg)
	if !errors.Is(err, apperr.ErrBadConfig) {
		t.Errorf("expected ErrBadConfig, got %v", err)
	}
}
