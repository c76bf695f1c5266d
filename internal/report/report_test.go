package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/storage"
)

func TestSaveDaily(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(storage.NewFS("local", root))

	out, err := s.Save("the analysis body", "daily/20251231_143000.png", period.Daily)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if out != "daily/20251231_143000.daily_analysis.txt" {
		t.Errorf("unexpected output path: %s", out)
	}

	data, err := os.ReadFile(filepath.Join(root, "daily", "20251231_143000.daily_analysis.txt"))
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "Daily Task Analysis\n") {
		t.Errorf("expected header, got:\n%s", content)
	}
	if !strings.Contains(content, strings.Repeat("=", 40)) {
		t.Error("expected a 40-char rule under the header")
	}
	if !strings.HasSuffix(content, "the analysis body\n") {
		t.Error("expected body followed by trailing newline")
	}
}

func TestSaveWeeklyVirtualSource(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(storage.NewFS("local", root))

	out, err := s.Save("week in review", "weekly/20250106.week.txt", period.Weekly)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if out != "weekly/20250106.weekly_analysis.txt" {
		t.Errorf("unexpected output path: %s", out)
	}

	data, _ := os.ReadFile(filepath.Join(root, out))
	if !strings.HasPrefix(string(data), "Weekly Task Analysis\n") {
		t.Errorf("expected weekly header, got:\n%s", data)
	}
}

func TestSaveOverwrites(t *testing.T) {
	root := t.TempDir()
	s := NewSaver(storage.NewFS("local", root))

	if _, err := s.Save("first", "daily/20251231_143000.txt", period.Daily); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	out, err := s.Save("second", "daily/20251231_143000.txt", period.Daily)
	if err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(root, out))
	if !strings.Contains(string(data), "second") || strings.Contains(string(data), "first") {
		t.Error("expected re-analysis to replace the previous report")
	}
}
