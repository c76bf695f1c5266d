package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/config"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/storage"
)

type mockProvider struct {
	mu        sync.Mutex
	lastHuman string
	failOn    string // fail when the human prompt contains this
	visionErr error  // returned by GenerateVision when set
}

func (m *mockProvider) Generate(_ context.Context, _, human string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHuman = human
	if m.failOn != "" && strings.Contains(human, m.failOn) {
		return "", errors.New("model unavailable")
	}
	return "generated analysis", nil
}

func (m *mockProvider) GenerateVision(_ context.Context, _, _ string, _ []byte) (string, error) {
	if m.visionErr != nil {
		return "", m.visionErr
	}
	return "transcribed tasks", nil
}

func (m *mockProvider) IsConfigured() bool { return true }

// A Wednesday; the last completed week is 2025-01-06 through 2025-01-12.
var testNow = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.Local)

func newTestPipeline(t *testing.T, provider *mockProvider) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{Run: config.Run{Workers: 2}}
	pipe := New(cfg, storage.NewFS("local", root), provider, nil)
	pipe.now = func() time.Time { return testNow }
	return pipe, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestRunBatchAnalyzesAndRollsUp(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	writeFile(t, root, "daily/20250107_090000.txt", "- task one")
	writeFile(t, root, "daily/20250108_091500.txt", "- task two")

	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(res.Items) != 2 {
		t.Fatalf("expected 2 daily items, got %d", len(res.Items))
	}
	for _, it := range res.Items {
		if it.Err != nil {
			t.Errorf("unexpected item error for %s: %v", it.Source, it.Err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "daily", "20250107_090000.daily_analysis.txt")); err != nil {
		t.Error("expected daily analysis output on disk")
	}

	// Both notes fall in the completed week, so one weekly roll-up is due.
	if len(res.Rollups) != 1 {
		t.Fatalf("expected 1 roll-up, got %d", len(res.Rollups))
	}
	if res.Rollups[0].Output != "weekly/20250106.weekly_analysis.txt" {
		t.Errorf("unexpected roll-up output: %s", res.Rollups[0].Output)
	}
	if _, err := os.Stat(filepath.Join(root, "weekly", "20250106.weekly_analysis.txt")); err != nil {
		t.Error("expected weekly analysis output on disk")
	}

	if res.Succeeded() != 3 || res.Failed() != 0 {
		t.Errorf("expected 3 succeeded / 0 failed, got %d / %d", res.Succeeded(), res.Failed())
	}
}

func TestRunBatchSecondRunDoesNothing(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	writeFile(t, root, "daily/20250107_090000.txt", "- task one")

	if _, err := pipe.RunBatch(context.Background(), "txt"); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}

	if len(res.Items) != 0 {
		t.Errorf("expected no daily items on re-run, got %d", len(res.Items))
	}
	if len(res.Rollups) != 0 {
		t.Errorf("expected no roll-ups on re-run, got %d", len(res.Rollups))
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{failOn: "poison"})
	writeFile(t, root, "daily/20250107_090000.txt", "- poison task")
	writeFile(t, root, "daily/20250108_091500.txt", "- good task")

	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if res.Failed() != 1 {
		t.Errorf("expected exactly 1 failure, got %d", res.Failed())
	}
	if _, err := os.Stat(filepath.Join(root, "daily", "20250108_091500.daily_analysis.txt")); err != nil {
		t.Error("expected the healthy note to still be analyzed")
	}
	if _, err := os.Stat(filepath.Join(root, "daily", "20250107_090000.daily_analysis.txt")); err == nil {
		t.Error("expected no output for the failed note")
	}
}

func TestRunBatchIsolatesExtractionFailure(t *testing.T) {
	provider := &mockProvider{visionErr: errors.New("vision service unavailable")}
	pipe, root := newTestPipeline(t, provider)
	writeFile(t, root, "daily/20250107_090000.png", "not-a-real-png")
	writeFile(t, root, "daily/20250108_091500.txt", "- good task")

	res, err := pipe.RunBatch(context.Background(), "png")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(res.Items) != 2 {
		t.Fatalf("expected both notes attempted, got %d items", len(res.Items))
	}
	if res.Failed() != 1 {
		t.Errorf("expected exactly 1 failure, got %d", res.Failed())
	}
	if _, err := os.Stat(filepath.Join(root, "daily", "20250108_091500.daily_analysis.txt")); err != nil {
		t.Error("expected the text note analyzed despite the image failing")
	}
	if _, err := os.Stat(filepath.Join(root, "daily", "20250107_090000.daily_analysis.txt")); err == nil {
		t.Error("expected no output for the failed image note")
	}
}

func TestRunBatchIsolatesMalformedFilename(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	writeFile(t, root, "daily/meeting-notes.txt", "no timestamp")
	writeFile(t, root, "daily/20250108_091500.txt", "- good task")

	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if res.Failed() != 1 {
		t.Errorf("expected the malformed name to fail alone, got %d failures", res.Failed())
	}
	if _, err := os.Stat(filepath.Join(root, "daily", "20250108_091500.daily_analysis.txt")); err != nil {
		t.Error("expected the well-named note analyzed despite the sibling failing")
	}
}

func TestRunBatchSkipsExistingRollup(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	writeFile(t, root, "daily/20250107_090000.daily_analysis.txt", "already analyzed")
	writeFile(t, root, "weekly/20250106.weekly_analysis.txt", "already rolled up")

	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(res.Rollups) != 0 {
		t.Errorf("expected existing roll-up to be skipped, got %d", len(res.Rollups))
	}
}

// flakyListBackend fails List for one directory, as a remote backend
// might mid-run, and delegates everything else.
type flakyListBackend struct {
	storage.Backend
	failDir string
}

func (b *flakyListBackend) List(dir string) ([]storage.Entry, error) {
	if dir == b.failDir {
		return nil, errors.New("backend returned status 500")
	}
	return b.Backend.List(dir)
}

func TestRunBatchSurfacesRollupListError(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Run: config.Run{Workers: 2}}
	backend := &flakyListBackend{Backend: storage.NewFS("local", root), failDir: "weekly"}
	pipe := New(cfg, backend, &mockProvider{}, nil)
	pipe.now = func() time.Time { return testNow }

	// The weekly roll-up already exists, so only the monthly pass touches
	// the failing weekly listing.
	writeFile(t, root, "daily/20250107_090000.daily_analysis.txt", "report")
	writeFile(t, root, "weekly/20250106.weekly_analysis.txt", "rolled up")

	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if res.Failed() != 1 {
		t.Fatalf("expected the listing failure surfaced as a failed item, got %d failures", res.Failed())
	}
	found := false
	for _, r := range res.Rollups {
		if r.Err != nil && strings.Contains(r.Err.Error(), "status 500") {
			found = true
		}
	}
	if !found {
		t.Error("expected the backend error in a roll-up result, not swallowed")
	}
}

func TestRunBatchCatchesUpMissedWeeks(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	// Dailies from two separate completed weeks, no weeklies yet.
	writeFile(t, root, "daily/20241231_090000.daily_analysis.txt", "week A")
	writeFile(t, root, "daily/20250107_090000.daily_analysis.txt", "week B")

	res, err := pipe.RunBatch(context.Background(), "txt")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	var outputs []string
	for _, r := range res.Rollups {
		if r.Err != nil {
			t.Errorf("unexpected roll-up error: %v", r.Err)
			continue
		}
		outputs = append(outputs, r.Output)
	}
	// The weeklies land first; the December weekly then makes the December
	// monthly due, which in turn makes the 2024 annual due.
	want := []string{
		"weekly/20241230.weekly_analysis.txt",
		"weekly/20250106.weekly_analysis.txt",
		"monthly/20241201.monthly_analysis.txt",
		"annual/20240101.annual_analysis.txt",
	}
	if fmt.Sprint(outputs) != fmt.Sprint(want) {
		t.Errorf("expected catch-up roll-ups %v, got %v", want, outputs)
	}
}

func TestRunSingleDaily(t *testing.T) {
	provider := &mockProvider{}
	pipe, root := newTestPipeline(t, provider)
	writeFile(t, root, "daily/20250107_090000.txt", "- call dentist")

	res, err := pipe.RunSingle(context.Background(), period.Daily)
	if err != nil {
		t.Fatalf("single run failed: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Output != "daily/20250107_090000.daily_analysis.txt" {
		t.Fatalf("unexpected result: %+v", res.Items)
	}
	if !strings.Contains(provider.lastHuman, "- call dentist") {
		t.Error("expected note text in the prompt")
	}
}

func TestRunSingleDailyNoUnanalyzed(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	writeFile(t, root, "daily/20250107_090000.txt", "- done")
	writeFile(t, root, "daily/20250107_090000.daily_analysis.txt", "report")

	_, err := pipe.RunSingle(context.Background(), period.Daily)
	if !errors.Is(err, apperr.ErrNoUnanalyzed) {
		t.Errorf("expected ErrNoUnanalyzed, got %v", err)
	}
}

func TestRunSingleWeekly(t *testing.T) {
	provider := &mockProvider{}
	pipe, root := newTestPipeline(t, provider)
	writeFile(t, root, "daily/20250107_090000.daily_analysis.txt", "tuesday report")
	writeFile(t, root, "daily/20250110_090000.daily_analysis.txt", "friday report")

	res, err := pipe.RunSingle(context.Background(), period.Weekly)
	if err != nil {
		t.Fatalf("single run failed: %v", err)
	}
	if len(res.Rollups) != 1 || res.Rollups[0].Output != "weekly/20250106.weekly_analysis.txt" {
		t.Fatalf("unexpected result: %+v", res.Rollups)
	}

	if !strings.Contains(provider.lastHuman, "tuesday report") ||
		!strings.Contains(provider.lastHuman, "friday report") {
		t.Error("expected both daily analyses in the roll-up prompt")
	}
	if !strings.Contains(provider.lastHuman, "## Tuesday, January 07, 2025") {
		t.Error("expected dated section labels in the roll-up prompt")
	}

	data, err := os.ReadFile(filepath.Join(root, "weekly", "20250106.weekly_analysis.txt"))
	if err != nil {
		t.Fatalf("failed to read weekly output: %v", err)
	}
	if !strings.HasPrefix(string(data), "Weekly Task Analysis\n") {
		t.Errorf("unexpected weekly report header:\n%s", data)
	}
}

func TestRunSingleWeeklyNoRecords(t *testing.T) {
	pipe, root := newTestPipeline(t, &mockProvider{})
	// Only a daily from outside the completed week.
	writeFile(t, root, "daily/20250113_090000.daily_analysis.txt", "this week")

	_, err := pipe.RunSingle(context.Background(), period.Weekly)
	if !errors.Is(err, apperr.ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}
}
