package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/tbruckner/tasktriage/internal/notes"
)

type mockProvider struct {
	visionText string
	gotPrompt  string
	gotMedia   string
	configured bool
}

func (m *mockProvider) Generate(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

func (m *mockProvider) GenerateVision(_ context.Context, prompt, mediaType string, _ []byte) (string, error) {
	m.gotPrompt = prompt
	m.gotMedia = mediaType
	return m.visionText, nil
}

func (m *mockProvider) IsConfigured() bool { return m.configured }

func TestExtractTextPassthrough(t *testing.T) {
	e := New(&mockProvider{configured: true})

	got, err := e.Extract(context.Background(), "20250107_090000.txt", notes.KindText, []byte("- buy milk"))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if got != "- buy milk" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestExtractImageUsesVision(t *testing.T) {
	p := &mockProvider{configured: true, visionText: "- transcribed task"}
	e := New(p)

	got, err := e.Extract(context.Background(), "20250107_090000.png", notes.KindImage, []byte{0x89, 0x50})
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if got != "- transcribed task" {
		t.Errorf("unexpected text: %q", got)
	}
	if p.gotMedia != "image/png" {
		t.Errorf("expected image/png media type, got %q", p.gotMedia)
	}
	if !strings.Contains(p.gotPrompt, "handwritten") {
		t.Error("expected the transcription prompt to be used")
	}
}

func TestExtractPDFMediaType(t *testing.T) {
	p := &mockProvider{configured: true, visionText: "- from pdf"}
	e := New(p)

	if _, err := e.Extract(context.Background(), "20250107_090000.pdf", notes.KindPDF, []byte("%PDF-1.4")); err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if p.gotMedia != "application/pdf" {
		t.Errorf("expected application/pdf media type, got %q", p.gotMedia)
	}
}

func TestExtractImageWithoutProvider(t *testing.T) {
	e := New(&mockProvider{configured: false})

	if _, err := e.Extract(context.Background(), "20250107_090000.png", notes.KindImage, nil); err == nil {
		t.Error("expected error when no provider is configured")
	}
}

func TestExtractHTML(t *testing.T) {
	e := New(&mockProvider{configured: true})

	html := `<!DOCTYPE html>
<html><head><title>Task notes</title></head><body>
<article>
<p>Buy groceries for the week and prepare the meal plan so the family has dinner sorted through Friday evening.</p>
<p>Call the dentist office first thing in the morning to reschedule the cleaning appointment for sometime next week.</p>
<p>Review the quarterly budget spreadsheet and flag any categories that have gone more than ten percent over plan.</p>
</article>
</body></html>`

	got, err := e.Extract(context.Background(), "20250107_090000.html", notes.KindHTML, []byte(html))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if !strings.Contains(got, "groceries") {
		t.Errorf("expected readable text extracted, got: %q", got)
	}
}
