// Package extract turns non-text notes into text: images and PDFs via the
// vision model, HTML exports via readability.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/tbruckner/tasktriage/internal/llm"
	"github.com/tbruckner/tasktriage/internal/notes"
	"github.com/tbruckner/tasktriage/internal/prompts"
)

// Extractor implements notes.TextExtractor.
type Extractor struct {
	provider llm.Provider
}

// New creates an extractor backed by the given model provider.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract returns the text content of a note's raw bytes.
func (e *Extractor) Extract(ctx context.Context, name string, kind notes.Kind, raw []byte) (string, error) {
	switch kind {
	case notes.KindText:
		return string(raw), nil
	case notes.KindHTML:
		return extractHTML(raw)
	case notes.KindImage, notes.KindPDF:
		if e.provider == nil || !e.provider.IsConfigured() {
			return "", fmt.Errorf("no model provider available for transcribing %s", name)
		}
		mediaType := notes.MediaType(name)
		if mediaType == "" {
			return "", fmt.Errorf("unsupported visual format: %s", name)
		}
		return e.provider.GenerateVision(ctx, prompts.Extraction, mediaType, raw)
	}
	return "", fmt.Errorf("unsupported note kind for %s", name)
}

// extractHTML pulls readable text out of an HTML note export.
func extractHTML(raw []byte) (string, error) {
	// Readability wants a page URL for resolving links; notes have none.
	base, _ := url.Parse("file:///note.html")
	article, err := readability.FromReader(bytes.NewReader(raw), base)
	if err != nil {
		return "", fmt.Errorf("extracting HTML text: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no extractable text in HTML note")
	}
	return text, nil
}
