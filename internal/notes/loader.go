package notes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/storage"
)

// Note is a discovered, unanalyzed input with its text already extracted.
type Note struct {
	Path  string // backend-relative path
	Name  string
	Stamp string // raw stem, e.g. 20251231_143000
	Date  string // formatted for prompts, e.g. Wednesday, December 31, 2025
	Kind  Kind
	Text  string
}

// TextExtractor turns a note's raw bytes into text. Visual kinds go
// through the external vision model.
type TextExtractor interface {
	Extract(ctx context.Context, name string, kind Kind, raw []byte) (string, error)
}

// Loader finds and loads unanalyzed notes from a backend.
type Loader struct {
	backend   storage.Backend
	extractor TextExtractor
}

// NewLoader creates a loader over the given backend.
func NewLoader(backend storage.Backend, extractor TextExtractor) *Loader {
	return &Loader{backend: backend, extractor: extractor}
}

// candidates lists recognized, non-analysis files under the period
// directory, newest filename first.
func (l *Loader) candidates(p period.Type) ([]storage.Entry, error) {
	entries, err := l.backend.List(p.Dir())
	if err != nil {
		return nil, err
	}

	var out []storage.Entry
	for _, e := range entries {
		if IsAnalysis(e.Name) {
			continue
		}
		if _, ok := KindOf(e.Name); !ok {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// unanalyzed filters candidates down to those lacking an analysis output.
func (l *Loader) unanalyzed(p period.Type) ([]storage.Entry, error) {
	cands, err := l.candidates(p)
	if err != nil {
		return nil, err
	}

	var out []storage.Entry
	for _, e := range cands {
		exists, err := l.backend.Exists(p.Dir() + "/" + AnalysisName(Stem(e.Name), p))
		if err != nil {
			return nil, err
		}
		if !exists {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s/%s", apperr.ErrNoUnanalyzed, l.backend.Name(), p.Dir())
	}
	return out, nil
}

// Next loads the newest note that has no analysis yet. A malformed
// timestamp on an input note is a fatal error, not a skip.
func (l *Loader) Next(ctx context.Context, p period.Type) (*Note, error) {
	remaining, err := l.unanalyzed(p)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, p, remaining[0])
}

// Pending lists every unanalyzed note entry, newest first, without loading
// any of them: a note that fails to load must not cost its siblings their
// turn, so loading happens per entry via Load. When a .txt and a visual
// file share a timestamp, prefer keeps only the preferred kind
// ("png" or "txt").
func (l *Loader) Pending(p period.Type, prefer string) ([]storage.Entry, error) {
	remaining, err := l.unanalyzed(p)
	if err != nil {
		return nil, err
	}
	return dedupeByStem(remaining, prefer), nil
}

// dedupeByStem drops the non-preferred duplicate when the same timestamp
// exists both as text and as an image. Input order (newest first) is kept.
func dedupeByStem(entries []storage.Entry, prefer string) []storage.Entry {
	wantVisual := prefer != "txt"

	byStem := make(map[string][]storage.Entry)
	for _, e := range entries {
		byStem[Stem(e.Name)] = append(byStem[Stem(e.Name)], e)
	}

	var out []storage.Entry
	seen := make(map[string]bool)
	for _, e := range entries {
		stem := Stem(e.Name)
		if seen[stem] {
			continue
		}
		seen[stem] = true

		group := byStem[stem]
		pick := group[0]
		for _, g := range group {
			k, _ := KindOf(g.Name)
			if k.Visual() == wantVisual {
				pick = g
				break
			}
		}
		out = append(out, pick)
	}
	return out
}

// Load reads one entry and extracts its text. A malformed timestamp,
// unreadable file, failed extraction, or empty result is this note's
// error alone.
func (l *Loader) Load(ctx context.Context, p period.Type, e storage.Entry) (*Note, error) {
	ts, err := ParseStamp(e.Name)
	if err != nil {
		return nil, err
	}

	kind, _ := KindOf(e.Name)
	raw, err := l.backend.Read(e.Path)
	if err != nil {
		return nil, err
	}

	var text string
	if kind == KindText {
		text = string(raw)
	} else {
		text, err = l.extractor.Extract(ctx, e.Name, kind, raw)
		if err != nil {
			return nil, fmt.Errorf("extracting text from %s: %w", e.Name, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content in %s", e.Name)
	}

	return &Note{
		Path:  e.Path,
		Name:  e.Name,
		Stamp: Stem(e.Name),
		Date:  ts.Format("Monday, January 02, 2006"),
		Kind:  kind,
		Text:  text,
	}, nil
}
