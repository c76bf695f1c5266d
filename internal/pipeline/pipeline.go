// Package pipeline drives a run: resolve the backend, fan daily analyses
// out over a bounded worker pool, then evaluate which roll-ups are due.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbruckner/tasktriage/internal/aggregate"
	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/config"
	"github.com/tbruckner/tasktriage/internal/extract"
	"github.com/tbruckner/tasktriage/internal/history"
	"github.com/tbruckner/tasktriage/internal/llm"
	"github.com/tbruckner/tasktriage/internal/notes"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/prompts"
	"github.com/tbruckner/tasktriage/internal/report"
	"github.com/tbruckner/tasktriage/internal/storage"
)

// ItemResult is the outcome for one source file or roll-up window.
type ItemResult struct {
	Source string
	Output string
	Err    error
}

// Result tallies a whole run. Items are the daily fan-out, Rollups the
// weekly/monthly/annual attempts.
type Result struct {
	Backend string
	Items   []ItemResult
	Rollups []ItemResult
}

// Succeeded counts items and roll-ups that produced an output.
func (r *Result) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	for _, it := range r.Rollups {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts items and roll-ups that errored.
func (r *Result) Failed() int {
	return len(r.Items) + len(r.Rollups) - r.Succeeded()
}

// Pipeline wires the loader, collector, model provider, and writer
// together over one backend.
type Pipeline struct {
	cfg       *config.Config
	backend   storage.Backend
	provider  llm.Provider
	loader    *notes.Loader
	collector *aggregate.Collector
	saver     *report.Saver
	ledger    *history.DB // nil disables run recording

	now func() time.Time
}

// New creates a pipeline. ledger may be nil.
func New(cfg *config.Config, backend storage.Backend, provider llm.Provider, ledger *history.DB) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		backend:   backend,
		provider:  provider,
		loader:    notes.NewLoader(backend, extract.New(provider)),
		collector: aggregate.NewCollector(backend),
		saver:     report.NewSaver(backend),
		ledger:    ledger,
		now:       time.Now,
	}
}

// RunBatch analyzes every unanalyzed daily note, then attempts each due
// roll-up in ascending granularity. Per-item failures never abort
// siblings; only setup failures return an error.
func (p *Pipeline) RunBatch(ctx context.Context, prefer string) (*Result, error) {
	res := &Result{Backend: p.backend.Name()}

	pending, err := p.loader.Pending(period.Daily, prefer)
	if err != nil {
		if !errors.Is(err, apperr.ErrNoUnanalyzed) {
			return nil, err
		}
		// Nothing new today; roll-ups may still be due.
		log.Println("No unanalyzed daily notes; checking roll-ups")
	}

	res.Items = make([]ItemResult, len(pending))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Run.Workers)
	for i, entry := range pending {
		i, entry := i, entry
		g.Go(func() error {
			out, err := p.analyzeEntry(gCtx, entry)
			// Each worker owns a distinct slot, so no locking.
			res.Items[i] = ItemResult{Source: entry.Path, Output: out, Err: err}
			return nil
		})
	}
	// Workers never return errors; Wait is the join point before roll-ups.
	_ = g.Wait()

	// Roll-ups read the completed set of finer outputs, so they run
	// strictly after the fan-out, finest granularity first.
	for _, t := range []period.Type{period.Weekly, period.Monthly, period.Annual} {
		res.Rollups = append(res.Rollups, p.dueRollups(ctx, t)...)
	}

	p.record(res, "batch")
	return res, nil
}

// RunSingle analyzes one unit of the requested granularity: the newest
// unanalyzed note for daily, the most recently completed window otherwise.
func (p *Pipeline) RunSingle(ctx context.Context, t period.Type) (*Result, error) {
	res := &Result{Backend: p.backend.Name()}

	if t == period.Daily {
		note, err := p.loader.Next(ctx, t)
		if err != nil {
			return nil, err
		}
		out, err := p.analyzeDaily(ctx, note)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, ItemResult{Source: note.Path, Output: out})
		p.record(res, string(t))
		return res, nil
	}

	w := period.LastCompleted(t, p.now())
	out, err := p.rollup(ctx, t, w)
	if err != nil {
		return nil, err
	}
	res.Rollups = append(res.Rollups, ItemResult{Source: w.Label(), Output: out})
	p.record(res, string(t))
	return res, nil
}

// analyzeEntry loads one pending entry and analyzes it. Loading happens
// here, inside the worker, so a bad note (malformed name, failed
// extraction, empty content) fails alone.
func (p *Pipeline) analyzeEntry(ctx context.Context, e storage.Entry) (string, error) {
	note, err := p.loader.Load(ctx, period.Daily, e)
	if err != nil {
		return "", err
	}
	return p.analyzeDaily(ctx, note)
}

// analyzeDaily sends one note through the model and writes the report.
func (p *Pipeline) analyzeDaily(ctx context.Context, note *notes.Note) (string, error) {
	pr := prompts.Daily(note.Date)
	reportText, err := p.provider.Generate(ctx, pr.System, pr.Human(note.Text))
	if err != nil {
		return "", fmt.Errorf("analyzing %s: %w", note.Name, err)
	}
	return p.saver.Save(reportText, note.Path, period.Daily)
}

// dueRollups finds every completed window of granularity t that has
// inputs but no output yet, and attempts each in chronological order.
func (p *Pipeline) dueRollups(ctx context.Context, t period.Type) []ItemResult {
	stamps, err := p.collector.RecordStamps(t)
	if err != nil {
		if errors.Is(err, apperr.ErrDirMissing) {
			// Nothing at the finer granularity yet; not an error.
			return nil
		}
		// A backend failure must reach the summary, not read as "not due".
		return []ItemResult{{
			Source: t.Dir(),
			Err:    fmt.Errorf("listing %s analyses: %w", t.Finer(), err),
		}}
	}
	if len(stamps) == 0 {
		return nil
	}

	var results []ItemResult
	for _, w := range period.CompletedSince(t, stamps[0], p.now()) {
		outPath := t.Dir() + "/" + notes.AnalysisName(w.Stem(), t)
		exists, err := p.backend.Exists(outPath)
		if err != nil {
			results = append(results, ItemResult{Source: w.Label(), Err: err})
			continue
		}
		if exists {
			continue
		}

		out, err := p.rollup(ctx, t, w)
		if err != nil {
			if errors.Is(err, apperr.ErrNoRecords) {
				// Window with no inputs (e.g. a skipped week) is not due.
				continue
			}
			results = append(results, ItemResult{Source: w.Label(), Err: err})
			continue
		}
		log.Printf("%s roll-up saved: %s", t.Title(), out)
		results = append(results, ItemResult{Source: w.Label(), Output: out})
	}
	return results
}

// rollup collects a window's inputs, generates the report, and saves it.
func (p *Pipeline) rollup(ctx context.Context, t period.Type, w period.Window) (string, error) {
	coll, err := p.collector.Collect(t, w)
	if err != nil {
		return "", err
	}

	pr := windowPrompts(t, w)
	reportText, err := p.provider.Generate(ctx, pr.System, pr.Human(coll.Text))
	if err != nil {
		return "", fmt.Errorf("analyzing %s window %s: %w", t, w.Stem(), err)
	}
	return p.saver.Save(reportText, coll.SourcePath, t)
}

// windowPrompts builds the roll-up prompt for a completed window.
func windowPrompts(t period.Type, w period.Window) prompts.Prompt {
	const long = "Monday, January 02, 2006"
	switch t {
	case period.Monthly:
		return prompts.Monthly(w.Start.Format("January 02, 2006"), w.End.Format("January 02, 2006"))
	case period.Annual:
		return prompts.Annual(w.Start.Format("2006"))
	}
	return prompts.Weekly(w.Start.Format(long), w.End.Format(long))
}

func (p *Pipeline) record(res *Result, periodType string) {
	if p.ledger == nil {
		return
	}
	runID, err := p.ledger.InsertRun(res.Backend, periodType)
	if err != nil {
		log.Printf("recording run: %v", err)
		return
	}
	for _, it := range append(append([]ItemResult{}, res.Items...), res.Rollups...) {
		msg := ""
		if it.Err != nil {
			msg = it.Err.Error()
		}
		if err := p.ledger.InsertItem(runID, it.Source, it.Output, periodType, msg); err != nil {
			log.Printf("recording item: %v", err)
		}
	}
	if err := p.ledger.FinishRun(runID, res.Succeeded(), res.Failed()); err != nil {
		log.Printf("finishing run record: %v", err)
	}
}
