// Package aggregate assembles finer-grained analyses into the input text
// for a roll-up: dailies feed weeklies, weeklies feed monthlies, monthlies
// feed annuals.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/notes"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/storage"
)

// Collection is the assembled input for one roll-up window.
type Collection struct {
	Text       string
	SourcePath string // virtual source the writer derives the output name from
	Window     period.Window
	Count      int
}

// Collector scans a backend for the analyses feeding a roll-up.
type Collector struct {
	backend storage.Backend
}

// NewCollector creates a collector over the given backend.
func NewCollector(backend storage.Backend) *Collector {
	return &Collector{backend: backend}
}

type record struct {
	path  string
	stamp time.Time
}

// records lists the finer-grained analysis files feeding period p, in
// ascending timestamp order. Files with unparseable names are ignored,
// not errors: the directory legitimately holds other outputs.
func (c *Collector) records(p period.Type) ([]record, error) {
	finer := p.Finer()
	suffix := fmt.Sprintf(".%s_analysis.txt", finer)

	entries, err := c.backend.List(finer.Dir())
	if err != nil {
		return nil, err
	}

	var out []record
	for _, e := range entries {
		if !strings.HasSuffix(e.Name, suffix) {
			continue
		}
		ts, err := notes.ParseStampLenient(e.Name)
		if err != nil {
			continue
		}
		out = append(out, record{path: e.Path, stamp: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].stamp.Before(out[j].stamp) })
	return out, nil
}

// RecordStamps returns the timestamps of all analyses feeding period p,
// ascending. The orchestrator uses the earliest to find overdue windows.
func (c *Collector) RecordStamps(p period.Type) ([]time.Time, error) {
	recs, err := c.records(p)
	if err != nil {
		return nil, err
	}
	stamps := make([]time.Time, len(recs))
	for i, r := range recs {
		stamps[i] = r.stamp
	}
	return stamps, nil
}

// Collect concatenates the analyses whose timestamps fall inside w, each
// under a date label, separated by horizontal rules. It also makes sure
// the roll-up's own output directory exists.
func (c *Collector) Collect(p period.Type, w period.Window) (*Collection, error) {
	recs, err := c.records(p)
	if err != nil {
		return nil, err
	}

	var sections []string
	for _, r := range recs {
		if !w.Contains(r.stamp) {
			continue
		}
		content, err := c.backend.Read(r.path)
		if err != nil {
			return nil, err
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", sectionLabel(p.Finer(), r.stamp), content))
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no %s analyses between %s and %s",
			apperr.ErrNoRecords, p.Finer(),
			w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}

	if err := c.backend.EnsureDir(p.Dir()); err != nil {
		return nil, err
	}

	return &Collection{
		Text:       strings.Join(sections, "\n\n---\n\n"),
		SourcePath: fmt.Sprintf("%s/%s.%s.txt", p.Dir(), w.Stem(), p.Noun()),
		Window:     w,
		Count:      len(sections),
	}, nil
}

// sectionLabel names one input section by its granularity.
func sectionLabel(finer period.Type, ts time.Time) string {
	switch finer {
	case period.Weekly:
		return "Week of " + ts.Format("January 02, 2006")
	case period.Monthly:
		return ts.Format("January 2006")
	}
	return ts.Format("Monday, January 02, 2006")
}
