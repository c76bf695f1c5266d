// Package period computes the calendar windows that drive roll-up analyses.
package period

import (
	"fmt"
	"time"
)

// Type is the granularity of an analysis.
type Type string

const (
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
	Annual  Type = "annual"
)

// Parse validates a period name from the CLI.
func Parse(s string) (Type, error) {
	switch Type(s) {
	case Daily, Weekly, Monthly, Annual:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown period type: %q", s)
}

// Dir returns the backend subdirectory holding this period's files.
func (t Type) Dir() string { return string(t) }

// Finer returns the next finer granularity, whose analyses feed this one.
func (t Type) Finer() Type {
	switch t {
	case Weekly:
		return Daily
	case Monthly:
		return Weekly
	case Annual:
		return Monthly
	}
	return Daily
}

// Noun is the short name used in roll-up source identifiers
// (e.g. weekly/20250106.week.txt).
func (t Type) Noun() string {
	switch t {
	case Weekly:
		return "week"
	case Monthly:
		return "month"
	case Annual:
		return "year"
	}
	return "day"
}

// Title returns the capitalized period name for report headers.
func (t Type) Title() string {
	switch t {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	case Annual:
		return "Annual"
	}
	return string(t)
}

// Window is an inclusive time interval covering one completed period.
// End is the last representable instant of the final day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the window, bounds included.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}

// Stem is the deterministic output identifier for a roll-up window,
// keyed by the window start.
func (w Window) Stem() string {
	return w.Start.Format("20060102")
}

// Label formats the window for prompts and log lines.
func (w Window) Label() string {
	return fmt.Sprintf("%s to %s",
		w.Start.Format("Monday, January 02, 2006"),
		w.End.Format("Monday, January 02, 2006"))
}

// endOfDay pins t to the last instant of its day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// LastCompleted returns the most recently completed window for the
// granularity, relative to now. The window containing now never qualifies:
// on any Wednesday the weekly window is the previous Monday through Sunday.
func LastCompleted(t Type, now time.Time) Window {
	switch t {
	case Weekly:
		// Walk back to the last Sunday, then to that week's Monday.
		daysSinceSunday := (int(now.Weekday()) + 7) % 7
		if daysSinceSunday == 0 {
			daysSinceSunday = 7
		}
		lastSunday := now.AddDate(0, 0, -daysSinceSunday)
		lastMonday := lastSunday.AddDate(0, 0, -6)
		return Window{Start: startOfDay(lastMonday), End: endOfDay(lastSunday)}
	case Monthly:
		firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		start := firstOfThis.AddDate(0, -1, 0)
		return Window{Start: start, End: endOfDay(firstOfThis.AddDate(0, 0, -1))}
	case Annual:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: endOfDay(time.Date(now.Year()-1, time.December, 31, 0, 0, 0, 0, now.Location()))}
	}
	day := startOfDay(now).AddDate(0, 0, -1)
	return Window{Start: day, End: endOfDay(day)}
}

// CompletedSince returns every fully completed window of granularity t
// whose interval touches [from, now), in chronological order. A window
// still containing now is excluded. Used to catch up on missed roll-ups.
func CompletedSince(t Type, from, now time.Time) []Window {
	if from.After(now) {
		return nil
	}
	last := LastCompleted(t, now)
	if from.After(last.End) {
		return nil
	}

	var windows []Window
	w := windowContaining(t, from)
	for !w.Start.After(last.Start) {
		windows = append(windows, w)
		w = windowContaining(t, w.End.AddDate(0, 0, 1))
	}
	return windows
}

// windowContaining returns the window of granularity t that covers ts.
func windowContaining(t Type, ts time.Time) Window {
	switch t {
	case Weekly:
		daysSinceMonday := (int(ts.Weekday()) + 6) % 7
		monday := ts.AddDate(0, 0, -daysSinceMonday)
		return Window{Start: startOfDay(monday), End: endOfDay(monday.AddDate(0, 0, 6))}
	case Monthly:
		start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
		return Window{Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
	case Annual:
		start := time.Date(ts.Year(), time.January, 1, 0, 0, 0, 0, ts.Location())
		return Window{Start: start, End: endOfDay(time.Date(ts.Year(), time.December, 31, 0, 0, 0, 0, ts.Location()))}
	}
	return Window{Start: startOfDay(ts), End: endOfDay(ts)}
}
