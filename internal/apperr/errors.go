// Package apperr defines the error categories shared across the app.
package apperr

import "errors"

var (
	// ErrBadConfig means the backend setup is missing or contradictory.
	// Fatal: nothing runs.
	ErrBadConfig = errors.New("configuration error")

	// ErrNotMounted means the backend root itself is absent.
	ErrNotMounted = errors.New("notes location not mounted")

	// ErrDirMissing means the backend is reachable but the period
	// subdirectory does not exist.
	ErrDirMissing = errors.New("notes directory not found")

	// ErrNoUnanalyzed means every candidate note already has an analysis.
	ErrNoUnanalyzed = errors.New("no unanalyzed notes files")

	// ErrNoRecords means zero finer-grained analyses fall inside the
	// requested period window.
	ErrNoRecords = errors.New("no analyses for period")
)
