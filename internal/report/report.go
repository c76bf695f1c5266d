// Package report persists analysis reports next to their sources.
package report

import (
	"fmt"
	"path"
	"strings"

	"github.com/tbruckner/tasktriage/internal/notes"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/storage"
)

// Saver writes formatted analysis files to a backend.
type Saver struct {
	backend storage.Backend
}

// NewSaver creates a saver over the given backend.
func NewSaver(backend storage.Backend) *Saver {
	return &Saver{backend: backend}
}

// Save writes the report beside its source as {stem}.{period}_analysis.txt,
// always with a .txt extension, overwriting any existing output. Returns
// the backend-relative output path.
func (s *Saver) Save(reportText, sourcePath string, p period.Type) (string, error) {
	dir := path.Dir(sourcePath)
	stem := notes.Stem(path.Base(sourcePath))
	out := dir + "/" + notes.AnalysisName(stem, p)

	formatted := fmt.Sprintf("%s Task Analysis\n%s\n\n%s\n",
		p.Title(), strings.Repeat("=", 40), reportText)

	if err := s.backend.Write(out, []byte(formatted)); err != nil {
		return "", err
	}
	return out, nil
}
