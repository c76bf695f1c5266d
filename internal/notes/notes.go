// Package notes discovers task-note files on a backend and loads the ones
// that do not have an analysis yet.
package notes

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/tbruckner/tasktriage/internal/period"
)

// Kind classifies a note file by how its text is obtained.
type Kind int

const (
	KindText Kind = iota
	KindHTML
	KindImage
	KindPDF
)

// kindByExt maps recognized input extensions to their kind.
var kindByExt = map[string]Kind{
	".txt":  KindText,
	".html": KindHTML,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".pdf":  KindPDF,
}

// mediaTypes maps visual extensions to the MIME type sent to the vision API.
var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// KindOf returns the kind for a filename, or ok=false for unrecognized
// extensions.
func KindOf(name string) (Kind, bool) {
	k, ok := kindByExt[strings.ToLower(path.Ext(name))]
	return k, ok
}

// MediaType returns the MIME type for a visual note's extension.
func MediaType(name string) string {
	return mediaTypes[strings.ToLower(path.Ext(name))]
}

// Visual reports whether the kind needs the vision extractor.
func (k Kind) Visual() bool { return k == KindImage || k == KindPDF }

// stampLayout is the fixed-width filename prefix. Because the format is
// fixed-width, lexicographic name order is chronological order.
const stampLayout = "20060102_150405"

// Stem returns the filename up to the first dot. Analysis outputs are
// keyed by this stem, so "20250106.week.txt" stems to "20250106".
func Stem(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// ParseStamp parses the YYYYMMDD_HHMMSS prefix of a note filename.
// Anything else is a parse error.
func ParseStamp(name string) (time.Time, error) {
	stem := Stem(name)
	ts, err := time.ParseInLocation(stampLayout, stem, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("filename %q does not match YYYYMMDD_HHMMSS: %w", name, err)
	}
	return ts, nil
}

// ParseStampLenient additionally accepts a bare YYYYMMDD stem, the form
// roll-up outputs use.
func ParseStampLenient(name string) (time.Time, error) {
	stem := Stem(name)
	if ts, err := time.ParseInLocation(stampLayout, stem, time.Local); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation("20060102", stem, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("filename %q does not match YYYYMMDD_HHMMSS or YYYYMMDD: %w", name, err)
	}
	return ts, nil
}

// IsAnalysis reports whether a filename is itself an analysis output.
// Outputs always end in "_analysis.txt"; anchoring on the suffix keeps an
// input that merely contains "_analysis" mid-name from being ignored.
func IsAnalysis(name string) bool {
	return strings.HasSuffix(name, "_analysis.txt")
}

// AnalysisName derives the analysis output filename for a source stem.
// The extension is always .txt regardless of the input format.
func AnalysisName(stem string, p period.Type) string {
	return fmt.Sprintf("%s.%s_analysis.txt", stem, p)
}
