// Package result holds the structured output types of an artifact scan.
// Library consumers work with these directly; the CLI renders them.
package result

// Field is a single named metadata value extracted by a scanner adapter.
// Fields keep their extraction order so reports stay stable.
type Field struct {
	Name  string
	Value string
}

// FileResult is the per-file outcome of the scan pipeline.
// It is produced exactly once per file and never mutated afterwards.
type FileResult struct {
	// Path is the display path, relative to the artifact root.
	Path string

	// Kind is the detected file kind ("elf", "font", "rpm", ...).
	Kind string

	// License is the detected or declared license expression, empty when
	// nothing was found.
	License string

	// Confidence is the detection confidence in percent, 0 when no license
	// was detected or the license was declared rather than matched.
	Confidence float64

	// Metadata holds type-specific findings (linked libraries, font names,
	// RPM headers, package metadata, image properties).
	Metadata []Field

	// Err records a per-file scan failure. A failed file still appears in
	// the summary, marked distinctly from "no license detected".
	Err string
}

// Failed reports whether scanning this file ended in a partial failure.
func (r *FileResult) Failed() bool {
	return r.Err != ""
}

// Summary aggregates all FileResults of one artifact.
type Summary struct {
	// Artifact names the scanned artifact (package spec, archive name, ...).
	Artifact string

	// Files are the per-file results, sorted by path.
	Files []FileResult

	// LicenseCounts maps each detected license expression to the number of
	// files bearing it. Files without a detected license are counted under
	// NoLicense. Failed files are excluded and tracked via FailedCount.
	// The map is empty for artifacts with zero files.
	LicenseCounts map[string]int

	// FailedCount is the number of files whose scan failed.
	FailedCount int
}

// NoLicense is the LicenseCounts key for files without any detected license.
const NoLicense = "(no license detected)"

// TotalCount returns the number of files that contributed to LicenseCounts.
func (s *Summary) TotalCount() int {
	total := 0
	for _, n := range s.LicenseCounts {
		total += n
	}
	return total
}
