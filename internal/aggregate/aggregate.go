// Package aggregate merges per-file scan results into an artifact summary.
package aggregate

import (
	"sort"

	"github.com/davrell/licenseprobe/result"
)

// Summarize builds the artifact summary from the collected file results.
// Files are ordered by path and the license counts are independent of the
// input order, so identical inputs always produce identical summaries.
func Summarize(artifact string, files []result.FileResult) *result.Summary {
	sorted := make([]result.FileResult, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	summary := &result.Summary{
		Artifact:      artifact,
		Files:         sorted,
		LicenseCounts: make(map[string]int),
	}
	for _, file := range sorted {
		if file.Failed() {
			summary.FailedCount++
			continue
		}
		if file.License == "" {
			summary.LicenseCounts[result.NoLicense]++
			continue
		}
		summary.LicenseCounts[file.License]++
	}
	return summary
}
