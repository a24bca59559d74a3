// Package license detects license texts in plain files. The actual pattern
// matching is delegated to github.com/google/licensecheck; this adapter only
// normalizes the coverage result.
package license

import (
	"os"
	"sort"
	"strings"

	"github.com/google/licensecheck"

	"github.com/davrell/licenseprobe/internal/detect"
	"github.com/davrell/licenseprobe/internal/scanners"
)

// maxScanSize caps how much of a file is handed to the matcher. License
// texts live at the top of files; anything beyond this is noise.
const maxScanSize = 4 << 20

// Scanner scans text files for license content.
type Scanner struct{}

// New creates a license text scanner.
func New() *Scanner {
	return &Scanner{}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "license-text"
}

// Scan runs license detection on the file content.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]byte, maxScanSize)
	n, err := f.Read(data)
	if err != nil && n == 0 {
		// Empty files carry no license.
		return &scanners.Finding{}, nil
	}
	data = data[:n]

	if detect.IsBinary(data) {
		return nil, scanners.ErrNotApplicable
	}

	cov := licensecheck.Scan(data)
	if len(cov.Match) == 0 {
		return &scanners.Finding{}, nil
	}

	return &scanners.Finding{
		License:    expression(cov),
		Confidence: cov.Percent,
	}, nil
}

// expression joins the distinct matched license IDs into one expression,
// sorted for determinism.
func expression(cov licensecheck.Coverage) string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range cov.Match {
		if m.IsURL || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, " AND ")
}
