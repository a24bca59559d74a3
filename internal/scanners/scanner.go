// Package scanners defines the adapter contract shared by all type-specific
// scanners. Each adapter wraps one external library and normalizes its
// output into a Finding.
package scanners

import (
	"errors"

	"github.com/davrell/licenseprobe/result"
)

// ErrNotApplicable is returned by an adapter when the file turns out not to
// match the adapter's format despite being dispatched to it. Adapters must
// return it instead of a placeholder result.
var ErrNotApplicable = errors.New("scanner not applicable to this file")

// Finding is the normalized output of one adapter for one file.
type Finding struct {
	// License is the detected or declared license expression, empty when
	// nothing was found.
	License string

	// Confidence is the match confidence in percent. Declared licenses
	// (package metadata, RPM headers) carry no confidence.
	Confidence float64

	// Metadata holds the type-specific fields in extraction order.
	Metadata []result.Field
}

// Scanner is the contract every adapter implements.
type Scanner interface {
	// Name identifies the adapter in logs and error messages.
	Name() string

	// Scan analyzes the file at path. It returns ErrNotApplicable when the
	// file does not match the adapter's format; any other error marks the
	// file as a partial failure without aborting the artifact.
	Scan(path string) (*Finding, error)
}
