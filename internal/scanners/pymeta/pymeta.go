// Package pymeta reads Python package metadata from dist-info METADATA and
// egg-info PKG-INFO files, both of which use the RFC 822 core-metadata
// format.
package pymeta

import (
	"bufio"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/result"
)

// singleFields maps metadata header names to their display names, in
// rendering order.
var singleFields = []struct {
	key     string
	verbose string
}{
	{"Name", "Name"},
	{"Version", "Version"},
	{"Summary", "Summary"},
	{"Home-Page", "Homepage"},
	{"Author", "Author"},
	{"Author-Email", "Author e-mail"},
	{"Maintainer", "Maintainer"},
	{"License", "License"},
	{"License-Expression", "License expression"},
}

// Scanner reads installed-metadata and egg-info layouts.
type Scanner struct{}

// New creates a Python metadata scanner.
func New() *Scanner {
	return &Scanner{}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "python-metadata"
}

// Scan parses the metadata file at path.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	base := filepath.Base(path)
	if base != "METADATA" && base != "PKG-INFO" {
		return nil, scanners.ErrNotApplicable
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := textproto.NewReader(bufio.NewReader(f)).ReadMIMEHeader()
	// ReadMIMEHeader returns io.EOF alongside the parsed headers when the
	// file has no body, which is the normal case for PKG-INFO.
	if len(header) == 0 && err != nil {
		return nil, err
	}

	var fields []result.Field
	for _, sf := range singleFields {
		if value := header.Get(sf.key); value != "" && value != "UNKNOWN" {
			fields = append(fields, result.Field{Name: sf.verbose, Value: value})
		}
	}
	for _, classifier := range header.Values("Classifier") {
		if strings.HasPrefix(classifier, "License ::") {
			fields = append(fields, result.Field{Name: "License classifier", Value: classifier})
		}
	}
	requires := header.Values("Requires-Dist")
	sort.Strings(requires)
	for _, req := range requires {
		fields = append(fields, result.Field{Name: "Requirement", Value: req})
	}

	license := header.Get("License-Expression")
	if license == "" {
		if l := header.Get("License"); l != "" && l != "UNKNOWN" && !strings.Contains(l, "\n") {
			license = l
		}
	}

	return &scanners.Finding{
		License:  license,
		Metadata: fields,
	}, nil
}
