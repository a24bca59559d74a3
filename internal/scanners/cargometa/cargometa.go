// Package cargometa reads the [package] table of Cargo.toml crate manifests
// via github.com/pelletier/go-toml/v2.
package cargometa

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/result"
)

// manifest mirrors the subset of the Cargo manifest format we report on.
// See https://doc.rust-lang.org/cargo/reference/manifest.html
type manifest struct {
	Package struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Authors     []string `toml:"authors"`
		Description string   `toml:"description"`
		Readme      string   `toml:"readme"`
		Homepage    string   `toml:"homepage"`
		Repository  string   `toml:"repository"`
		License     string   `toml:"license"`
		LicenseFile string   `toml:"license-file"`
		Keywords    []string `toml:"keywords"`
		Categories  []string `toml:"categories"`
	} `toml:"package"`
}

// Scanner reads Rust crate manifest metadata.
type Scanner struct{}

// New creates a crate manifest scanner.
func New() *Scanner {
	return &Scanner{}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "cargo-manifest"
}

// Scan parses the Cargo.toml at path.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	if filepath.Base(path) != "Cargo.toml" {
		return nil, scanners.ErrNotApplicable
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		// Workspace-inherited fields ({ workspace = true }) and syntax
		// errors both land here; the file stays a partial failure.
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Package.Name == "" {
		// A virtual workspace manifest has no [package] table.
		return nil, scanners.ErrNotApplicable
	}

	fields := []result.Field{}
	appendField := func(name, value string) {
		if value != "" {
			fields = append(fields, result.Field{Name: name, Value: value})
		}
	}
	appendField("Name", m.Package.Name)
	appendField("Version", m.Package.Version)
	appendField("Authors", strings.Join(m.Package.Authors, ", "))
	appendField("Description", strings.TrimSpace(m.Package.Description))
	appendField("README", m.Package.Readme)
	appendField("Homepage", m.Package.Homepage)
	appendField("Repository", m.Package.Repository)
	appendField("License", m.Package.License)
	appendField("License File", m.Package.LicenseFile)
	appendField("Keywords", strings.Join(m.Package.Keywords, ", "))
	appendField("Categories", strings.Join(m.Package.Categories, ", "))

	return &scanners.Finding{
		License:  m.Package.License,
		Metadata: fields,
	}, nil
}
