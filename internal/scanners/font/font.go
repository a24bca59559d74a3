// Package font reads the name table of sfnt-housed fonts (TTF/OTF/TTC),
// which is where copyright and license statements live. Parsing is delegated
// to golang.org/x/image/font/sfnt.
package font

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/image/font/sfnt"

	"github.com/davrell/licenseprobe/internal/detect"
	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/result"
)

// nameFields maps the sfnt name IDs worth reporting to their verbose names,
// following the OpenType name table specification.
var nameFields = []struct {
	id      sfnt.NameID
	verbose string
}{
	{sfnt.NameIDCopyright, "Copyright notice"},
	{sfnt.NameIDFamily, "Font family name"},
	{sfnt.NameIDSubfamily, "Font subfamily name"},
	{sfnt.NameIDUniqueIdentifier, "Unique font identifier"},
	{sfnt.NameIDFull, "Full font name"},
	{sfnt.NameIDVersion, "Version string"},
	{sfnt.NameIDPostScript, "PostScript name"},
	{sfnt.NameIDTrademark, "Trademark"},
	{sfnt.NameIDManufacturer, "Manufacturer"},
	{sfnt.NameIDDesigner, "Designer"},
	{sfnt.NameIDDescription, "Description"},
	{sfnt.NameIDVendorURL, "URL Vendor"},
	{sfnt.NameIDDesignerURL, "URL Designer"},
	{sfnt.NameIDLicense, "License Description"},
	{sfnt.NameIDLicenseURL, "License Info URL"},
}

// Scanner extracts font naming and license metadata.
type Scanner struct{}

// New creates a font metadata scanner.
func New() *Scanner {
	return &Scanner{}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "font-metadata"
}

// Scan reads the name table of the font at path.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, scanners.ErrNotApplicable
	}
	if bytes.HasPrefix(data, []byte("wOFF")) || bytes.HasPrefix(data, []byte("wOF2")) {
		// WOFF containers need decompression before the sfnt tables are
		// readable; report this as a scan failure rather than silence.
		return nil, fmt.Errorf("WOFF containers are not supported")
	}

	font, err := parseFont(data)
	if err != nil {
		// Text files can start with a font magic ("true" is one); those
		// belong to the full-content license fallback, not a failure.
		if !detect.IsBinary(header(data)) {
			return nil, scanners.ErrNotApplicable
		}
		return nil, err
	}

	var buf sfnt.Buffer
	var fields []result.Field
	for _, nf := range nameFields {
		value, err := font.Name(&buf, nf.id)
		if err != nil || value == "" {
			continue
		}
		fields = append(fields, result.Field{Name: nf.verbose, Value: value})
	}
	return &scanners.Finding{Metadata: fields}, nil
}

func parseFont(data []byte) (*sfnt.Font, error) {
	if bytes.HasPrefix(data, []byte("ttcf")) {
		collection, err := sfnt.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font collection: %w", err)
		}
		if collection.NumFonts() == 0 {
			return nil, fmt.Errorf("empty font collection")
		}
		return collection.Font(0)
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return font, nil
}

func header(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
