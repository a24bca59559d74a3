// Package imagemeta reads basic image properties and, for JPEG and TIFF,
// embedded EXIF metadata (artist, copyright, camera details).
package imagemeta

import (
	"errors"
	"fmt"
	"image"
	"os"

	// Register the decoders for the supported formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"

	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/result"
)

// exifFields are the EXIF tags worth reporting, in rendering order.
var exifFields = []struct {
	name  exif.FieldName
	label string
}{
	{exif.Artist, "Artist"},
	{exif.Copyright, "Copyright"},
	{exif.ImageDescription, "Image description"},
	{exif.Make, "Camera make"},
	{exif.Model, "Camera model"},
	{exif.Software, "Software"},
	{exif.DateTime, "Date/time"},
}

// Scanner reports image format, dimensions and EXIF metadata.
type Scanner struct{}

// New creates an image metadata scanner.
func New() *Scanner {
	return &Scanner{}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "image-metadata"
}

// Scan decodes the image header at path.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, scanners.ErrNotApplicable
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	fields := []result.Field{
		{Name: "Format", Value: format},
		{Name: "Dimensions", Value: fmt.Sprintf("%dx%d", config.Width, config.Height)},
	}

	if format == "jpeg" || format == "tiff" {
		fields = append(fields, s.exifFields(f, path)...)
	}

	return &scanners.Finding{Metadata: fields}, nil
}

func (s *Scanner) exifFields(f *os.File, path string) []result.Field {
	if _, err := f.Seek(0, 0); err != nil {
		return nil
	}
	x, err := exif.Decode(f)
	if err != nil {
		// Most images simply carry no EXIF block.
		logrus.Debugf("No EXIF data in %s: %v", path, err)
		return nil
	}

	var fields []result.Field
	for _, ef := range exifFields {
		tag, err := x.Get(ef.name)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil || value == "" {
			continue
		}
		fields = append(fields, result.Field{Name: ef.label, Value: value})
	}
	return fields
}
