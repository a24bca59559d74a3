// Package rpmmeta reads the header metadata of RPM packages via
// github.com/sassoftware/go-rpmutils. RPMs are never scanned byte-for-byte;
// the declared license from the header is used instead.
package rpmmeta

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sassoftware/go-rpmutils"

	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/result"
)

// Scanner extracts RPM header metadata and optionally verifies package
// signatures against a keyring.
type Scanner struct {
	keyring Keyring
}

// New creates an RPM metadata scanner. The keyring may be nil, in which case
// signatures are not checked.
func New(keyring Keyring) *Scanner {
	return &Scanner{keyring: keyring}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "rpm-metadata"
}

// Scan reads the header section of the RPM at path.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPM: %w", err)
	}

	fields := []result.Field{}
	appendField := func(name, value string) {
		if value != "" {
			fields = append(fields, result.Field{Name: name, Value: value})
		}
	}
	appendField("Package Name", getStringTag(rpm, rpmutils.NAME))
	appendField("Package Version", getStringTag(rpm, rpmutils.VERSION))
	appendField("Package Release", getStringTag(rpm, rpmutils.RELEASE))
	appendField("Architecture", getStringTag(rpm, rpmutils.ARCH))
	appendField("One-line Summary", getStringTag(rpm, rpmutils.SUMMARY))
	appendField("License Of Contents", getStringTag(rpm, rpmutils.LICENSE))
	appendField("Package Vendor", getStringTag(rpm, rpmutils.VENDOR))
	appendField("Packager", getStringTag(rpm, rpmutils.PACKAGER))
	appendField("Package Group", getStringTag(rpm, rpmutils.GROUP))
	appendField("Upstream URL", getStringTag(rpm, rpmutils.URL))
	appendField("Source RPM Filename", getStringTag(rpm, rpmutils.SOURCERPM))
	if buildTime := getIntTag(rpm, rpmutils.BUILDTIME); buildTime > 0 {
		appendField("Package Build Time", time.Unix(buildTime, 0).UTC().Format(time.RFC3339))
	}
	if requires := getStringSliceTag(rpm, rpmutils.REQUIRENAME); len(requires) > 0 {
		appendField("Required Names", strings.Join(requires, ", "))
	}

	if s.keyring != nil {
		sigFields, err := s.verify(path)
		if err != nil {
			return nil, fmt.Errorf("signature verification failed: %w", err)
		}
		fields = append(fields, sigFields...)
	}

	return &scanners.Finding{
		License:  getStringTag(rpm, rpmutils.LICENSE),
		Metadata: fields,
	}, nil
}

// getStringTag safely gets a string tag from RPM
func getStringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// getIntTag safely gets an integer tag from RPM
func getIntTag(rpm *rpmutils.Rpm, tag int) int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case []int32:
		if len(v) > 0 {
			return int64(v[0])
		}
	}
	return 0
}

// getStringSliceTag safely gets a string slice tag from RPM
func getStringSliceTag(rpm *rpmutils.Rpm, tag int) []string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return nil
	}
	slice, ok := val.([]string)
	if !ok {
		return nil
	}
	var out []string
	for _, s := range slice {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
