// Package elfbin inspects the dynamic linkage of ELF binaries via the
// standard library's debug/elf reader.
package elfbin

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/result"
)

// Scanner reports which shared objects an ELF binary links against.
type Scanner struct{}

// New creates an ELF linkage scanner.
func New() *Scanner {
	return &Scanner{}
}

// Name identifies the adapter
func (s *Scanner) Name() string {
	return "elf-linkage"
}

// Scan extracts the dynamic-linkage metadata of an ELF file. Symlinks are
// never followed; they usually point outside the workspace.
func (s *Scanner) Scan(path string) (*scanners.Finding, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		logrus.Warnf("Ignoring symlink %s for linkage analysis", path)
		return nil, scanners.ErrNotApplicable
	}

	f, err := elf.Open(path)
	if err != nil {
		var formatErr *elf.FormatError
		if errors.As(err, &formatErr) {
			return nil, scanners.ErrNotApplicable
		}
		return nil, err
	}
	defer f.Close()

	fields := []result.Field{
		{Name: "Type", Value: elfType(f.Type)},
		{Name: "Class", Value: f.Class.String()},
		{Name: "Machine", Value: f.Machine.String()},
	}
	if soname, err := f.DynString(elf.DT_SONAME); err == nil && len(soname) > 0 {
		fields = append(fields, result.Field{Name: "SONAME", Value: soname[0]})
	}
	if runpath, err := f.DynString(elf.DT_RUNPATH); err == nil && len(runpath) > 0 {
		fields = append(fields, result.Field{Name: "RUNPATH", Value: strings.Join(runpath, ":")})
	}
	if rpath, err := f.DynString(elf.DT_RPATH); err == nil && len(rpath) > 0 {
		fields = append(fields, result.Field{Name: "RPATH", Value: strings.Join(rpath, ":")})
	}

	libs, err := f.ImportedLibraries()
	if err != nil {
		// Statically linked binaries have no dynamic section.
		logrus.Debugf("No dynamic section in %s: %v", path, err)
	}
	if len(libs) == 0 {
		fields = append(fields, result.Field{Name: "Linkage", Value: "static"})
	} else {
		fields = append(fields, result.Field{Name: "Needed", Value: strings.Join(libs, ", ")})
	}

	return &scanners.Finding{Metadata: fields}, nil
}

func elfType(t elf.Type) string {
	switch t {
	case elf.ET_EXEC:
		return "executable"
	case elf.ET_DYN:
		return "shared object"
	case elf.ET_REL:
		return "relocatable"
	case elf.ET_CORE:
		return "core dump"
	default:
		return fmt.Sprintf("unknown (%d)", t)
	}
}
