package unpack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sassoftware/go-rpmutils"
)

// extractRPM expands the cpio payload of an RPM into targetDir.
func extractRPM(path, targetDir string, ex *Extraction) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return fmt.Errorf("failed to read RPM %s: %w", path, err)
	}
	if err := rpm.ExpandPayload(targetDir); err != nil {
		return fmt.Errorf("failed to expand RPM payload of %s: %w", path, err)
	}

	err = filepath.Walk(targetDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			rel, _ := filepath.Rel(targetDir, p)
			ex.Symlinks = append(ex.Symlinks, rel)
			return nil
		}
		if info.Mode().IsRegular() {
			ex.Files = append(ex.Files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk expanded payload: %w", err)
	}
	return nil
}
