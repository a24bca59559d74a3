// Package workspace provides scoped temporary directories for a single run.
// A workspace is exclusively owned by the run that created it and must not
// outlive it; Close removes the whole tree unless retention was requested.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Workspace is a temporary directory tree owned by one pipeline run.
type Workspace struct {
	root   string
	retain bool
}

// New creates a fresh workspace directory. When retain is set, Close keeps
// the tree on disk and only logs its location.
func New(retain bool) (*Workspace, error) {
	root, err := os.MkdirTemp("", "licenseprobe-")
	if err != nil {
		return nil, err
	}
	return &Workspace{root: root, retain: retain}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Close removes the workspace. Safe to call multiple times.
func (w *Workspace) Close() error {
	if w.root == "" {
		return nil
	}
	root := w.root
	w.root = ""
	if w.retain {
		logrus.Infof("Keeping workspace: %s", root)
		return nil
	}
	return os.RemoveAll(root)
}

// ExtractionDir returns a directory for unpacking the given archive, named
// after the archive itself (libfoo.tar.gz -> libfoo_tar_gz). When that name
// is already taken, a random sibling directory is used instead.
func ExtractionDir(archivePath string) (string, error) {
	base := filepath.Base(archivePath)
	name := base
	var suffixes []string
	for {
		ext := filepath.Ext(name)
		if ext == "" || len(ext) > 6 {
			break
		}
		suffixes = append([]string{strings.TrimPrefix(ext, ".")}, suffixes...)
		name = strings.TrimSuffix(name, ext)
	}
	dirName := name
	if len(suffixes) > 0 {
		dirName = name + "_" + strings.Join(suffixes, "_")
	}

	target := filepath.Join(filepath.Dir(archivePath), dirName)
	if err := os.Mkdir(target, 0755); err != nil {
		if !os.IsExist(err) {
			return "", err
		}
		return os.MkdirTemp(filepath.Dir(archivePath), dirName+"-")
	}
	return target, nil
}
