// Package unpack extracts archives into workspace directories. Nested
// archives are reported back so the pipeline can recurse into them.
package unpack

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/davrell/licenseprobe/internal/detect"
)

// Extraction describes the outcome of unpacking one archive.
type Extraction struct {
	// Root is the directory the members were extracted into.
	Root string

	// Files lists all extracted regular files.
	Files []string

	// Nested lists extracted files which are themselves archives.
	Nested []string

	// Symlinks lists archive members that were skipped because they are
	// symbolic links. They are never created on disk.
	Symlinks []string
}

// CanExtract reports whether the given kind is an archive the unpacker
// understands.
func CanExtract(kind detect.Kind) bool {
	return kind == detect.KindArchive || kind == detect.KindRPM
}

// Extract unpacks the archive at path into targetDir. The archive format is
// sniffed from the content, never taken from the extension alone.
func Extract(path, targetDir string) (*Extraction, error) {
	header, err := detect.SniffHeader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff %s: %w", path, err)
	}

	ex := &Extraction{Root: targetDir}
	switch {
	case bytes.HasPrefix(header, []byte{0x50, 0x4B}):
		err = extractZip(path, targetDir, ex)
	case bytes.HasPrefix(header, []byte{0xED, 0xAB, 0xEE, 0xDB}):
		err = extractRPM(path, targetDir, ex)
	default:
		err = extractStream(path, targetDir, ex)
	}
	if err != nil {
		return nil, err
	}

	for _, f := range ex.Files {
		kind, kerr := detect.DetectKind(f)
		if kerr != nil {
			continue
		}
		if CanExtract(kind) {
			ex.Nested = append(ex.Nested, f)
		}
	}
	return ex, nil
}

func extractZip(path, targetDir string, ex *Extraction) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open zip %s: %w", path, err)
	}
	defer r.Close()

	for _, member := range r.File {
		mode := member.Mode()
		if mode&os.ModeSymlink != 0 {
			logrus.Debugf("Skipping symlink member: %s", member.Name)
			ex.Symlinks = append(ex.Symlinks, member.Name)
			continue
		}
		if member.FileInfo().IsDir() {
			continue
		}
		target, err := memberPath(targetDir, member.Name)
		if err != nil {
			return err
		}
		rc, err := member.Open()
		if err != nil {
			return fmt.Errorf("failed to open zip member %s: %w", member.Name, err)
		}
		err = writeMember(target, rc)
		rc.Close()
		if err != nil {
			return err
		}
		ex.Files = append(ex.Files, target)
	}
	return nil
}

// extractStream handles tar archives behind any supported compression, plus
// standalone compressed single files.
func extractStream(path, targetDir string, ex *Extraction) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, closer, err := decompress(f, path)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	if closer != nil {
		defer closer()
	}

	buffered := bufio.NewReader(reader)
	if isTarStream(buffered) {
		return extractTar(buffered, targetDir, ex)
	}

	// A standalone compressed file: write the decompressed content under
	// its name without the compression suffix.
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" {
		name = "content"
	}
	target, err := memberPath(targetDir, name)
	if err != nil {
		return err
	}
	if err := writeMember(target, buffered); err != nil {
		return err
	}
	ex.Files = append(ex.Files, target)
	return nil
}

// decompress wraps the raw archive stream with the matching decompressor.
func decompress(f *os.File, path string) (io.Reader, func(), error) {
	header := make([]byte, 6)
	n, _ := io.ReadFull(f, header)
	header = header[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	switch {
	case bytes.HasPrefix(header, []byte{0x1F, 0x8B}):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	case bytes.HasPrefix(header, []byte{0x28, 0xB5, 0x2F, 0xFD}):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case bytes.HasPrefix(header, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}):
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return xr, nil, nil
	case bytes.HasPrefix(header, []byte("BZh")):
		return bzip2.NewReader(f), nil, nil
	default:
		// Uncompressed, presumably plain tar.
		return f, nil, nil
	}
}

func isTarStream(r *bufio.Reader) bool {
	peek, err := r.Peek(262)
	if err != nil {
		return false
	}
	return bytes.Equal(peek[257:262], []byte("ustar"))
}

func extractTar(r io.Reader, targetDir string, ex *Extraction) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}
		switch hdr.Typeflag {
		case tar.TypeSymlink, tar.TypeLink:
			logrus.Debugf("Skipping link member: %s", hdr.Name)
			ex.Symlinks = append(ex.Symlinks, hdr.Name)
			continue
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		default:
			continue
		}
		target, err := memberPath(targetDir, hdr.Name)
		if err != nil {
			return err
		}
		if err := writeMember(target, tr); err != nil {
			return err
		}
		ex.Files = append(ex.Files, target)
	}
}

// memberPath resolves a member name below targetDir, rejecting traversal.
func memberPath(targetDir, name string) (string, error) {
	target := filepath.Join(targetDir, filepath.FromSlash(name))
	cleanRoot := filepath.Clean(targetDir) + string(os.PathSeparator)
	if !strings.HasPrefix(filepath.Clean(target)+string(os.PathSeparator), cleanRoot) {
		return "", fmt.Errorf("attempted path traversal: %s", name)
	}
	return target, nil
}

func writeMember(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
