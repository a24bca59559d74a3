package test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/davrell/licenseprobe/internal/report"
	"github.com/davrell/licenseprobe/probe"
	"github.com/davrell/licenseprobe/result"
)

const mitText = `MIT License

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
`

func buildZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip member: %v", err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("Failed to write zip member: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}
}

func buildTarGz(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range members {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		if _, err := tw.Write(content); err != nil {
			t.Fatalf("Failed to write tar member: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Failed to close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}
}

// countWorkspaces counts the run-owned temporary directories currently on
// disk.
func countWorkspaces(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "licenseprobe-*"))
	if err != nil {
		t.Fatalf("Failed to glob temp dir: %v", err)
	}
	return len(matches)
}

// TestArchiveEndToEnd drives the whole pipeline over a local wheel-style
// archive with a nested archive inside, then renders the report.
func TestArchiveEndToEnd(t *testing.T) {
	tmpDir := t.TempDir()
	workspacesBefore := countWorkspaces(t)

	inner := filepath.Join(tmpDir, "inner.zip")
	buildZip(t, inner, map[string][]byte{
		"vendored/readme.txt": []byte("vendored code, no license"),
	})
	innerContent, err := os.ReadFile(inner)
	if err != nil {
		t.Fatalf("Failed to read inner archive: %v", err)
	}

	archive := filepath.Join(tmpDir, "demo-1.0-py3-none-any.whl")
	buildZip(t, archive, map[string][]byte{
		"demo/__init__.py":           []byte("__version__ = \"1.0\"\n"),
		"demo-1.0.dist-info/LICENSE": []byte(mitText),
		"demo-1.0.dist-info/METADATA": []byte(
			"Metadata-Version: 2.1\nName: demo\nVersion: 1.0\nLicense-Expression: MIT\n"),
		"demo/data/bundle.zip": innerContent,
	})

	summaries, err := probe.Run(context.Background(), probe.Options{Archive: archive, Jobs: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Got %d summaries, want 1", len(summaries))
	}
	summary := summaries[0]

	// The license text and the metadata declaration both count as MIT.
	if summary.LicenseCounts["MIT"] != 2 {
		t.Errorf("MIT count = %d, want 2:\n%+v", summary.LicenseCounts["MIT"], summary.LicenseCounts)
	}
	if summary.FailedCount != 0 {
		t.Errorf("FailedCount = %d:\n%+v", summary.FailedCount, summary.Files)
	}

	// The nested archive's members appear under the extraction directory.
	var nestedSeen bool
	for _, file := range summary.Files {
		if strings.HasSuffix(file.Path, "readme.txt") && strings.Contains(file.Path, "bundle_zip") {
			nestedSeen = true
		}
	}
	if !nestedSeen {
		var paths []string
		for _, file := range summary.Files {
			paths = append(paths, file.Path)
		}
		t.Errorf("Nested archive member not scanned, files: %v", paths)
	}

	// The report renders without choking on the summary.
	var buf bytes.Buffer
	report.WriteSummary(&buf, summary)
	for _, want := range []string{archive, "MIT", "Name: demo"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Report missing %q:\n%s", want, buf.String())
		}
	}

	// The run's workspace is gone after a successful completion.
	if after := countWorkspaces(t); after != workspacesBefore {
		t.Errorf("Workspace leaked: %d run directories before, %d after", workspacesBefore, after)
	}
}

// TestRepackEquivalence packs the same tree as both a zip and a tar.gz and
// checks that scanning either form yields identical per-file results.
func TestRepackEquivalence(t *testing.T) {
	tmpDir := t.TempDir()
	members := map[string][]byte{
		"demo/LICENSE":    []byte(mitText),
		"demo/Cargo.toml": []byte("[package]\nname = \"demo\"\nversion = \"1.0.0\"\nlicense = \"MIT\"\n"),
		"demo/src/lib.rs": []byte("pub fn answer() -> u32 { 42 }\n"),
	}

	zipPath := filepath.Join(tmpDir, "demo.zip")
	buildZip(t, zipPath, members)
	tarPath := filepath.Join(tmpDir, "demo.tar.gz")
	buildTarGz(t, tarPath, members)

	scan := func(archive string) map[string]result.FileResult {
		summaries, err := probe.Run(context.Background(), probe.Options{Archive: archive, Jobs: 2})
		if err != nil {
			t.Fatalf("Run(%s) failed: %v", archive, err)
		}
		files := make(map[string]result.FileResult)
		for _, file := range summaries[0].Files {
			files[file.Path] = file
		}
		return files
	}

	fromZip := scan(zipPath)
	fromTar := scan(tarPath)

	if len(fromZip) != len(members) || len(fromTar) != len(members) {
		t.Fatalf("File counts differ: zip %d, tar %d, want %d", len(fromZip), len(fromTar), len(members))
	}
	for path, zipResult := range fromZip {
		tarResult, ok := fromTar[path]
		if !ok {
			t.Errorf("%s missing from the tar.gz scan", path)
			continue
		}
		if !reflect.DeepEqual(zipResult, tarResult) {
			t.Errorf("%s differs between forms:\nzip %+v\ntar %+v", path, zipResult, tarResult)
		}
	}
}

// TestArchiveCorruptTopLevel checks that an unreadable top-level archive
// aborts the run with an unpack error.
func TestArchiveCorruptTopLevel(t *testing.T) {
	tmpDir := t.TempDir()
	workspacesBefore := countWorkspaces(t)
	archive := filepath.Join(tmpDir, "broken.zip")
	// Zip magic with garbage behind it.
	if err := os.WriteFile(archive, []byte("PK\x03\x04 not a real archive"), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}

	_, err := probe.Run(context.Background(), probe.Options{Archive: archive})
	if err == nil {
		t.Fatal("Run accepted a corrupt archive")
	}
	var probeErr *result.Error
	if !errors.As(err, &probeErr) || probeErr.Type != result.ErrUnpack {
		t.Errorf("Error = %v, want an unpack error", err)
	}

	// The run's workspace is gone even though the run failed.
	if after := countWorkspaces(t); after != workspacesBefore {
		t.Errorf("Workspace leaked: %d run directories before, %d after", workspacesBefore, after)
	}
}

// TestUnsupportedArchiveFormat checks that a plain file handed in as archive
// is rejected before any unpacking happens.
func TestUnsupportedArchiveFormat(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(path, []byte("just text"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := probe.Run(context.Background(), probe.Options{Archive: path})
	if err == nil {
		t.Fatal("Run accepted a non-archive")
	}
	var probeErr *result.Error
	if !errors.As(err, &probeErr) || probeErr.Type != result.ErrUnpack {
		t.Errorf("Error = %v, want an unpack error", err)
	}
}
