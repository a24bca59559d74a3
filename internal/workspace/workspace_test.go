package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceClose(t *testing.T) {
	ws, err := New(false)
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}

	root := ws.Root()
	if err := os.WriteFile(filepath.Join(root, "file"), []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write into workspace: %v", err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("Workspace still exists after Close: %s", root)
	}

	// Close is idempotent
	if err := ws.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestWorkspaceRetain(t *testing.T) {
	ws, err := New(true)
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}
	root := ws.Root()
	defer os.RemoveAll(root)

	if err := ws.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("Retained workspace is gone: %v", err)
	}
}

func TestExtractionDirNaming(t *testing.T) {
	tmpDir := t.TempDir()

	archive := filepath.Join(tmpDir, "libdemo.tar.gz")
	if err := os.WriteFile(archive, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}

	target, err := ExtractionDir(archive)
	if err != nil {
		t.Fatalf("ExtractionDir failed: %v", err)
	}
	if filepath.Base(target) != "libdemo_tar_gz" {
		t.Errorf("Directory name = %s, want libdemo_tar_gz", filepath.Base(target))
	}
	if filepath.Dir(target) != tmpDir {
		t.Errorf("Directory created outside the archive's parent: %s", target)
	}
}

func TestExtractionDirFallback(t *testing.T) {
	tmpDir := t.TempDir()

	archive := filepath.Join(tmpDir, "demo.zip")
	if err := os.WriteFile(archive, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}
	// Occupy the fixed name so the fallback kicks in.
	if err := os.Mkdir(filepath.Join(tmpDir, "demo_zip"), 0755); err != nil {
		t.Fatalf("Failed to occupy directory: %v", err)
	}

	target, err := ExtractionDir(archive)
	if err != nil {
		t.Fatalf("ExtractionDir failed: %v", err)
	}
	if target == filepath.Join(tmpDir, "demo_zip") {
		t.Error("Fallback returned the occupied directory")
	}
	if !strings.HasPrefix(filepath.Base(target), "demo_zip-") {
		t.Errorf("Fallback name = %s, want demo_zip- prefix", filepath.Base(target))
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("Fallback directory does not exist: %v", err)
	}
}
