package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/davrell/licenseprobe/result"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		version string
		wantErr bool
	}{
		{"requests", "requests", "", false},
		{"requests==2.31.0", "requests", "2.31.0", false},
		{" requests == 2.31.0 ", "requests", "2.31.0", false},
		{"", "", "", true},
		{"requests==", "", "", true},
		{"==1.0", "", "", true},
	}

	for _, tt := range tests {
		spec, err := ParseSpec(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSpec(%q) accepted an invalid spec", tt.spec)
			}
			var probeErr *result.Error
			if err != nil && (!errors.As(err, &probeErr) || probeErr.Type != result.ErrConfig) {
				t.Errorf("ParseSpec(%q) error = %v, want a config error", tt.spec, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSpec(%q) failed: %v", tt.spec, err)
			continue
		}
		if spec.Name != tt.name || spec.Version != tt.version {
			t.Errorf("ParseSpec(%q) = %+v, want %s==%s", tt.spec, spec, tt.name, tt.version)
		}
	}
}

func TestSelectDistribution(t *testing.T) {
	files := []pypiFile{
		{Filename: "demo.tar.gz", PackageType: "sdist"},
		{Filename: "demo-yanked.whl", PackageType: "bdist_wheel", Yanked: true},
		{Filename: "demo.whl", PackageType: "bdist_wheel"},
	}

	if got := selectDistribution(files, false); got == nil || got.Filename != "demo.whl" {
		t.Errorf("selectDistribution(wheel) = %+v, want demo.whl", got)
	}
	if got := selectDistribution(files, true); got == nil || got.Filename != "demo.tar.gz" {
		t.Errorf("selectDistribution(sdist) = %+v, want demo.tar.gz", got)
	}

	// Fallback to the other type when the preferred one is missing.
	sdistOnly := []pypiFile{{Filename: "demo.tar.gz", PackageType: "sdist"}}
	if got := selectDistribution(sdistOnly, false); got == nil || got.Filename != "demo.tar.gz" {
		t.Errorf("selectDistribution fallback = %+v, want demo.tar.gz", got)
	}

	yankedOnly := []pypiFile{{Filename: "demo.whl", PackageType: "bdist_wheel", Yanked: true}}
	if got := selectDistribution(yankedOnly, false); got != nil {
		t.Errorf("selectDistribution returned a yanked file: %+v", got)
	}
}

func TestFetchPackage(t *testing.T) {
	content := []byte("pretend wheel content")
	digest := sha256.Sum256(content)

	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/demo/json", func(w http.ResponseWriter, r *http.Request) {
		resp := pypiResponse{URLs: []pypiFile{{
			Filename:    "demo-1.0-py3-none-any.whl",
			PackageType: "bdist_wheel",
			URL:         "http://" + r.Host + "/files/demo-1.0-py3-none-any.whl",
			Digests:     map[string]string{"sha256": hex.EncodeToString(digest[:])},
		}}}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/files/demo-1.0-py3-none-any.whl", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tmpDir := t.TempDir()
	path, err := NewClient().FetchPackage(context.Background(),
		PackageSpec{Name: "demo"}, server.URL, false, tmpDir)
	if err != nil {
		t.Fatalf("FetchPackage failed: %v", err)
	}
	if filepath.Base(path) != "demo-1.0-py3-none-any.whl" {
		t.Errorf("Downloaded filename = %s", filepath.Base(path))
	}

	downloaded, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read download: %v", err)
	}
	if string(downloaded) != string(content) {
		t.Error("Downloaded content differs")
	}
}

func TestFetchPackageChecksumMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/demo/json", func(w http.ResponseWriter, r *http.Request) {
		resp := pypiResponse{URLs: []pypiFile{{
			Filename:    "demo.whl",
			PackageType: "bdist_wheel",
			URL:         "http://" + r.Host + "/files/demo.whl",
			Digests:     map[string]string{"sha256": "deadbeef"},
		}}}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/files/demo.whl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corrupted"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := NewClient().FetchPackage(context.Background(),
		PackageSpec{Name: "demo"}, server.URL, false, t.TempDir())
	if err == nil {
		t.Fatal("FetchPackage accepted a checksum mismatch")
	}
	var probeErr *result.Error
	if !errors.As(err, &probeErr) || probeErr.Type != result.ErrRetrieval {
		t.Errorf("Error = %v, want a retrieval error", err)
	}
}

func TestFetchPackageNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewClient().FetchPackage(context.Background(),
		PackageSpec{Name: "missing"}, server.URL, false, t.TempDir())
	if err == nil {
		t.Fatal("FetchPackage found a nonexistent package")
	}
	var probeErr *result.Error
	if !errors.As(err, &probeErr) || probeErr.Type != result.ErrRetrieval {
		t.Errorf("Error = %v, want a retrieval error", err)
	}
}

func TestFetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive bytes"))
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	path, err := NewClient().FetchURL(context.Background(), server.URL+"/downloads/demo.tar.gz", tmpDir)
	if err != nil {
		t.Fatalf("FetchURL failed: %v", err)
	}
	if filepath.Base(path) != "demo.tar.gz" {
		t.Errorf("Filename = %s, want demo.tar.gz", filepath.Base(path))
	}
}

func TestFetchURLNoFilename(t *testing.T) {
	_, err := NewClient().FetchURL(context.Background(), "https://example.com/", t.TempDir())
	if err == nil {
		t.Fatal("FetchURL accepted a URL without a filename")
	}
	var probeErr *result.Error
	if !errors.As(err, &probeErr) || probeErr.Type != result.ErrConfig {
		t.Errorf("Error = %v, want a config error", err)
	}
}

func TestParseLockFile(t *testing.T) {
	lock := `version = 3

[[package]]
name = "serde"
version = "1.0.200"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "abc123"

[[package]]
name = "local-helper"
version = "0.1.0"

[[package]]
name = "anyhow"
version = "1.0.86"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "def456"
`
	path := filepath.Join(t.TempDir(), "Cargo.lock")
	if err := os.WriteFile(path, []byte(lock), 0644); err != nil {
		t.Fatalf("Failed to write lock file: %v", err)
	}

	crates, err := ParseLockFile(path)
	if err != nil {
		t.Fatalf("ParseLockFile failed: %v", err)
	}
	// The path-only package has no registry source and is skipped.
	if len(crates) != 2 {
		t.Fatalf("Parsed %d crates, want 2", len(crates))
	}
	if crates[0].Name != "serde" || crates[0].Version != "1.0.200" || crates[0].Checksum != "abc123" {
		t.Errorf("crates[0] = %+v", crates[0])
	}
	if crates[1].Name != "anyhow" {
		t.Errorf("crates[1] = %+v", crates[1])
	}
	if crates[0].Filename() != "serde_1.0.200.crate" {
		t.Errorf("Filename = %s", crates[0].Filename())
	}
}
