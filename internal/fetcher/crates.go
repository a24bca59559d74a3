package fetcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/davrell/licenseprobe/result"
)

// cratesIOSource is the only registry source we download from.
const cratesIOSource = "registry+https://github.com/rust-lang/crates.io-index"

// crateDownloadDelay throttles crates.io downloads to one request per
// second, per https://crates.io/data-access.
const crateDownloadDelay = time.Second

// CrateVersion is one pinned crate from a Cargo.lock file.
type CrateVersion struct {
	Name     string
	Version  string
	Checksum string
}

// Filename returns the local file name used for the downloaded crate.
func (c CrateVersion) Filename() string {
	return fmt.Sprintf("%s_%s.crate", c.Name, c.Version)
}

// downloadURL returns the crates.io download endpoint for this version.
func (c CrateVersion) downloadURL() string {
	return fmt.Sprintf("https://crates.io/api/v1/crates/%s/%s/download", c.Name, c.Version)
}

// lockFile mirrors the Cargo.lock format.
type lockFile struct {
	Package []struct {
		Name     string `toml:"name"`
		Version  string `toml:"version"`
		Source   string `toml:"source"`
		Checksum string `toml:"checksum"`
	} `toml:"package"`
}

// ParseLockFile reads the crates pinned in a Cargo.lock. Packages from
// other sources (path or git dependencies) are skipped with a warning.
func ParseLockFile(path string) ([]CrateVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &result.Error{Type: result.ErrRetrieval, Path: path, Err: err}
	}
	var lock lockFile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, &result.Error{
			Type: result.ErrRetrieval,
			Path: path,
			Err:  fmt.Errorf("failed to parse lock file: %w", err),
		}
	}

	var crates []CrateVersion
	for _, pkg := range lock.Package {
		if pkg.Source != cratesIOSource {
			logrus.Warnf("Skipping %s %s: unsupported source %q", pkg.Name, pkg.Version, pkg.Source)
			continue
		}
		crates = append(crates, CrateVersion{
			Name:     pkg.Name,
			Version:  pkg.Version,
			Checksum: pkg.Checksum,
		})
	}
	return crates, nil
}

// FetchCrate downloads one crate into directory, verifying the lock file
// checksum.
func (c *Client) FetchCrate(ctx context.Context, crate CrateVersion, directory string) (string, error) {
	logrus.Infof("Downloading crate %s %s ...", crate.Name, crate.Version)
	return c.download(ctx, crate.downloadURL(), directory, crate.Filename(), crate.Checksum)
}

// FetchCrates downloads all crates sequentially with the mandated
// per-request delay and returns their local paths in input order.
func (c *Client) FetchCrates(ctx context.Context, crates []CrateVersion, directory string) ([]string, error) {
	paths := make([]string, 0, len(crates))
	for i, crate := range crates {
		if i > 0 {
			select {
			case <-time.After(crateDownloadDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		path, err := c.FetchCrate(ctx, crate, directory)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
