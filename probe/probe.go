// Package probe is the library entry point: it wires the fetcher, unpacker,
// dispatcher, scanner adapters, aggregator and reporter into one pipeline
// and exposes structured summaries to callers.
package probe

import (
	"context"
	"fmt"

	"github.com/davrell/licenseprobe/internal/fetcher"
	"github.com/davrell/licenseprobe/internal/scanners/rpmmeta"
	"github.com/davrell/licenseprobe/internal/workspace"
	"github.com/davrell/licenseprobe/result"
)

// Options selects the artifact source and tunes the pipeline. Exactly one
// of Package, Archive, File, Directory, URL and CargoLock must be set.
type Options struct {
	// Package is a PyPI specifier, "name" or "name==version".
	Package string

	// Archive is a local archive path.
	Archive string

	// File is a single local file to analyze in place.
	File string

	// Directory is a local directory tree to analyze in place.
	Directory string

	// URL is a direct archive download URL.
	URL string

	// CargoLock is a Cargo.lock file; every pinned crates.io crate is
	// fetched and analyzed as its own artifact.
	CargoLock string

	// IndexURL overrides the PyPI index (defaults to pypi.org).
	IndexURL string

	// PreferSdist downloads the source distribution instead of the wheel.
	PreferSdist bool

	// Jobs is the worker count for the per-file fan-out (default 4).
	Jobs int

	// KeepTemp retains unpacked directories instead of deleting them.
	KeepTemp bool

	// RPMKeyring is an optional armored keyring used to verify RPM
	// signatures.
	RPMKeyring string
}

// Validate checks that the options describe exactly one source.
func (o *Options) Validate() error {
	sources := 0
	for _, s := range []string{o.Package, o.Archive, o.File, o.Directory, o.URL, o.CargoLock} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return &result.Error{
			Type: result.ErrConfig,
			Err:  fmt.Errorf("exactly one artifact source is required, got %d", sources),
		}
	}
	if o.Jobs < 0 {
		return &result.Error{
			Type: result.ErrConfig,
			Err:  fmt.Errorf("jobs must not be negative, got %d", o.Jobs),
		}
	}
	return nil
}

func (o *Options) jobs() int {
	if o.Jobs == 0 {
		return 4
	}
	return o.Jobs
}

// Run executes the pipeline for the configured source and returns one
// summary per artifact.
func Run(ctx context.Context, opts Options) ([]*result.Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var keyring rpmmeta.Keyring
	if opts.RPMKeyring != "" {
		var err error
		keyring, err = rpmmeta.LoadKeyring(opts.RPMKeyring)
		if err != nil {
			return nil, &result.Error{Type: result.ErrConfig, Path: opts.RPMKeyring, Err: err}
		}
	}

	p := &pipeline{
		client:   fetcher.NewClient(),
		adapters: newAdapters(keyring),
		jobs:     opts.jobs(),
		keepTemp: opts.KeepTemp,
	}

	switch {
	case opts.Package != "":
		return p.runPackage(ctx, opts)
	case opts.URL != "":
		return p.runURL(ctx, opts)
	case opts.Archive != "":
		return p.runArchive(ctx, opts.Archive)
	case opts.File != "":
		return p.runFile(ctx, opts.File)
	case opts.Directory != "":
		return p.runDirectory(ctx, opts.Directory)
	default:
		return p.runCargoLock(ctx, opts)
	}
}

// runPackage downloads the PyPI artifact and scans it.
func (p *pipeline) runPackage(ctx context.Context, opts Options) ([]*result.Summary, error) {
	spec, err := fetcher.ParseSpec(opts.Package)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.New(p.keepTemp)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	path, err := p.client.FetchPackage(ctx, spec, opts.IndexURL, opts.PreferSdist, ws.Root())
	if err != nil {
		return nil, err
	}
	summary, err := p.scanArchiveArtifact(ctx, spec.String(), path)
	if err != nil {
		return nil, err
	}
	return []*result.Summary{summary}, nil
}

// runURL downloads the archive and scans it.
func (p *pipeline) runURL(ctx context.Context, opts Options) ([]*result.Summary, error) {
	ws, err := workspace.New(p.keepTemp)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	path, err := p.client.FetchURL(ctx, opts.URL, ws.Root())
	if err != nil {
		return nil, err
	}
	summary, err := p.scanArchiveArtifact(ctx, opts.URL, path)
	if err != nil {
		return nil, err
	}
	return []*result.Summary{summary}, nil
}

// runArchive scans a local archive.
func (p *pipeline) runArchive(ctx context.Context, path string) ([]*result.Summary, error) {
	summary, err := p.scanArchiveArtifact(ctx, path, path)
	if err != nil {
		return nil, err
	}
	return []*result.Summary{summary}, nil
}

// runCargoLock fetches every pinned crate and scans each one as its own
// artifact, fanning out across crates. Workers share nothing; each crate
// gets its own workspace.
func (p *pipeline) runCargoLock(ctx context.Context, opts Options) ([]*result.Summary, error) {
	crates, err := fetcher.ParseLockFile(opts.CargoLock)
	if err != nil {
		return nil, err
	}
	if len(crates) == 0 {
		return nil, nil
	}

	ws, err := workspace.New(p.keepTemp)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	paths, err := p.client.FetchCrates(ctx, crates, ws.Root())
	if err != nil {
		return nil, err
	}

	summaries := make([]*result.Summary, len(crates))
	errs := make([]error, len(crates))
	indexes := make(chan int)
	done := make(chan struct{})

	workers := p.jobs
	if workers > len(crates) {
		workers = len(crates)
	}
	for w := 0; w < workers; w++ {
		go func() {
			for i := range indexes {
				summaries[i], errs[i] = p.scanArchiveArtifact(ctx, crates[i].Name+" "+crates[i].Version, paths[i])
			}
			done <- struct{}{}
		}()
	}
	for i := range crates {
		indexes <- i
	}
	close(indexes)
	for w := 0; w < workers; w++ {
		<-done
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return summaries, nil
}
