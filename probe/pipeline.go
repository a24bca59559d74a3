package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/davrell/licenseprobe/internal/aggregate"
	"github.com/davrell/licenseprobe/internal/detect"
	"github.com/davrell/licenseprobe/internal/fetcher"
	"github.com/davrell/licenseprobe/internal/scanners"
	"github.com/davrell/licenseprobe/internal/scanners/cargometa"
	"github.com/davrell/licenseprobe/internal/scanners/elfbin"
	"github.com/davrell/licenseprobe/internal/scanners/font"
	"github.com/davrell/licenseprobe/internal/scanners/imagemeta"
	"github.com/davrell/licenseprobe/internal/scanners/license"
	"github.com/davrell/licenseprobe/internal/scanners/pymeta"
	"github.com/davrell/licenseprobe/internal/scanners/rpmmeta"
	"github.com/davrell/licenseprobe/internal/unpack"
	"github.com/davrell/licenseprobe/internal/workspace"
	"github.com/davrell/licenseprobe/result"
)

// pipeline holds the per-run wiring: the HTTP client, the adapter table and
// the fan-out width.
type pipeline struct {
	client   *fetcher.Client
	adapters map[detect.Kind]scanners.Scanner
	jobs     int
	keepTemp bool
}

// newAdapters builds the closed dispatch table from file kind to adapter.
func newAdapters(keyring rpmmeta.Keyring) map[detect.Kind]scanners.Scanner {
	return map[detect.Kind]scanners.Scanner{
		detect.KindText:           license.New(),
		detect.KindELF:            elfbin.New(),
		detect.KindFont:           font.New(),
		detect.KindRPM:            rpmmeta.New(keyring),
		detect.KindImage:          imagemeta.New(),
		detect.KindCargoManifest:  cargometa.New(),
		detect.KindPythonMetadata: pymeta.New(),
	}
}

// fileTask is one file queued for scanning: its on-disk path and the
// display path shown in reports.
type fileTask struct {
	path    string
	display string
}

// runFile analyzes a single file in place.
func (p *pipeline) runFile(ctx context.Context, path string) ([]*result.Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &result.Error{Type: result.ErrRetrieval, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &result.Error{
			Type: result.ErrConfig,
			Path: path,
			Err:  errors.New("is a directory, use the directory source instead"),
		}
	}

	files := p.scanFiles(ctx, []fileTask{{path: path, display: path}})
	return []*result.Summary{aggregate.Summarize(path, files)}, nil
}

// runDirectory analyzes a directory tree in place. Nested archives are
// unpacked into sibling directories which are removed again afterwards.
func (p *pipeline) runDirectory(ctx context.Context, dir string) ([]*result.Summary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &result.Error{Type: result.ErrRetrieval, Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &result.Error{
			Type: result.ErrConfig,
			Path: dir,
			Err:  errors.New("not a directory"),
		}
	}

	c := &collector{keepTemp: p.keepTemp}
	defer c.cleanup()
	if err := c.addTree(dir, ""); err != nil {
		return nil, err
	}

	files := p.scanFiles(ctx, c.tasks)
	files = append(files, c.failed...)
	return []*result.Summary{aggregate.Summarize(dir, files)}, nil
}

// scanArchiveArtifact is the shared path for downloaded and local archives:
// unpack into a scoped workspace, collect the tree recursively, fan out the
// scans and aggregate. The archive's own header result (the declared RPM
// license) is included as well.
func (p *pipeline) scanArchiveArtifact(ctx context.Context, label, archivePath string) (*result.Summary, error) {
	kind, err := detect.DetectKind(archivePath)
	if err != nil {
		return nil, &result.Error{Type: result.ErrRetrieval, Path: archivePath, Err: err}
	}
	if !unpack.CanExtract(kind) {
		return nil, &result.Error{
			Type: result.ErrUnpack,
			Path: archivePath,
			Err:  errors.New("unsupported archive format"),
		}
	}

	ws, err := workspace.New(p.keepTemp)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	ex, err := unpack.Extract(archivePath, ws.Root())
	if err != nil {
		return nil, &result.Error{Type: result.ErrUnpack, Path: archivePath, Err: err}
	}

	var files []result.FileResult
	if kind == detect.KindRPM {
		// Surface the declared license from the package header.
		files = append(files, p.scanOne(fileTask{path: archivePath, display: filepath.Base(archivePath)}))
	}

	logrus.Debugf("Extracted %d files (%d nested archives) from %s",
		len(ex.Files), len(ex.Nested), archivePath)

	c := &collector{keepTemp: p.keepTemp}
	defer c.cleanup()
	if err := c.addTree(ws.Root(), ""); err != nil {
		return nil, err
	}

	files = append(files, p.scanFiles(ctx, c.tasks)...)
	files = append(files, c.failed...)
	return aggregate.Summarize(label, files), nil
}

// collector gathers the file tasks of an artifact, recursively unpacking
// nested archives as it goes.
type collector struct {
	tasks    []fileTask
	failed   []result.FileResult
	cleanups []string
	keepTemp bool
}

// addTree walks root and queues every regular file. Symlinks are skipped;
// they must not lead outside the workspace. Nested archives found during
// the walk are unpacked and their trees queued as well.
func (c *collector) addTree(root, displayPrefix string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			logrus.Debugf("Skipping symlink: %s", path)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		display := filepath.Join(displayPrefix, rel)
		c.tasks = append(c.tasks, fileTask{path: path, display: display})

		kind, err := detect.DetectKind(path)
		if err != nil {
			return nil
		}
		if unpack.CanExtract(kind) {
			c.unpackNested(path, display)
		}
		return nil
	})
}

// unpackNested extracts a nested archive next to itself and queues the
// extracted tree. Corrupt nested archives become failed file results
// instead of aborting the artifact.
func (c *collector) unpackNested(path, display string) {
	target, err := workspace.ExtractionDir(path)
	if err != nil {
		c.failed = append(c.failed, result.FileResult{
			Path: display,
			Kind: detect.KindArchive.String(),
			Err:  err.Error(),
		})
		return
	}
	if !c.keepTemp {
		c.cleanups = append(c.cleanups, target)
	}

	if _, err := unpack.Extract(path, target); err != nil {
		logrus.Warnf("Failed to unpack %s: %v", display, err)
		c.failed = append(c.failed, result.FileResult{
			Path: display,
			Kind: detect.KindArchive.String(),
			Err:  err.Error(),
		})
		return
	}

	prefix := filepath.Join(filepath.Dir(display), filepath.Base(target))
	if err := c.addTree(target, prefix); err != nil {
		logrus.Warnf("Failed to walk unpacked %s: %v", display, err)
	}
}

// cleanup removes the nested extraction directories, newest first.
func (c *collector) cleanup() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		if err := os.RemoveAll(c.cleanups[i]); err != nil {
			logrus.Warnf("Failed to remove %s: %v", c.cleanups[i], err)
		}
	}
}

// scanFiles fans the queued tasks out to the worker pool. Workers share no
// mutable state; each result slot is owned by exactly one worker.
func (p *pipeline) scanFiles(ctx context.Context, tasks []fileTask) []result.FileResult {
	results := make([]result.FileResult, len(tasks))
	indexes := make(chan int)
	done := make(chan struct{})

	workers := p.jobs
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers == 0 {
		return results
	}

	for w := 0; w < workers; w++ {
		go func() {
			for i := range indexes {
				results[i] = p.scanOne(tasks[i])
			}
			done <- struct{}{}
		}()
	}

	queued := 0
loop:
	for i := range tasks {
		select {
		case indexes <- i:
			queued++
		case <-ctx.Done():
			break loop
		}
	}
	close(indexes)
	for w := 0; w < workers; w++ {
		<-done
	}
	return results[:queued]
}

// scanOne dispatches a single file to its adapter and normalizes the
// outcome into a FileResult. Adapter failures become partial failures, not
// pipeline aborts.
func (p *pipeline) scanOne(task fileTask) result.FileResult {
	res := result.FileResult{Path: task.display}

	kind, err := detect.DetectKind(task.path)
	if err != nil {
		res.Kind = detect.KindUnknown.String()
		res.Err = err.Error()
		return res
	}
	res.Kind = kind.String()

	adapter, ok := p.adapters[kind]
	if !ok {
		// Archives and opaque binaries are listed but not content-scanned.
		return res
	}

	finding, err := adapter.Scan(task.path)
	if errors.Is(err, scanners.ErrNotApplicable) {
		// Dispatch was wrong about the format. Fall back to full-content
		// license scanning when the content is text, otherwise list only.
		return p.fallbackScan(task, res)
	}
	if err != nil {
		logrus.Warnf("%s failed on %s: %v", adapter.Name(), task.display, err)
		res.Err = err.Error()
		return res
	}

	res.License = finding.License
	res.Confidence = finding.Confidence
	res.Metadata = finding.Metadata
	return res
}

func (p *pipeline) fallbackScan(task fileTask, res result.FileResult) result.FileResult {
	header, err := detect.SniffHeader(task.path)
	if err != nil || detect.IsBinary(header) {
		return res
	}
	finding, err := p.adapters[detect.KindText].Scan(task.path)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.License = finding.License
	res.Confidence = finding.Confidence
	return res
}
