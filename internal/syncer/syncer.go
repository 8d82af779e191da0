// Package syncer walks the local cellar and interpreter trees and uploads
// every archive missing from the bucket. Items are processed one at a time
// and a failing item never stops the run.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/open-edge-platform/cellar-sync/internal/archive"
	"github.com/open-edge-platform/cellar-sync/internal/blobstore"
	"github.com/open-edge-platform/cellar-sync/internal/naming"
	"github.com/open-edge-platform/cellar-sync/internal/receipt"
	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
)

// ErrInvalidToken is returned by SyncOne for a malformed item argument.
var ErrInvalidToken = errors.New("invalid item")

// Options configures a Syncer.
type Options struct {
	// Cellar is the directory holding <name>/<version> kegs.
	Cellar string
	// RubiesRoot is the directory holding one entry per interpreter version.
	RubiesRoot string
	Resolver   naming.Resolver
	Store      blobstore.Store
	Archiver   archive.Archiver
	// DryRun stops each pipeline before the archive step.
	DryRun bool
	// Progress shows a progress bar during full enumerations.
	Progress bool
	// Logger defaults to logger.Logger().
	Logger *zap.SugaredLogger
}

// Syncer runs the package and interpreter pipelines.
type Syncer struct {
	cellar     string
	rubiesRoot string
	resolver   naming.Resolver
	store      blobstore.Store
	archiver   archive.Archiver
	dryRun     bool
	progress   bool
	log        *zap.SugaredLogger
	report     *Report
}

// New creates a Syncer.
func New(opts Options) (*Syncer, error) {
	if opts.Store == nil {
		return nil, errors.New("syncer: blob store is required")
	}
	if opts.Archiver == nil {
		return nil, errors.New("syncer: archiver is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Logger()
	}
	return &Syncer{
		cellar:     opts.Cellar,
		rubiesRoot: opts.RubiesRoot,
		resolver:   opts.Resolver,
		store:      opts.Store,
		archiver:   opts.Archiver,
		dryRun:     opts.DryRun,
		progress:   opts.Progress,
		log:        log,
		report:     &Report{},
	}, nil
}

// Report returns the results recorded so far.
func (s *Syncer) Report() *Report { return s.report }

// SyncAll syncs every package and then every interpreter. An enumeration
// failure on one side does not prevent the other.
func (s *Syncer) SyncAll(ctx context.Context) error {
	pkgErr := s.SyncPackages(ctx)
	if pkgErr != nil {
		s.log.Errorf("Package sync aborted: %v", pkgErr)
	}
	rubyErr := s.SyncInterpreters(ctx)
	if rubyErr != nil {
		s.log.Errorf("Interpreter sync aborted: %v", rubyErr)
	}
	return errors.Join(pkgErr, rubyErr)
}

// SyncPackages runs the package pipeline for every <name>/<version> in the
// cellar.
func (s *Syncer) SyncPackages(ctx context.Context) error {
	refs, err := s.listPackages()
	if err != nil {
		return err
	}
	s.log.Infof("Found %d kegs in %s", len(refs), s.cellar)

	bar := s.newBar(len(refs), "packages")
	for _, ref := range refs {
		s.describe(bar, ref)
		s.SyncPackage(ctx, ref.Name, ref.Version)
		s.step(bar)
	}
	s.finish(bar)
	return nil
}

// SyncInterpreters runs the interpreter pipeline for every version under the
// rubies root. Symlinked aliases are skipped.
func (s *Syncer) SyncInterpreters(ctx context.Context) error {
	versions, err := s.listInterpreters()
	if err != nil {
		return err
	}
	s.log.Infof("Found %d interpreters in %s", len(versions), s.rubiesRoot)

	bar := s.newBar(len(versions), "interpreters")
	for _, v := range versions {
		s.describe(bar, naming.Ref{Version: v})
		s.SyncInterpreter(ctx, v)
		s.step(bar)
	}
	s.finish(bar)
	return nil
}

// SyncOne syncs a single item. A token of the form name/version selects a
// package; anything else is an interpreter version.
func (s *Syncer) SyncOne(ctx context.Context, token string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, fmt.Errorf("%w: empty argument", ErrInvalidToken)
	}
	if name, version, ok := strings.Cut(token, "/"); ok {
		if !validComponent(name) || !validComponent(version) {
			return Result{}, fmt.Errorf("%w: %q is not of the form name/version", ErrInvalidToken, token)
		}
		return s.SyncPackage(ctx, name, version), nil
	}
	if !validComponent(token) {
		return Result{}, fmt.Errorf("%w: %q is not a version", ErrInvalidToken, token)
	}
	return s.SyncInterpreter(ctx, token), nil
}

// validComponent reports whether part names a single directory entry.
func validComponent(part string) bool {
	return part != "" && part != "." && part != ".." && !strings.ContainsAny(part, `/\`)
}

// SyncPackage runs the package pipeline for one keg.
func (s *Syncer) SyncPackage(ctx context.Context, name, version string) Result {
	ref := naming.Ref{Name: name, Version: version}
	res := Result{Kind: naming.Package, Ref: ref, Key: s.resolver.Package(name, version)}
	return s.record(s.runPackage(ctx, res))
}

// SyncInterpreter runs the interpreter pipeline for one version.
func (s *Syncer) SyncInterpreter(ctx context.Context, version string) Result {
	ref := naming.Ref{Version: version}
	res := Result{Kind: naming.Interpreter, Ref: ref, Key: s.resolver.Interpreter(version)}
	return s.record(s.runInterpreter(ctx, res))
}

func (s *Syncer) runPackage(ctx context.Context, res Result) Result {
	if done, r := s.checkExists(ctx, res); done {
		return r
	}

	rcpt, err := receipt.Load(receipt.Path(s.cellar, res.Ref.Name, res.Ref.Version))
	if err != nil {
		return failed(res, err)
	}
	if d := receipt.Evaluate(rcpt); !d.Archive {
		res.Outcome = SkippedIneligible
		res.Reason = strings.ReplaceAll(d.Reason, "<formula>", res.Ref.Name)
		s.log.Infof("Skipping %s: %s", res.Ref, res.Reason)
		return res
	}

	return s.upload(ctx, res, s.cellar, res.Ref.String())
}

func (s *Syncer) runInterpreter(ctx context.Context, res Result) Result {
	if done, r := s.checkExists(ctx, res); done {
		return r
	}
	return s.upload(ctx, res, s.rubiesRoot, res.Ref.Version)
}

// checkExists probes the store. It reports done when the pipeline must stop,
// either because the key is taken or because the probe failed.
func (s *Syncer) checkExists(ctx context.Context, res Result) (bool, Result) {
	exists, err := s.store.Exists(ctx, res.Key)
	if err != nil {
		return true, failed(res, err)
	}
	if exists {
		s.log.Infof("Skipping %s: %s already exists", res.Ref, res.Key)
		res.Outcome = SkippedExists
		return true, res
	}
	return false, res
}

// upload archives sourceDir/entry and puts it under res.Key. The temporary
// archive is removed whatever the upload outcome.
func (s *Syncer) upload(ctx context.Context, res Result, sourceDir, entry string) Result {
	if s.dryRun {
		s.log.Infof("Would upload %s to %s", res.Ref, res.Key)
		res.Outcome = Planned
		return res
	}

	s.log.Infof("Archiving %s", res.Ref)
	blob, err := s.archiver.Archive(ctx, sourceDir, entry)
	if err != nil {
		return failed(res, err)
	}
	defer func() {
		if err := blob.Close(); err != nil {
			s.log.Warnf("Removing temporary archive %s failed: %v", blob.Path(), err)
		}
	}()

	s.log.Infof("Uploading %s (%s) to %s", res.Ref, humanize.Bytes(uint64(blob.Size())), res.Key)
	if err := s.store.Put(ctx, res.Key, blob, blob.Size()); err != nil {
		return failed(res, err)
	}

	s.log.Infof("Uploaded %s", res.Key)
	res.Outcome = Uploaded
	return res
}

func failed(res Result, err error) Result {
	res.Outcome = Errored
	res.Err = err
	return res
}

func (s *Syncer) record(res Result) Result {
	if res.Outcome == Errored {
		s.log.Errorf("Syncing %s %s failed: %v", res.Kind, res.Ref, res.Err)
	}
	s.report.add(res)
	return res
}

// listPackages returns every <name>/<version> directory pair in the cellar.
// An unreadable formula directory is recorded as a failed item.
func (s *Syncer) listPackages() ([]naming.Ref, error) {
	names, err := os.ReadDir(s.cellar)
	if err != nil {
		return nil, fmt.Errorf("listing cellar %s: %w", s.cellar, err)
	}

	var refs []naming.Ref
	for _, n := range names {
		if !n.IsDir() {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(s.cellar, n.Name()))
		if err != nil {
			s.record(failed(Result{Kind: naming.Package, Ref: naming.Ref{Name: n.Name()}},
				fmt.Errorf("listing versions: %w", err)))
			continue
		}
		for _, v := range versions {
			if !v.IsDir() {
				continue
			}
			refs = append(refs, naming.Ref{Name: n.Name(), Version: v.Name()})
		}
	}
	return refs, nil
}

// listInterpreters returns the interpreter version directories. A missing
// root means nothing is installed.
func (s *Syncer) listInterpreters() ([]string, error) {
	entries, err := os.ReadDir(s.rubiesRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Infof("No interpreters installed in %s", s.rubiesRoot)
			return nil, nil
		}
		return nil, fmt.Errorf("listing interpreters in %s: %w", s.rubiesRoot, err)
	}

	var versions []string
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink != 0 {
			s.log.Debugf("Skipping alias %s", e.Name())
			continue
		}
		if !e.IsDir() {
			continue
		}
		versions = append(versions, e.Name())
	}
	return versions, nil
}

func (s *Syncer) newBar(total int, what string) *progressbar.ProgressBar {
	if !s.progress || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetDescription("syncing "+what),
		progressbar.OptionShowCount(),
	)
}

func (s *Syncer) describe(bar *progressbar.ProgressBar, ref naming.Ref) {
	if bar != nil {
		bar.Describe(fmt.Sprintf("syncing %s", ref))
	}
}

func (s *Syncer) step(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func (s *Syncer) finish(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
