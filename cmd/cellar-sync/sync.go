package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/cellar-sync/internal/archive"
	"github.com/open-edge-platform/cellar-sync/internal/blobstore"
	"github.com/open-edge-platform/cellar-sync/internal/config"
	"github.com/open-edge-platform/cellar-sync/internal/naming"
	"github.com/open-edge-platform/cellar-sync/internal/syncer"
	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
	"github.com/open-edge-platform/cellar-sync/internal/utils/system"
)

// Collaborator constructors, replaced in tests.
var (
	newStore = func(ctx context.Context, opts blobstore.Options) (blobstore.Store, error) {
		return blobstore.NewS3Store(ctx, opts)
	}
	newPlatformInfo = func(ctx context.Context) system.PlatformInfo {
		return system.NewHostInfo(ctx)
	}
	newArchiver = archive.New
)

// globalConfig is loaded by prepare before the command runs.
var globalConfig *config.GlobalConfig

// prepare loads the configuration and sets up logging.
func prepare(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if flags.Changed("compression") {
		cfg.Compression = compression
	}
	if flags.Changed("temp-dir") {
		cfg.TempDir = tempDir
	}
	if flags.Changed("report-dir") {
		cfg.ReportDir = reportDir
	}
	cfg.Progress = showProgress
	if level := resolveRequestedLogLevel(cmd); level != "" {
		cfg.Logging.Level = level
	}

	if _, err := logger.Setup(config.NewConfigHelpers(cfg).LogLevel()); err != nil {
		return err
	}
	globalConfig = cfg
	return nil
}

// executeSync handles the sync logic
func executeSync(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	cfg := globalConfig
	ctx := cmd.Context()

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			_ = cmd.Usage()
		}
		return err
	}
	helpers := config.NewConfigHelpers(cfg)

	platform := newPlatformInfo(ctx)
	osVersion, err := platform.OSVersion()
	if err != nil {
		return err
	}
	platformName, err := platform.Platform()
	if err != nil {
		return err
	}

	comp := helpers.Compression()
	resolver := naming.Resolver{
		OSVersion:   osVersion,
		Platform:    platformName,
		InstallRoot: cfg.HomebrewRoot,
		Extension:   comp.Extension(),
	}

	store, err := newStore(ctx, blobstore.Options{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}

	s, err := syncer.New(syncer.Options{
		Cellar:     helpers.CellarDir(),
		RubiesRoot: helpers.RubiesDir(),
		Resolver:   resolver,
		Store:      store,
		Archiver:   newArchiver(comp, helpers.TempDir()),
		DryRun:     cfg.DryRun,
		Progress:   progressEnabled(helpers, args),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	log.Infof("Syncing to s3://%s (%s, OS %s, %s)", cfg.Bucket, platformName, osVersion, comp.Extension())
	if cfg.DryRun {
		log.Infof("Dry run: nothing will be archived or uploaded")
	}

	var runErr error
	if len(args) == 1 {
		if _, err := s.SyncOne(ctx, args[0]); err != nil {
			return err
		}
	} else {
		runErr = s.SyncAll(ctx)
	}

	report := s.Report()
	log.Infof("Done: %s", report.Summary())
	if cfg.ReportDir != "" {
		writeReports(cfg.ReportDir, report)
	}
	return errors.Join(runErr, report.Err())
}

// progressEnabled reports whether a progress bar is drawn. It is only used
// for full runs, and not at debug level where log lines would tear it.
func progressEnabled(helpers *config.ConfigHelpers, args []string) bool {
	return helpers.ShowProgress() && len(args) == 0 && !helpers.IsDebugMode()
}

// writeReports records the uploaded keys and failed items for later
// inspection. Failing to write them does not fail the run.
func writeReports(dir string, report *syncer.Report) {
	log := logger.Logger()

	var failed []string
	for _, res := range report.Failed() {
		failed = append(failed, fmt.Sprintf("%s: %v", res.Ref, res.Err))
	}
	lists := []logger.StringListReport{
		{Title: "uploaded", Items: report.Keys(syncer.Uploaded)},
		{Title: "failed", Items: failed},
	}
	for _, l := range lists {
		path, err := l.WriteToFile(dir)
		if err != nil {
			log.Warnf("Writing %s report failed: %v", l.Title, err)
			continue
		}
		log.Debugf("Wrote %s report to %s", l.Title, path)
	}
}
