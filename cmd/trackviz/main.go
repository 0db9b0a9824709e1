package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/trackviz/internal/config"
	"github.com/ironsheep/trackviz/internal/imaging"
	"github.com/ironsheep/trackviz/internal/overlay"
	"github.com/ironsheep/trackviz/internal/pipeline"
	"github.com/ironsheep/trackviz/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	program := filepath.Base(os.Args[0])

	opts, err := config.Parse(os.Args[1:])
	switch {
	case errors.Is(err, config.ErrVersion):
		fmt.Printf("%s %s\n", program, Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case errors.Is(err, config.ErrHelp):
		fmt.Print(config.Usage(program))
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "%s: %v\n\n", program, err)
		fmt.Fprint(os.Stderr, config.Usage(program))
		os.Exit(2)
	}

	logger := initLogger(opts.LogLevel)
	logger.WithFields(logrus.Fields{
		"version": Version,
		"image":   opts.ImagePath,
		"width":   opts.WidthMM,
	}).Info("Starting trackviz")

	if err := run(opts, logger); err != nil {
		logger.WithError(err).Fatal("trackviz failed")
	}
}

func run(opts *config.Options, logger *logrus.Logger) error {
	ref, err := imaging.NewImageCache().LoadReference(opts.ImagePath)
	if err != nil {
		return fmt.Errorf("unable to load image %q: %w", opts.ImagePath, err)
	}

	model, err := pipeline.Build(ref, opts.PipelineConfig(), logger)
	if err != nil {
		return err
	}

	palette, err := opts.Palette()
	if err != nil {
		return err
	}

	view := overlay.NewViewState(ref.Size(), opts.Window)
	view.ShowTemplates = opts.ShowTemplates
	view.ShowFeatures = opts.ShowFeatures
	view.ShowBins = opts.ShowBins

	logger.WithFields(logrus.Fields{
		"marker": opts.MarkerConfig(),
		"vconf":  opts.VideoConfig,
		"cpara":  opts.CameraParams,
	}).Debug("Tracker configuration")

	srv := session.New(model, view, session.Options{
		MarkerConfig: opts.MarkerConfig(),
		RansacThresh: opts.RansacThresh,
		Palette:      palette,
	}, logger)

	if opts.SnapshotPath != "" {
		return writeSnapshot(srv, opts.SnapshotPath, logger)
	}

	// stdout carries session responses; logs go to stderr.
	return srv.Run(os.Stdin, os.Stdout)
}

func writeSnapshot(srv *session.Server, path string, logger *logrus.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := srv.Snapshot(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	logger.WithField("path", path).Info("Snapshot written")
	return nil
}

// initLogger creates the stderr logger at the requested level
func initLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}
