// Package main implements the Battle Chip Challenge ROM table extractor
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/bccextract/internal/cli"
	"github.com/retroenv/bccextract/internal/config"
	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/pipeline"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, extraction, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(logger, opts)
			usageErr.ShowUsage()
		} else {
			logger.Error("Invalid options", log.Err(err))
		}
		os.Exit(pipeline.ExitLoadFailure)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	printBanner(logger, opts)

	if opts.WriteConfig != "" {
		if err := config.SaveLayout(opts.WriteConfig, extraction); err != nil {
			logger.Error("Writing layout configuration failed", log.Err(err))
			os.Exit(pipeline.ExitLoadFailure)
		}
	}

	result, err := pipeline.New(logger).Execute(ctx, opts, extraction)
	if err != nil {
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
		} else {
			logger.Error("Extraction failed", log.Err(err))
		}
		os.Exit(pipeline.ExitLoadFailure)
	}

	os.Exit(result.ExitCode())
}

func printBanner(logger *log.Logger, opts options.Program) {
	if opts.Quiet {
		return
	}
	logger.Info("bccextract", log.String("version", buildinfo.Version(version, commit, date)))
}
