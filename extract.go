package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/ziparchiver"
)

func extractCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Extract.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	destPath := args.Extract.Dest

	startTime := time.Now()
	logger.Info().Str("dest", destPath).Int("bundles", len(args.Extract.Bundles)).Msg("starting extract")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			logger.Info().Str("dest", destPath).Float64("seconds", tookSeconds).Msg("extract cancelled")
		} else {
			logger.Info().Str("dest", destPath).Float64("seconds", tookSeconds).Msg("extract done")
		}
	}()

	return ziparchiver.Extract(
		ctx,
		args.Extract.Bundles,
		destPath,
		logger.With().Str("dest", destPath).Logger(),
		ziparchiver.WithExtractDryRun(args.Extract.DryRun),
		ziparchiver.WithExtractOverwrite(args.Extract.Overwrite),
	)
}
