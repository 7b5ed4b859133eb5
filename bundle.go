package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/database"
	"github.com/stupid-simple/tsbundle/ingest"
)

func bundleCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Bundle.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	params := ingest.Params{
		CameraDirs:  args.Bundle.CameraDirs,
		OutputDir:   args.Bundle.Output,
		Format:      args.Bundle.Format,
		Granularity: args.Bundle.Granularity,
		StartDate:   args.Bundle.Start,
		EndDate:     args.Bundle.End,
		Logger:      logger,
	}
	// Fail on bad arguments before the database is created.
	if _, err := params.Validate(); err != nil {
		return err
	}

	opts := []ingest.Option{
		ingest.WithDryRun(args.Bundle.DryRun),
		ingest.WithForce(args.Bundle.Force),
		ingest.WithRemoveSource(args.Bundle.RemoveSource),
		ingest.WithMaxFileSize(args.Bundle.MaxFileSize.Size),
	}
	if args.Bundle.Database != "" {
		db, err := database.Open(args.Bundle.Database, logger, args.Bundle.DryRun)
		if err != nil {
			return fmt.Errorf("could not open database: %w", err)
		}
		opts = append(opts, ingest.WithRegister(db))
	}

	_, err := ingest.Run(ctx, params, opts...)
	return err
}
