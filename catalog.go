package main

import (
	"context"
	"fmt"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/database"
)

func catalogCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	db, err := database.Open(args.Catalog.Database, logger, false)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	opts := []database.FindEntriesOption{database.WithLimit(args.Catalog.Limit)}
	if args.Catalog.Camera != "" {
		opts = append(opts, database.WithCamera(args.Catalog.Camera))
	}
	if args.Catalog.Bundle != "" {
		opts = append(opts, database.WithBundle(args.Catalog.Bundle))
	}

	entries, err := db.FindEntries(ctx, opts...)
	if err != nil {
		return err
	}

	var count int
	var totalSize int64
	for e := range entries {
		count++
		totalSize += e.Size()
		logger.Info().
			Str("camera", e.Camera()).
			Str("timestamp", e.Timestamp()).
			Object("entry", e).
			Time("archived_at", e.ArchivedAt()).
			Msg("archived capture")
	}
	logger.Info().
		Int("count", count).
		Str("total_size", units.HumanSize(float64(totalSize))).
		Msg("done")
	return ctx.Err()
}
