package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/config"
	"github.com/stupid-simple/tsbundle/database"
	"github.com/stupid-simple/tsbundle/fileutils"
	"github.com/stupid-simple/tsbundle/ingest"
	"github.com/stupid-simple/tsbundle/scheduler"
	"github.com/stupid-simple/tsbundle/ziparchiver"
)

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Daemon.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	cfg, err := config.LoadFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	var register ziparchiver.RegisterArchivedAssets
	if args.Daemon.Database != "" {
		db, err := database.Open(args.Daemon.Database, logger, args.Daemon.DryRun)
		if err != nil {
			return fmt.Errorf("could not open database: %w", err)
		}
		register = db
	}

	scheduler := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	added := addBundleJobsFromConfig(ctx, scheduler, cfg, register, logger, args.Daemon.DryRun)
	if added == 0 {
		logger.Warn().Str("path", args.Daemon.Config).Msg("no enabled job in config")
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	startConfigFileWatcher(ctx, args.Daemon.Config, logger, when(ctx, ticker.C), func(cfg *config.Config) {
		scheduler.RemoveJobs()
		addBundleJobsFromConfig(ctx, scheduler, cfg, register, logger, args.Daemon.DryRun)
	})

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()

	return nil
}

// addBundleJobsFromConfig schedules the enabled jobs and returns how many were
// added. Two jobs never share a camera directory, their runs would contend
// for the same bundles.
func addBundleJobsFromConfig(
	ctx context.Context,
	scheduler *scheduler.Scheduler,
	cfg *config.Config,
	register ziparchiver.RegisterArchivedAssets,
	logger zerolog.Logger,
	dryRun bool,
) int {
	names := mapset.NewThreadUnsafeSet[string]()
	cameraDirs := mapset.NewThreadUnsafeSet[string]()

	var added int
	for _, cfgJob := range cfg.Jobs {
		cfgJob = cfgJob.WithDefaults()
		job, err := configToBundleJob(ctx, cfgJob, register, logger, dryRun)
		if err != nil {
			logger.Warn().AnErr("cause", err).Msg("skipping job")
			continue
		}

		if names.Contains(cfgJob.Name) {
			logger.Warn().Str("job", cfgJob.Name).Msg("skipping duplicate job name")
			continue
		}
		names.Add(cfgJob.Name)

		if shared := cameraDirs.Intersect(mapset.NewThreadUnsafeSet(cfgJob.CameraDirs...)); !shared.IsEmpty() {
			logger.Warn().Str("job", cfgJob.Name).Strs("camera_dirs", shared.ToSlice()).Msg("skipping job sharing camera directories")
			continue
		}
		cameraDirs.Append(cfgJob.CameraDirs...)

		if !cfgJob.Enable {
			logger.Info().Str("job", cfgJob.Name).Msg("skipping disabled job")
			continue
		}

		if err := scheduler.AddJob(cfgJob.Schedule, job); err != nil {
			logger.Error().Err(err).Str("job", cfgJob.Name).Msg("could not add bundle job")
			continue
		}
		added++

		logger.Info().
			Object("job", cfgJob).
			Msg("added bundle job")
	}
	return added
}

func configToBundleJob(
	ctx context.Context,
	cfgJob config.Job,
	register ziparchiver.RegisterArchivedAssets,
	logger zerolog.Logger,
	dryRun bool,
) (*bundleJob, error) {
	if err := cfgJob.Validate(); err != nil {
		return nil, err
	}

	logger = logger.With().Str("job", cfgJob.Name).Logger()
	params := ingest.Params{
		CameraDirs:  cfgJob.CameraDirs,
		OutputDir:   cfgJob.OutputDir,
		Format:      cfgJob.Format,
		Granularity: cfgJob.Granularity,
		StartDate:   cfgJob.StartDate,
		EndDate:     cfgJob.EndDate,
		Logger:      logger,
	}
	if _, err := params.Validate(); err != nil {
		return nil, fmt.Errorf("job %q: %w", cfgJob.Name, err)
	}

	opts := []ingest.Option{
		ingest.WithDryRun(dryRun),
		ingest.WithForce(cfgJob.Force),
		ingest.WithRemoveSource(cfgJob.RemoveSource),
		ingest.WithMaxFileSize(cfgJob.MaxFileSize.Size),
	}
	if register != nil {
		opts = append(opts, ingest.WithRegister(register))
	}

	return &bundleJob{
		ctx:    ctx,
		params: params,
		opts:   opts,
		logger: logger,
	}, nil
}

// startConfigFileWatcher calls onChanged with the reloaded config whenever the
// file changes. The returned channel is closed once watching stopped, either
// because ctx is done or ticks was closed.
func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticks <-chan struct{}, onChanged func(cfg *config.Config)) <-chan struct{} {
	done := make(chan struct{})
	logger.Info().Str("path", cfgPath).Msg("watching config file for changes")
	watcher, err := fileutils.WatchFile(ctx, cfgPath, ticks, func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch config file")
		close(done)
		return done
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher:
				if !ok {
					logger.Info().Str("path", cfgPath).Msg("stopped watching config file")
					return
				}
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
	return done
}

func when[T any](ctx context.Context, ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type bundleJob struct {
	ctx    context.Context
	params ingest.Params
	opts   []ingest.Option
	logger zerolog.Logger
}

func (b *bundleJob) Run() {
	if b.ctx.Err() != nil {
		return
	}
	_, err := ingest.Run(b.ctx, b.params, b.opts...)
	switch {
	case errors.Is(err, ingest.ErrInterrupted):
		b.logger.Info().Msg("bundle job interrupted")
	case err != nil:
		b.logger.Error().Err(err).Msg("bundle job failed")
	}
}
