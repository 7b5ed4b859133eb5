package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/asset"
	"github.com/stupid-simple/tsbundle/bundle"
	"github.com/stupid-simple/tsbundle/fileutils"
	"github.com/stupid-simple/tsbundle/timestamp"
	"github.com/stupid-simple/tsbundle/ziparchiver"
)

var (
	// ErrMissingDirectory is returned before any work when the output or a
	// camera directory cannot be used.
	ErrMissingDirectory = errors.New("missing directory")
	// ErrInterrupted is returned when the context was cancelled mid walk.
	// The bundle being written when it happened was completed.
	ErrInterrupted = errors.New("interrupted")
)

// Stats counts the per capture outcomes of a run.
type Stats struct {
	Added   int // written into a bundle
	Present int // already held by its bundle
	Skipped int // filtered out, or bundle locked by another process
	Failed  int // stale entry, unreadable bundle or I/O error
}

func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("added", s.Added)
	e.Int("present", s.Present)
	e.Int("skipped", s.Skipped)
	e.Int("failed", s.Failed)
}

type run struct {
	params      Params
	granularity bundle.Granularity
	extensions  mapset.Set[string]
	opts        options
	logger      zerolog.Logger
	stats       Stats
}

// Run archives the captures of every camera directory into bundles under the
// output directory. Per capture failures are logged and counted, they do not
// stop the run.
func Run(ctx context.Context, params Params, opts ...Option) (Stats, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	g, err := params.Validate()
	if err != nil {
		return Stats{}, err
	}
	if err := checkDirectories(params, o.dryRun); err != nil {
		return Stats{}, err
	}

	r := &run{
		params:      params,
		granularity: g,
		extensions:  bundle.AllowedExtensions(params.Format),
		opts:        o,
		logger:      params.Logger,
	}

	startTime := time.Now()
	r.logger.Info().
		Strs("cameras", params.CameraDirs).
		Str("output", params.OutputDir).
		Stringer("granularity", g).
		Str("format", bundle.NormalizeFormat(params.Format)).
		Bool("dry_run", o.dryRun).
		Msg("starting bundling")

	err = r.walk(ctx)
	r.logger.Info().
		Object("stats", r.stats).
		Float64("seconds", time.Since(startTime).Seconds()).
		Bool("interrupted", errors.Is(err, ErrInterrupted)).
		Msg("done")
	return r.stats, err
}

func checkDirectories(params Params, dryRun bool) error {
	if err := fileutils.IsDir(params.OutputDir); err != nil {
		return fmt.Errorf("%w: output: %v", ErrMissingDirectory, err)
	}
	if !dryRun {
		if err := fileutils.VerifyWritable(params.OutputDir); err != nil {
			return fmt.Errorf("%w: output must be writable: %v", ErrMissingDirectory, err)
		}
	}
	for _, dir := range params.CameraDirs {
		if err := fileutils.IsDir(dir); err != nil {
			return fmt.Errorf("%w: camera: %v", ErrMissingDirectory, err)
		}
	}
	return nil
}

// Captures of one bundle are written together, up to this many at a time.
const maxBatchSize = 500

func (r *run) walk(ctx context.Context) error {
	for _, dir := range r.params.CameraDirs {
		if ctx.Err() != nil {
			return ErrInterrupted
		}

		camera := cameraName(dir)
		logger := r.logger.With().Str("camera", camera).Logger()
		candidates, err := asset.ScanDirectory(dir, logger)
		if err != nil {
			// Checked up front, so the directory vanished since.
			logger.Error().Err(err).Str("dir", dir).Msg("could not scan camera directory")
			continue
		}

		// Consecutive captures bound for the same bundle share one write.
		var batch []ziparchiver.Pending
		for c := range candidates {
			p, ok := r.prepare(camera, c, logger)
			if ok {
				if len(batch) > 0 && batch[0].Location.BundlePath != p.Location.BundlePath {
					r.flush(ctx, batch, logger)
					batch = batch[:0]
				}
				batch = append(batch, p)
				if len(batch) == maxBatchSize {
					r.flush(ctx, batch, logger)
					batch = batch[:0]
				}
			}
			if ctx.Err() != nil {
				// Captures collected but not written yet are left for the next run.
				return ErrInterrupted
			}
		}
		r.flush(ctx, batch, logger)
	}
	return nil
}

// prepare filters a candidate and resolves its bundle. ok is false when the
// candidate was counted as skipped or failed.
func (r *run) prepare(camera string, c asset.Candidate, logger zerolog.Logger) (p ziparchiver.Pending, ok bool) {
	logger = logger.With().Str("path", c.Path).Logger()

	if !r.accepts(c) {
		logger.Trace().Msg("skipped: filtered out")
		r.stats.Skipped++
		return p, false
	}

	ts, err := timestamp.Parse(c.Timestamp)
	if err != nil {
		logger.Warn().Err(err).Msg("skipped: malformed timestamp")
		r.stats.Skipped++
		return p, false
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		logger.Error().Err(err).Msg("skipped: could not stat capture")
		r.stats.Failed++
		return p, false
	}
	if r.opts.maxFileSize > 0 && info.Size() > r.opts.maxFileSize {
		logger.Info().Int64("size", info.Size()).Msg("skipped: larger than maximum file size")
		r.stats.Skipped++
		return p, false
	}
	a, err := asset.NewFromFS(c.Path, info)
	if err != nil {
		logger.Warn().Err(err).Msg("skipped: not a capture")
		r.stats.Skipped++
		return p, false
	}

	loc, err := bundle.Resolve(r.params.OutputDir, camera, c.Name, ts, r.params.Format, r.granularity)
	if err != nil {
		logger.Error().Err(err).Msg("skipped: could not resolve bundle")
		r.stats.Failed++
		return p, false
	}
	return ziparchiver.Pending{Asset: a, Location: loc}, true
}

// flush stores a batch of captures bound for the same bundle and accounts
// for each outcome.
func (r *run) flush(ctx context.Context, batch []ziparchiver.Pending, logger zerolog.Logger) {
	if len(batch) == 0 {
		return
	}
	bundlePath := batch[0].Location.BundlePath

	if !r.opts.dryRun {
		if err := os.MkdirAll(filepath.Dir(bundlePath), 0770); err != nil {
			logger.Error().Err(err).Str("bundle", bundlePath).Int("captures", len(batch)).Msg("skipped: could not create bundle directory")
			r.stats.Failed += len(batch)
			return
		}
	}

	storeOpts := []ziparchiver.StoreOption{
		ziparchiver.WithDryRun(r.opts.dryRun),
		ziparchiver.WithForce(r.opts.force),
	}
	if r.opts.register != nil {
		storeOpts = append(storeOpts, ziparchiver.WithRegisterArchivedAssets(r.opts.register))
	}
	for _, out := range ziparchiver.StoreAssets(ctx, batch, logger, storeOpts...) {
		r.account(out, logger.With().Str("path", out.Asset.Path()).Logger())
	}
}

func (r *run) account(out ziparchiver.Outcome, logger zerolog.Logger) {
	loc := out.Location

	var stale *ziparchiver.StaleEntryError
	switch {
	case errors.As(out.Err, &stale):
		logger.Error().Object("stale", stale).Str("bundle", loc.BundlePath).Msg("skipped: archived copy differs from source")
		r.stats.Failed++
		return
	case errors.Is(out.Err, ziparchiver.ErrLockHeld):
		logger.Warn().Err(out.Err).Msg("skipped: bundle locked")
		r.stats.Skipped++
		return
	case out.Err != nil:
		logger.Error().Err(out.Err).Str("bundle", loc.BundlePath).Msg("skipped: could not archive capture")
		r.stats.Failed++
		return
	}

	switch out.Result {
	case ziparchiver.Added:
		logger.Info().Str("bundle", loc.BundlePath).Str("entry", loc.EntryName).Msg("added")
		r.stats.Added++
	case ziparchiver.AlreadyPresent:
		logger.Info().Str("bundle", loc.BundlePath).Msg("already present")
		r.stats.Present++
	}

	if r.opts.removeSource && !r.opts.dryRun {
		if err := os.Remove(out.Asset.Path()); err != nil {
			logger.Error().Err(err).Msg("could not remove archived capture")
			return
		}
		logger.Debug().Msg("removed archived capture")
	}
}

// accepts applies the name based filters.
func (r *run) accepts(c asset.Candidate) bool {
	if c.Timestamp == "" {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(c.Name), "."))
	if !r.extensions.Contains(ext) {
		return false
	}
	return timestamp.InRange(c.Timestamp, r.params.StartDate, r.params.EndDate)
}
