package ziparchiver

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/asset"
	"github.com/stupid-simple/tsbundle/bundle"
	"github.com/stupid-simple/tsbundle/fileutils"
	"github.com/stupid-simple/tsbundle/ziparchiver/zipwriter"
)

// Owner and group read/write.
const bundlePerm fs.FileMode = 0660

// ErrCorruptArchive is returned for an existing bundle that cannot be read.
// The bundle is left as is.
var ErrCorruptArchive = errors.New("corrupt archive")

var errMixedBundles = errors.New("batch spans several bundles")

// Result of storing one capture.
type Result int

const (
	Added Result = iota + 1
	AlreadyPresent
)

func (r Result) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyPresent:
		return "already-present"
	default:
		return "none"
	}
}

// Pending is a capture and the place it resolves to.
type Pending struct {
	Asset    asset.Asset
	Location bundle.Location
}

// Outcome of storing one capture of a batch. Exactly one of Result and Err
// is set.
type Outcome struct {
	Pending
	Result Result
	Err    error
}

// StoreAsset inserts a single capture into the bundle at loc.
// See StoreAssets.
func StoreAsset(
	ctx context.Context,
	a asset.Asset,
	loc bundle.Location,
	logger zerolog.Logger,
	opts ...StoreOption,
) (Result, error) {
	out := StoreAssets(ctx, []Pending{{Asset: a, Location: loc}}, logger, opts...)[0]
	return out.Result, out.Err
}

// StoreAssets inserts captures that all resolve to the same bundle. The bundle
// lock is held for the whole read, check and write sequence, each capture is
// checked against the bundle, and the bundle is rewritten at most once for
// the captures that must be written. Entries are stored without compression.
//
// ErrLockHeld, *StaleEntryError and ErrCorruptArchive are per capture
// failures: the bundle is left untouched for those captures.
func StoreAssets(
	ctx context.Context,
	batch []Pending,
	logger zerolog.Logger,
	opts ...StoreOption,
) []Outcome {
	o := storeOptions{}
	for _, applyOpts := range opts {
		applyOpts(&o)
	}

	outcomes := make([]Outcome, len(batch))
	for i, p := range batch {
		outcomes[i].Pending = p
	}
	if len(batch) == 0 {
		return outcomes
	}

	bundlePath := batch[0].Location.BundlePath
	for _, p := range batch[1:] {
		if p.Location.BundlePath != bundlePath {
			failPending(outcomes, fmt.Errorf("%w: %s and %s", errMixedBundles, bundlePath, p.Location.BundlePath))
			return outcomes
		}
	}
	logger = logger.With().Str("bundle", bundlePath).Logger()

	if o.dryRun {
		failPending(outcomes, storeBatch(ctx, bundlePath, outcomes, logger, o))
		return outcomes
	}

	err := WithLock(bundlePath, func() error {
		return storeBatch(ctx, bundlePath, outcomes, logger, o)
	})
	failPending(outcomes, err)
	return outcomes
}

// failPending sets err on the outcomes not decided yet.
func failPending(outcomes []Outcome, err error) {
	if err == nil {
		return
	}
	for i := range outcomes {
		if outcomes[i].Result == 0 && outcomes[i].Err == nil {
			outcomes[i].Err = err
		}
	}
}

func storeBatch(ctx context.Context, bundlePath string, outcomes []Outcome, logger zerolog.Logger, o storeOptions) error {
	var existing []*zip.File
	if fileutils.Exists(bundlePath) {
		r, err := zip.OpenReader(bundlePath)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, bundlePath, err)
		}
		defer func() {
			_ = r.Close()
		}()
		existing = r.File
	}

	// Read only pass first, so that bundles holding every capture are not rewritten.
	var toWrite []int
	for i := range outcomes {
		p := outcomes[i].Pending
		if !o.force {
			verdict, err := checkFiles(existing, p.Asset, p.Location.EntryName)
			if err != nil {
				outcomes[i].Err = err
				continue
			}
			if verdict == Redundant {
				outcomes[i].Result = AlreadyPresent
				continue
			}
		}
		toWrite = append(toWrite, i)
	}

	if o.dryRun {
		for _, i := range toWrite {
			logger.Debug().Object("asset", outcomes[i].Asset).Msg("would add capture")
			outcomes[i].Result = Added
		}
		return nil
	}
	if len(toWrite) == 0 {
		return nil
	}

	if removed, err := zipwriter.RemoveStaleTemps(bundlePath); err != nil {
		logger.Warn().Err(err).Msg("could not remove leftover temporary bundles")
	} else if removed > 0 {
		logger.Info().Int("removed", removed).Msg("removed leftover temporary bundles")
	}

	// A capture failing halfway leaves a partial entry behind, so the rewrite
	// is started over without it.
	for len(toWrite) > 0 {
		archived, broken, err := rewriteBundle(bundlePath, existing, outcomes, toWrite, logger)
		if broken >= 0 {
			outcomes[broken].Err = err
			toWrite = slices.DeleteFunc(toWrite, func(i int) bool { return outcomes[i].Err != nil })
			continue
		}
		if err != nil {
			return err
		}

		for _, i := range toWrite {
			a, ok := archived[i]
			if !ok {
				continue
			}
			outcomes[i].Result = Added
			if o.registerAssets != nil {
				if err := o.registerAssets.Register(ctx, a); err != nil {
					logger.Error().Err(err).Object("asset", a).Msg("could not register archived capture")
				}
			}
		}
		return nil
	}
	return nil
}

// rewriteBundle writes the bundle anew with its existing entries followed by
// the captures at toWrite. Captures that cannot be opened get their error set
// and are left out. When a capture fails after its entry was started, nothing
// is committed and its index is returned as broken.
func rewriteBundle(
	bundlePath string,
	existing []*zip.File,
	outcomes []Outcome,
	toWrite []int,
	logger zerolog.Logger,
) (archived map[int]asset.ArchivedAsset, broken int, err error) {
	replaced := map[string]*zip.File{}
	for _, i := range toWrite {
		replaced[outcomes[i].Location.EntryName] = nil
	}

	zipFile := zipwriter.NewAtomicZipFile(bundlePath, bundlePerm)
	defer func() {
		if err := zipFile.Close(); err != nil {
			logger.Warn().Err(err).Msg("could not discard temporary bundle")
		}
	}()

	for _, f := range existing {
		if _, ok := replaced[f.Name]; ok {
			// Copied back below if the replacement cannot be read.
			replaced[f.Name] = f
			continue
		}
		if err := zipFile.Copy(f); err != nil {
			return nil, -1, fmt.Errorf("could not copy entry %s: %w", f.Name, err)
		}
	}

	archived = map[int]asset.ArchivedAsset{}
	for _, i := range toWrite {
		p := outcomes[i].Pending
		entryLogger := logger.With().Str("entry", p.Location.EntryName).Logger()

		reader, err := os.Open(p.Asset.Path())
		if err != nil {
			outcomes[i].Err = err
			if old := replaced[p.Location.EntryName]; old != nil {
				if err := zipFile.Copy(old); err != nil {
					return nil, -1, fmt.Errorf("could not copy entry %s: %w", old.Name, err)
				}
			}
			continue
		}

		if old := replaced[p.Location.EntryName]; old != nil {
			entryLogger.Warn().Msg("replacing existing entry")
		}
		a, err := writeAsset(p, reader, zipFile, entryLogger)
		if err != nil {
			return nil, i, err
		}
		archived[i] = a
	}

	if len(archived) == 0 {
		return archived, -1, nil
	}
	if err := zipFile.Commit(); err != nil {
		return nil, -1, err
	}
	logger.Debug().Int("entries", len(existing)-countReplaced(replaced)+len(archived)).Int("added", len(archived)).Msg("bundle written")
	return archived, -1, nil
}

func countReplaced(replaced map[string]*zip.File) int {
	var n int
	for _, f := range replaced {
		if f != nil {
			n++
		}
	}
	return n
}

// writeAsset adds the capture read from reader as a stored entry. reader is closed.
func writeAsset(p Pending, reader *os.File, zipFile *zipwriter.ZipFile, logger zerolog.Logger) (asset.ArchivedAsset, error) {
	a := p.Asset
	startTime := time.Now()
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close capture file")
		}
		tookSeconds := time.Since(startTime).Seconds()
		logger.Debug().Object("asset", a).Float64("seconds", tookSeconds).Msg("archived capture")
	}()

	header := &zip.FileHeader{
		Name:               p.Location.EntryName,
		Method:             zip.Store,
		Modified:           a.ModTime(),
		UncompressedSize64: uint64(a.Size()),
	}
	header.SetMode(0644)

	w, err := zipFile.CreateHeader(header)
	if err != nil {
		return nil, err
	}

	// Write to zip as well as compute hash.
	h, n, err := fileutils.ComputeHash(io.TeeReader(reader, w))
	if err != nil {
		return nil, err
	}
	// A capture still being written would leave a short entry behind.
	if n != a.Size() {
		return nil, fmt.Errorf("capture changed while archiving: read %d bytes, expected %d", n, a.Size())
	}

	return &zipAsset{
		path:       a.Path(),
		name:       a.Name(),
		timestamp:  a.Timestamp(),
		bundlePath: p.Location.BundlePath,
		entryName:  p.Location.EntryName,
		hash:       h,
		size:       a.Size(),
		modTime:    a.ModTime(),
	}, nil
}
