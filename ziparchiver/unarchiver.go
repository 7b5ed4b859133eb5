package ziparchiver

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/fileutils"
)

var (
	errSkippedSameFile = errors.New("skipped same file")
	errSkippedModified = errors.New("skipped modified file")
	errUnsafeEntryName = errors.New("entry name escapes destination")
)

// Extract restores the captures of the given bundles under destDir, using the
// entry names as relative paths. Existing identical files are skipped, and
// existing different files are kept unless WithExtractOverwrite is set.
//
// A bundle that cannot be opened does not stop the others; the errors of
// all such bundles are joined in the returned error.
func Extract(ctx context.Context, bundlePaths []string, destDir string, logger zerolog.Logger, opts ...ExtractOption) error {
	o := extractOptions{}
	for _, applyOpts := range opts {
		applyOpts(&o)
	}

	var restored int
	defer func() {
		if ctx.Err() != nil {
			logger.Info().Int("restored", restored).Msg("cancelled extract")
		} else if restored == 0 {
			logger.Info().Msg("no captures restored")
		} else {
			logger.Info().Int("restored", restored).Msg("done restoring captures")
		}
	}()

	var errs []error
	for _, bundlePath := range bundlePaths {
		if ctx.Err() != nil {
			break
		}
		n, err := extractBundle(ctx, bundlePath, destDir, logger.With().Str("bundle", bundlePath).Logger(), o)
		restored += n
		if err != nil {
			logger.Warn().Err(err).Str("bundle", bundlePath).Msg("could not read bundle")
			errs = append(errs, fmt.Errorf("%s: %w", bundlePath, err))
		}
	}

	return errors.Join(errs...)
}

func extractBundle(ctx context.Context, bundlePath string, destDir string, logger zerolog.Logger, o extractOptions) (int, error) {
	reader, err := zip.OpenReader(bundlePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	var restored int
	for _, f := range reader.File {
		if ctx.Err() != nil {
			return restored, nil
		}
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		entryLogger := logger.With().Str("entry", f.Name).Logger()

		target, err := entryTarget(destDir, f.Name)
		if err != nil {
			entryLogger.Warn().Err(err).Msg("could not restore capture")
			continue
		}

		size, err := restoreEntry(f, target, entryLogger, o.overwrite, o.dryRun)
		if errors.Is(err, errSkippedSameFile) {
			entryLogger.Info().Str("path", target).Msg("file already present, skipping")
		} else if errors.Is(err, errSkippedModified) {
			entryLogger.Info().Str("path", target).Msg("found existing file. The file has been modified, skipping")
		} else if err != nil {
			entryLogger.Warn().Err(err).Msg("could not restore capture")
		} else {
			entryLogger.Debug().Str("path", target).Int64("bytes", size).Msg("restored capture")
			restored++
		}
	}
	return restored, nil
}

func entryTarget(destDir string, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", errUnsafeEntryName, name)
	}
	return filepath.Join(destDir, rel), nil
}

func restoreEntry(f *zip.File, target string, logger zerolog.Logger, overwrite bool, dryRun bool) (int64, error) {
	if _, err := os.Stat(target); err == nil {
		logger.Debug().Str("path", target).Msg("found existing file")

		same, err := sameContent(f, target)
		if err != nil {
			return 0, err
		}
		if same {
			return 0, errSkippedSameFile
		}
		if !overwrite {
			return 0, errSkippedModified
		}

		logger.Info().Str("path", target).Msg("found existing file, overwriting")
		if dryRun {
			return 0, nil
		}
		if err := os.Remove(target); err != nil {
			return 0, err
		}
		return writeEntry(f, target)
	} else if os.IsNotExist(err) {
		logger.Debug().Str("path", target).Msg("file not found, creating")
		if dryRun {
			return 0, nil
		}
		if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
			return 0, err
		}
		return writeEntry(f, target)
	} else {
		return 0, err
	}
}

func sameContent(f *zip.File, target string) (bool, error) {
	info, err := os.Stat(target)
	if err != nil {
		return false, err
	}
	if info.Size() != int64(f.UncompressedSize64) {
		return false, nil
	}

	storedFileHash, err := fileutils.ComputeFileHash(target)
	if err != nil {
		return false, err
	}

	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer func() {
		_ = r.Close()
	}()
	entryHash, _, err := fileutils.ComputeHash(r)
	if err != nil {
		return false, err
	}

	return storedFileHash == entryHash, nil
}

func writeEntry(f *zip.File, target string) (int64, error) {
	r, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = r.Close()
	}()

	w, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, r)
	if closeErr := w.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return n, err
	}

	// Keep the capture time, so that bundling the restored file again is a no-op.
	if modTime := entryModTime(&f.FileHeader); !modTime.IsZero() {
		if err := os.Chtimes(target, modTime, modTime); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Header ID of the extended timestamp extra field.
const extTimeExtraID = 0x5455

// entryModTime is the modification time of an entry. Without an extended
// timestamp field only the MS-DOS wall clock is known, which the bundler
// wrote in local time.
func entryModTime(fh *zip.FileHeader) time.Time {
	if hasExtraField(fh.Extra, extTimeExtraID) {
		return fh.Modified
	}
	if fh.ModifiedDate == 0 && fh.ModifiedTime == 0 {
		return time.Time{}
	}
	return headerTimeIn(fh, time.Local)
}

func hasExtraField(extra []byte, id uint16) bool {
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if tag == id {
			return true
		}
		if 4+size > len(extra) {
			return false
		}
		extra = extra[4+size:]
	}
	return false
}
