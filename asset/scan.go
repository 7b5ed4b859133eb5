package asset

import (
	"cmp"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/timestamp"
)

// Candidate is a file met during a scan. It has not been stat'ed nor opened.
type Candidate struct {
	Path      string
	Name      string
	Timestamp string // empty when the name carries no capture timestamp
}

// ScanDirectory walks dirPath bottom-up: the subdirectories of a directory are
// visited first, in lexical order, then its files ordered by capture timestamp.
// Files without a timestamp come last in their directory.
func ScanDirectory(dirPath string, logger zerolog.Logger) (iter.Seq[Candidate], error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dirPath)
	}

	return func(yield func(Candidate) bool) {
		var scanned int

		logger = logger.With().Str("dir", dirPath).Logger()
		logger.Debug().Msg("start scanning for captures")
		defer func() {
			logger.Debug().Int("scanned", scanned).Msg("done scanning captures")
		}()

		throttledLogger := logger.Sample(&zerolog.BurstSampler{
			Burst:  1,
			Period: 1 * time.Second,
		})

		walkPostOrder(dirPath, logger, func(c Candidate) bool {
			scanned++
			throttledLogger.Info().Int("scanned", scanned).Str("path", c.Path).Msg("scanning captures")
			return yield(c)
		})
	}, nil
}

// walkPostOrder returns false when the walk was stopped by yield.
func walkPostOrder(dirPath string, logger zerolog.Logger, yield func(Candidate) bool) bool {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", dirPath).Msg("could not scan path")
		return true
	}

	files := make([]Candidate, 0, len(entries))
	for _, d := range entries {
		path := filepath.Join(dirPath, d.Name())
		if d.IsDir() {
			if !walkPostOrder(path, logger, yield) {
				return false
			}
			continue
		}
		ts, _ := timestamp.Extract(d.Name())
		files = append(files, Candidate{Path: path, Name: d.Name(), Timestamp: ts})
	}

	// os.ReadDir sorts by name, which breaks timestamp ties.
	slices.SortStableFunc(files, compareCandidates)
	for _, c := range files {
		if !yield(c) {
			return false
		}
	}
	return true
}

func compareCandidates(a, b Candidate) int {
	switch {
	case a.Timestamp == "" && b.Timestamp == "":
		return 0
	case a.Timestamp == "":
		return 1
	case b.Timestamp == "":
		return -1
	}
	return cmp.Compare(a.Timestamp, b.Timestamp)
}
