package ziparchiver

import (
	"archive/zip"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/asset"
)

var ErrStaleEntry = errors.New("stale entry")

// Verdict is the outcome of comparing a capture with a bundle.
type Verdict int

const (
	MustWrite Verdict = iota // the capture must be inserted
	Redundant                // the bundle already holds an up to date copy
)

func (v Verdict) String() string {
	switch v {
	case MustWrite:
		return "must-write"
	case Redundant:
		return "redundant"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// StaleEntryError reports an archived copy that disagrees with its source.
// It is never resolved by overwriting the archived copy.
type StaleEntryError struct {
	Entry       string
	ArchiveSize int64
	ArchiveTime time.Time
	SourceSize  int64
	SourceTime  time.Time
}

func (e *StaleEntryError) Error() string {
	return fmt.Sprintf("%q is stale: archive %d bytes %s; filesystem %d bytes %s",
		e.Entry,
		e.ArchiveSize, e.ArchiveTime.Format(time.DateTime),
		e.SourceSize, e.SourceTime.Format(time.DateTime))
}

func (e *StaleEntryError) Is(target error) bool {
	return target == ErrStaleEntry
}

func (e *StaleEntryError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("entry", e.Entry)
	ev.Int64("archive_size", e.ArchiveSize)
	ev.Str("archive_human_size", units.HumanSize(float64(e.ArchiveSize)))
	ev.Str("archive_time", e.ArchiveTime.Format(time.DateTime))
	ev.Int64("source_size", e.SourceSize)
	ev.Str("source_human_size", units.HumanSize(float64(e.SourceSize)))
	ev.Str("source_time", e.SourceTime.Format(time.DateTime))
}

// CheckEntry decides whether a must be written into the bundle at bundlePath
// under entryName. A missing or unreadable bundle always needs the write.
// Otherwise the stored size and time are compared with the source, at the
// 2 second resolution of zip timestamps.
func CheckEntry(bundlePath string, a asset.Asset, entryName string, logger zerolog.Logger) (Verdict, error) {
	r, err := zip.OpenReader(bundlePath)
	if err != nil {
		logger.Debug().Err(err).Str("bundle", bundlePath).Msg("bundle not readable, capture must be written")
		return MustWrite, nil
	}
	defer func() {
		_ = r.Close()
	}()

	return checkFiles(r.File, a, entryName)
}

func checkFiles(files []*zip.File, a asset.Asset, entryName string) (Verdict, error) {
	var archived *zip.File
	for _, f := range files {
		// Later duplicates shadow earlier ones, as in most zip readers.
		if f.Name == entryName {
			archived = f
		}
	}
	if archived == nil {
		return MustWrite, nil
	}

	archiveTime := headerTime(&archived.FileHeader)
	sourceTime := zipResolution(a.ModTime())
	archiveSize := int64(archived.UncompressedSize64)

	if archiveSize != a.Size() || archiveTime.Before(sourceTime) {
		return MustWrite, &StaleEntryError{
			Entry:       entryName,
			ArchiveSize: archiveSize,
			ArchiveTime: archiveTime,
			SourceSize:  a.Size(),
			SourceTime:  sourceTime,
		}
	}
	return Redundant, nil
}

// zipResolution drops the location and rounds odd seconds down, giving the
// wall clock an MS-DOS timestamp can hold. The zip writer encodes the wall
// clock of the time it is given, so both sides compare in the same frame.
func zipResolution(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()&^1, 0, time.UTC)
}

// headerTime reads the MS-DOS date and time of an entry. The extended
// timestamp field is ignored since archives written by other tools lack it.
func headerTime(fh *zip.FileHeader) time.Time {
	return headerTimeIn(fh, time.UTC)
}

// headerTimeIn reads the MS-DOS wall clock of an entry in loc.
func headerTimeIn(fh *zip.FileHeader, loc *time.Location) time.Time {
	d, t := fh.ModifiedDate, fh.ModifiedTime
	return time.Date(
		int(d>>9)+1980,
		time.Month(d>>5&0xf),
		int(d&0x1f),
		int(t>>11),
		int(t>>5&0x3f),
		int(t&0x1f)*2,
		0,
		loc,
	)
}
