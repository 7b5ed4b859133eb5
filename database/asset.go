package database

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CatalogEntry is a recorded capture. It implements asset.ArchivedAsset.
type CatalogEntry struct {
	record *Entry
}

func (d CatalogEntry) BundlePath() string {
	return d.record.BundlePath
}

func (d CatalogEntry) EntryName() string {
	return d.record.Name
}

func (d CatalogEntry) Camera() string {
	return d.record.Bundle.Camera
}

func (d CatalogEntry) Hash() uint64 {
	return uint64(d.record.Hash)
}

func (d CatalogEntry) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", d.record.SourcePath)
	e.Str("entry", d.record.Name)
	e.Uint64("hash", uint64(d.record.Hash))
	e.Int64("size", d.record.Size)
	e.Str("bundle", d.record.BundlePath)
}

func (d CatalogEntry) ModTime() time.Time {
	return d.record.ModTime
}

// Name is the base name of the capture.
func (d CatalogEntry) Name() string {
	if i := strings.LastIndexByte(d.record.Name, '/'); i >= 0 {
		return d.record.Name[i+1:]
	}
	return d.record.Name
}

// Path is where the capture was read from.
func (d CatalogEntry) Path() string {
	return d.record.SourcePath
}

func (d CatalogEntry) Size() int64 {
	return d.record.Size
}

func (d CatalogEntry) Timestamp() string {
	return d.record.Timestamp
}

func (d CatalogEntry) ArchivedAt() time.Time {
	return d.record.UpdatedAt
}
