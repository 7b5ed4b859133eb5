package ziparchiver

import (
	"time"

	"github.com/rs/zerolog"
)

type zipAsset struct {
	path       string
	name       string
	timestamp  string
	bundlePath string
	entryName  string
	hash       uint64
	size       int64
	modTime    time.Time
}

// BundlePath implements asset.ArchivedAsset.
func (z *zipAsset) BundlePath() string {
	return z.bundlePath
}

// EntryName implements asset.ArchivedAsset.
func (z *zipAsset) EntryName() string {
	return z.entryName
}

// Hash implements asset.ArchivedAsset.
func (z *zipAsset) Hash() uint64 {
	return z.hash
}

// MarshalZerologObject implements asset.Asset.
func (z *zipAsset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", z.path)
	e.Str("name", z.name)
	e.Uint64("hash", z.hash)
	e.Int64("size", z.size)
	e.Str("bundle", z.bundlePath)
	e.Str("entry", z.entryName)
}

// ModTime implements asset.Asset.
func (z *zipAsset) ModTime() time.Time {
	return z.modTime
}

// Name implements asset.Asset.
func (z *zipAsset) Name() string {
	return z.name
}

// Path implements asset.Asset.
func (z *zipAsset) Path() string {
	return z.path
}

// Size implements asset.Asset.
func (z *zipAsset) Size() int64 {
	return z.size
}

// Timestamp implements asset.Asset.
func (z *zipAsset) Timestamp() string {
	return z.timestamp
}
