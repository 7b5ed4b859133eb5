package asset

import (
	"time"

	"github.com/rs/zerolog"
)

// Asset is a timestamped capture found on disk.
type Asset interface {
	zerolog.LogObjectMarshaler
	Path() string
	Name() string      // base name of the file
	Size() int64       // length in bytes
	ModTime() time.Time
	Timestamp() string // canonical YYYY_MM_DD_HH_MM_SS found in the name
}

// ArchivedAsset is a capture that has been written into a bundle.
type ArchivedAsset interface {
	Asset
	BundlePath() string // path of the bundle containing the capture
	EntryName() string  // member name inside the bundle
	Hash() uint64       // xxhash of the archived bytes
}
