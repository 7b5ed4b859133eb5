package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/timestamp"
)

var (
	ErrNotRegular = errors.New("not a regular file")
	ErrNotCapture = errors.New("no capture timestamp in file name")
)

func NewFromFS(path string, info fs.FileInfo) (Asset, error) {
	mode := info.Mode()
	if !mode.IsRegular() {
		return nil, ErrNotRegular
	}

	ts, ok := timestamp.Extract(info.Name())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCapture, info.Name())
	}

	asset := &fsAsset{
		path:      path,
		info:      info,
		timestamp: ts,
	}

	return asset, nil
}

type fsAsset struct {
	path      string
	info      fs.FileInfo
	timestamp string
}

// Name implements Asset.
func (a *fsAsset) Name() string {
	return a.info.Name()
}

// Size implements Asset.
func (a *fsAsset) Size() int64 {
	return a.info.Size()
}

// ModTime implements Asset.
func (a *fsAsset) ModTime() time.Time {
	return a.info.ModTime()
}

// Timestamp implements Asset.
func (a *fsAsset) Timestamp() string {
	return a.timestamp
}

// MarshalZerologObject implements Asset.
func (a *fsAsset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", a.path)
	e.Str("name", a.info.Name())
	e.Int64("size", a.info.Size())
}

// Path implements Asset.
func (a *fsAsset) Path() string {
	return a.path
}
