package ziparchiver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/stupid-simple/tsbundle/bundle"
)

// ErrLockHeld means another process is mutating the bundle.
// The capture should be retried on a later run.
var ErrLockHeld = errors.New("bundle is locked")

// Lock is an exclusive claim on a bundle, materialized as a zero-byte
// <bundle>.lock marker next to it.
type Lock struct {
	path string
}

// AcquireLock creates the marker for bundlePath. It never waits: if the
// marker already exists ErrLockHeld is returned. A marker left behind by a
// crashed process must be removed by hand.
func AcquireLock(bundlePath string) (*Lock, error) {
	path := bundle.LockPath(bundlePath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0660)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, path)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create lock: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Join(err, os.Remove(path))
	}
	return &Lock{path: path}, nil
}

func (l *Lock) Path() string {
	return l.path
}

// Release removes the marker.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}

// WithLock runs fn while holding the lock of bundlePath.
// The lock is released on every exit path of fn, panics included.
func WithLock(bundlePath string, fn func() error) (err error) {
	lock, err := AcquireLock(bundlePath)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			err = errors.Join(err, fmt.Errorf("could not release lock: %w", releaseErr))
		}
	}()

	return fn()
}
