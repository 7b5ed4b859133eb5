package zipwriter

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// NewAtomicZipFile returns a zip writer helper for path.
// The archive is built in a temporary file in the same directory, opened upon
// first write, and only replaces path on Commit. Readers of path never see a
// partially written archive.
func NewAtomicZipFile(path string, perm os.FileMode) *ZipFile {
	return &ZipFile{
		path: path,
		perm: perm,
	}
}

type ZipFile struct {
	path      string
	perm      os.FileMode
	init      bool
	committed bool
	file      *os.File
	writer    *zip.Writer
}

// Path of the final archive.
func (z *ZipFile) Path() string {
	return z.path
}

// CreateHeader creates a new zip entry in the zip file.
func (z *ZipFile) CreateHeader(fh *zip.FileHeader) (io.Writer, error) {
	if err := z.open(); err != nil {
		return nil, err
	}
	return z.writer.CreateHeader(fh)
}

// Copy appends the raw, still compressed, content of an entry of another archive.
func (z *ZipFile) Copy(f *zip.File) error {
	if err := z.open(); err != nil {
		return err
	}
	return z.writer.Copy(f)
}

// Commit finishes the archive and moves it over the final path.
func (z *ZipFile) Commit() error {
	if !z.init {
		return errors.New("nothing written")
	}
	if z.committed {
		return nil
	}

	tmpName := z.file.Name()
	err := z.writer.Close()
	if err == nil {
		err = z.file.Chmod(z.perm)
	}
	if err == nil {
		err = z.file.Sync()
	}
	err = errors.Join(err, z.file.Close())
	z.init = false
	if err != nil {
		return errors.Join(err, os.Remove(tmpName))
	}

	if err := os.Rename(tmpName, z.path); err != nil {
		return errors.Join(fmt.Errorf("could not replace archive: %w", err), os.Remove(tmpName))
	}
	z.committed = true
	return nil
}

// Close discards the temporary archive if it was not committed.
func (z *ZipFile) Close() error {
	if !z.init {
		return nil
	}
	defer func() {
		z.init = false
	}()
	tmpName := z.file.Name()
	err := errors.Join(z.writer.Close(), z.file.Close())
	return errors.Join(err, os.Remove(tmpName))
}

func (z *ZipFile) open() error {
	if z.init {
		return nil
	}
	if z.committed {
		return errors.New("archive already committed")
	}
	var err error
	z.file, err = os.CreateTemp(filepath.Dir(z.path), tempPrefix(z.path)+"*")
	if err != nil {
		return err
	}
	z.writer = zip.NewWriter(z.file)
	z.init = true
	return nil
}

func tempPrefix(path string) string {
	return "." + filepath.Base(path) + ".tmp-"
}

// RemoveStaleTemps deletes the temporary archives of path left behind by a
// process that died before Commit. It must only be called while no other
// writer of path can be running, that is with the archive lock held.
func RemoveStaleTemps(path string) (int, error) {
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return 0, err
	}

	prefix := tempPrefix(path)
	var removed int
	var errs error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(filepath.Dir(path), e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = errors.Join(errs, err)
			continue
		}
		removed++
	}
	return removed, errs
}
