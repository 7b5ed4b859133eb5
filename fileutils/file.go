package fileutils

import (
	"errors"
	"io/fs"
	"os"
)

// Exists reports whether something exists at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// IsDir returns nil if path is an existing directory.
func IsDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "stat", Path: path, Err: errors.New("not a directory")}
	}
	return nil
}

// VerifyWritable returns nil if a file can be created in dirPath.
func VerifyWritable(dirPath string) error {
	f, err := os.CreateTemp(dirPath, ".write-probe-*")
	if err != nil {
		return err
	}
	return errors.Join(f.Close(), os.Remove(f.Name()))
}
