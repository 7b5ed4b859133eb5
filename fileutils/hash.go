package fileutils

import (
	"errors"
	"io"
	"os"

	"github.com/cespare/xxhash"
)

// ComputeHash returns the xxhash of everything read from r and the number of
// bytes read. r is not closed.
func ComputeHash(r io.Reader) (uint64, int64, error) {
	hash := xxhash.New()
	n, err := io.Copy(hash, r)
	if err != nil {
		return 0, n, err
	}
	return hash.Sum64(), n, nil
}

// ComputeFileHash returns the hash of the file at path.
func ComputeFileHash(path string) (hash uint64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	hash, _, err = ComputeHash(file)
	return hash, err
}
