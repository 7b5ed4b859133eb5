package ziparchiver_test

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stupid-simple/tsbundle/asset"
	"github.com/stupid-simple/tsbundle/bundle"
)

var captureTime = time.Date(2019, 5, 4, 10, 15, 30, 0, time.Local)

// newCapture writes a capture file and returns it as an asset.
func newCapture(t *testing.T, dir, name, content string, modTime time.Time) asset.Asset {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))

	return statCapture(t, path)
}

func statCapture(t *testing.T, path string) asset.Asset {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	a, err := asset.NewFromFS(path, info)
	require.NoError(t, err)
	return a
}

func locationFor(t *testing.T, outDir string, a asset.Asset) bundle.Location {
	t.Helper()

	loc, err := bundle.Resolve(outDir, "GC01", a.Name(), time.Date(2019, 5, 4, 10, 15, 30, 0, time.UTC), "jpg", bundle.Hour)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(loc.BundlePath), 0755))
	return loc
}

func readEntries(t *testing.T, bundlePath string) map[string]string {
	t.Helper()

	r, err := zip.OpenReader(bundlePath)
	require.NoError(t, err)
	defer r.Close()

	entries := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		buf, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = string(buf)
	}
	return entries
}

// writeBundle creates a bundle with a single entry holding content, with the given time.
func writeBundle(t *testing.T, bundlePath, entryName, content string, modTime time.Time) {
	t.Helper()

	f, err := os.Create(bundlePath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.CreateHeader(&zip.FileHeader{Name: entryName, Method: zip.Store, Modified: modTime})
	require.NoError(t, err)
	_, err = entry.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

type mockRegistry struct {
	mu     sync.Mutex
	assets []asset.ArchivedAsset
}

func (r *mockRegistry) Register(_ context.Context, a asset.ArchivedAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets = append(r.assets, a)
	return nil
}
