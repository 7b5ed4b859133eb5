package ziparchiver_test

import (
	"bytes"
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stupid-simple/tsbundle/fileutils"
	"github.com/stupid-simple/tsbundle/ziparchiver"
)

// commitCounter counts the bundle commits logged at debug level.
type commitCounter struct {
	buf bytes.Buffer
}

func (c *commitCounter) logger() zerolog.Logger {
	return zerolog.New(&c.buf).Level(zerolog.DebugLevel)
}

func (c *commitCounter) commits() int {
	return strings.Count(c.buf.String(), `"message":"bundle written"`)
}

func newBatch(t *testing.T, srcDir, outDir string, contents map[string]string) []ziparchiver.Pending {
	t.Helper()

	var batch []ziparchiver.Pending
	i := 0
	for _, name := range slices.Sorted(maps.Keys(contents)) {
		a := newCapture(t, srcDir, name, contents[name], captureTime.Add(time.Duration(i)*time.Minute))
		batch = append(batch, ziparchiver.Pending{Asset: a, Location: locationFor(t, outDir, a)})
		i++
	}
	return batch
}

func TestStoreAssets_CommitsOncePerBatch(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	batch := newBatch(t, srcDir, outDir, map[string]string{
		"GC01_2019_05_04_10_15_30.jpg": "one",
		"GC01_2019_05_04_10_16_30.jpg": "two",
		"GC01_2019_05_04_10_17_30.jpg": "three",
	})
	registry := &mockRegistry{}
	counter := &commitCounter{}

	outcomes := ziparchiver.StoreAssets(context.Background(), batch, counter.logger(),
		ziparchiver.WithRegisterArchivedAssets(registry))
	require.Len(t, outcomes, 3)
	for _, out := range outcomes {
		require.NoError(t, out.Err)
		assert.Equal(t, ziparchiver.Added, out.Result)
	}
	assert.Equal(t, 1, counter.commits())
	assert.Len(t, registry.assets, 3)
	assert.Len(t, readEntries(t, batch[0].Location.BundlePath), 3)
	assert.False(t, fileutils.Exists(batch[0].Location.LockPath()))

	// Nothing new: no commit at all.
	outcomes = ziparchiver.StoreAssets(context.Background(), batch, counter.logger())
	for _, out := range outcomes {
		require.NoError(t, out.Err)
		assert.Equal(t, ziparchiver.AlreadyPresent, out.Result)
	}
	assert.Equal(t, 1, counter.commits())
}

func TestStoreAssets_MixedOutcomes(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	kept := newCapture(t, srcDir, "GC01_2019_05_04_10_15_30.jpg", "kept", captureTime)
	keptLoc := locationFor(t, outDir, kept)
	_, err := ziparchiver.StoreAsset(context.Background(), kept, keptLoc, zerolog.Nop())
	require.NoError(t, err)

	stale := newCapture(t, srcDir, "GC01_2019_05_04_10_15_30.jpg", "kept but longer", captureTime)
	fresh := newCapture(t, srcDir, "GC01_2019_05_04_10_20_00.jpg", "fresh", captureTime)
	gone := newCapture(t, srcDir, "GC01_2019_05_04_10_25_00.jpg", "gone", captureTime)
	require.NoError(t, os.Remove(gone.Path()))

	counter := &commitCounter{}
	outcomes := ziparchiver.StoreAssets(context.Background(), []ziparchiver.Pending{
		{Asset: stale, Location: keptLoc},
		{Asset: fresh, Location: locationFor(t, outDir, fresh)},
		{Asset: gone, Location: locationFor(t, outDir, gone)},
	}, counter.logger())

	assert.ErrorIs(t, outcomes[0].Err, ziparchiver.ErrStaleEntry)
	assert.Equal(t, ziparchiver.Added, outcomes[1].Result)
	assert.ErrorIs(t, outcomes[2].Err, os.ErrNotExist)
	assert.Equal(t, 1, counter.commits())

	entries := readEntries(t, keptLoc.BundlePath)
	assert.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[keptLoc.EntryName])
}

func TestStoreAssets_SourceChangedRestartsWithoutIt(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	batch := newBatch(t, srcDir, outDir, map[string]string{
		"GC01_2019_05_04_10_15_30.jpg": "one",
		"GC01_2019_05_04_10_16_30.jpg": "two",
		"GC01_2019_05_04_10_17_30.jpg": "three",
	})
	// The asset still carries the old size.
	require.NoError(t, os.WriteFile(batch[1].Asset.Path(), []byte("two, grown"), 0644))

	counter := &commitCounter{}
	outcomes := ziparchiver.StoreAssets(context.Background(), batch, counter.logger())
	assert.Equal(t, ziparchiver.Added, outcomes[0].Result)
	assert.Error(t, outcomes[1].Err)
	assert.Zero(t, outcomes[1].Result)
	assert.Equal(t, ziparchiver.Added, outcomes[2].Result)
	assert.Equal(t, 1, counter.commits())

	entries := readEntries(t, batch[0].Location.BundlePath)
	assert.Equal(t, map[string]string{
		batch[0].Location.EntryName: "one",
		batch[2].Location.EntryName: "three",
	}, entries)
}

func TestStoreAssets_ForcedReplacementUnreadableKeepsEntry(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	a := newCapture(t, srcDir, "GC01_2019_05_04_10_15_30.jpg", "original", captureTime)
	loc := locationFor(t, outDir, a)
	_, err := ziparchiver.StoreAsset(context.Background(), a, loc, zerolog.Nop())
	require.NoError(t, err)

	other := newCapture(t, srcDir, "GC01_2019_05_04_10_20_00.jpg", "other", captureTime)
	require.NoError(t, os.Remove(a.Path()))

	outcomes := ziparchiver.StoreAssets(context.Background(), []ziparchiver.Pending{
		{Asset: a, Location: loc},
		{Asset: other, Location: locationFor(t, outDir, other)},
	}, zerolog.Nop(), ziparchiver.WithForce(true))
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, ziparchiver.Added, outcomes[1].Result)

	assert.Equal(t, "original", readEntries(t, loc.BundlePath)[loc.EntryName])
}

func TestStoreAssets_MixedBundlesRejected(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	a := newCapture(t, srcDir, "GC01_2019_05_04_10_15_30.jpg", "a", captureTime)
	loc := locationFor(t, outDir, a)
	elsewhere := loc
	elsewhere.BundlePath = filepath.Join(outDir, "other.jpg.zip")

	outcomes := ziparchiver.StoreAssets(context.Background(), []ziparchiver.Pending{
		{Asset: a, Location: loc},
		{Asset: a, Location: elsewhere},
	}, zerolog.Nop())
	for _, out := range outcomes {
		assert.Error(t, out.Err)
	}
	assert.False(t, fileutils.Exists(loc.BundlePath))
}

func TestStoreAssets_RemovesLeftoverTemps(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	a := newCapture(t, srcDir, "GC01_2019_05_04_10_15_30.jpg", "a", captureTime)
	loc := locationFor(t, outDir, a)

	leftover := filepath.Join(filepath.Dir(loc.BundlePath), "."+filepath.Base(loc.BundlePath)+".tmp-42")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0600))

	_, err := ziparchiver.StoreAsset(context.Background(), a, loc, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, fileutils.Exists(leftover))
}

func TestStoreAssets_Empty(t *testing.T) {
	assert.Empty(t, ziparchiver.StoreAssets(context.Background(), nil, zerolog.Nop()))
}
