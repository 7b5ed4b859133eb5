package ziparchiver

import (
	"context"

	"github.com/stupid-simple/tsbundle/asset"
)

type StoreOption func(o *storeOptions)

type storeOptions struct {
	dryRun         bool
	force          bool
	registerAssets RegisterArchivedAssets
}

// Decide and log, never touch the bundle nor its lock.
func WithDryRun(dryRun bool) StoreOption {
	return func(o *storeOptions) {
		o.dryRun = dryRun
	}
}

// Skip the staleness check and always insert the capture. An entry with the
// same name is replaced.
func WithForce(force bool) StoreOption {
	return func(o *storeOptions) {
		o.force = force
	}
}

type RegisterArchivedAssets interface {
	Register(ctx context.Context, a asset.ArchivedAsset) error
}

// Register the captures written into bundles.
func WithRegisterArchivedAssets(register RegisterArchivedAssets) StoreOption {
	return func(o *storeOptions) {
		o.registerAssets = register
	}
}

type ExtractOption func(o *extractOptions)

type extractOptions struct {
	dryRun    bool
	overwrite bool
}

func WithExtractDryRun(dryRun bool) ExtractOption {
	return func(o *extractOptions) {
		o.dryRun = dryRun
	}
}

// Replace existing files whose content differs from the archived copy.
func WithExtractOverwrite(overwrite bool) ExtractOption {
	return func(o *extractOptions) {
		o.overwrite = overwrite
	}
}
