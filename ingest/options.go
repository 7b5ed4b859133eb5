package ingest

import "github.com/stupid-simple/tsbundle/ziparchiver"

type options struct {
	dryRun       bool
	force        bool
	removeSource bool
	maxFileSize  int64
	register     ziparchiver.RegisterArchivedAssets
}

type Option func(o *options)

func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

// Insert captures without checking the bundles for an existing copy.
func WithForce(force bool) Option {
	return func(o *options) {
		o.force = force
	}
}

// Delete source files once the bundle is known to hold them.
func WithRemoveSource(removeSource bool) Option {
	return func(o *options) {
		o.removeSource = removeSource
	}
}

// Skip captures larger than size bytes. Zero means no limit.
func WithMaxFileSize(size int64) Option {
	return func(o *options) {
		o.maxFileSize = size
	}
}

func WithRegister(register ziparchiver.RegisterArchivedAssets) Option {
	return func(o *options) {
		o.register = register
	}
}
