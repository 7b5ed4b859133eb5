package database

type findEntriesOptions struct {
	limit      int
	camera     string
	bundlePath string
}

type FindEntriesOption func(*findEntriesOptions)

// Limit the number of entries returned.
func WithLimit(limit int) FindEntriesOption {
	return func(o *findEntriesOptions) {
		o.limit = limit
	}
}

// Only entries of bundles of this camera.
func WithCamera(camera string) FindEntriesOption {
	return func(o *findEntriesOptions) {
		o.camera = camera
	}
}

// Only entries of this bundle.
func WithBundle(path string) FindEntriesOption {
	return func(o *findEntriesOptions) {
		o.bundlePath = path
	}
}
