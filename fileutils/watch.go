package fileutils

import (
	"context"
)

// WatchFile hashes the file at path on every tick and emits on the returned
// channel when the content changed since the last emission. Hash errors are
// reported to onErr and the previous content is kept as reference. The
// channel is closed when ctx is done or ticks stops.
func WatchFile(ctx context.Context, path string, ticks <-chan struct{}, onErr func(err error)) (<-chan struct{}, error) {
	lastHash, err := ComputeFileHash(path)
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
			}

			newHash, err := ComputeFileHash(path)
			if err != nil {
				onErr(err)
				continue
			}
			if newHash == lastHash {
				continue
			}
			lastHash = newHash

			select {
			case ch <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
