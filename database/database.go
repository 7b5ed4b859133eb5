package database

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/tsbundle/asset"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const iterateBatchSize = 50

// Database is the catalog of captures written into bundles.
type Database struct {
	Lock   sync.Mutex
	Cli    *gorm.DB
	Logger zerolog.Logger
	DryRun bool
}

// Register records an archived capture. Registering the same entry again
// updates the existing record.
func (d *Database) Register(ctx context.Context, a asset.ArchivedAsset) error {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	d.Logger.Debug().Object("asset", a).Msg("register archived capture")

	if d.DryRun {
		return nil
	}

	// Entry names start with the camera.
	camera, _, _ := strings.Cut(a.EntryName(), "/")
	return d.Cli.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Bundle{
			Path:   a.BundlePath(),
			Camera: camera,
		}).Error
		if err != nil {
			return fmt.Errorf("could not record bundle: %w", err)
		}

		err = tx.Omit("Bundle").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bundle_path"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"source_path", "timestamp", "hash", "size", "mod_time", "updated_at"}),
		}).Create(&Entry{
			BundlePath: a.BundlePath(),
			Name:       a.EntryName(),
			SourcePath: a.Path(),
			Timestamp:  a.Timestamp(),
			Hash:       int64(a.Hash()),
			Size:       a.Size(),
			ModTime:    a.ModTime(),
		}).Error
		if err != nil {
			return fmt.Errorf("could not record entry: %w", err)
		}
		return nil
	})
}

// FindEntries iterates recorded entries, oldest capture first.
func (d *Database) FindEntries(ctx context.Context, opts ...FindEntriesOption) (iter.Seq[CatalogEntry], error) {
	o := findEntriesOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(CatalogEntry) bool) {
		offset := 0
		remaining := o.limit
		for {
			thisBatchSize := iterateBatchSize
			if remaining > 0 {
				thisBatchSize = min(remaining, iterateBatchSize)
			}

			query := d.Cli.WithContext(ctx).
				Joins("Bundle").
				Order("entry.timestamp, entry.name").
				Limit(thisBatchSize).
				Offset(offset)
			if o.camera != "" {
				query = query.Where("Bundle.camera = ?", o.camera)
			}
			if o.bundlePath != "" {
				query = query.Where("entry.bundle_path = ?", o.bundlePath)
			}

			entries := []Entry{}
			d.Lock.Lock()
			err := query.Find(&entries).Error
			d.Lock.Unlock()
			if err != nil {
				d.Logger.Error().Err(err).Msg("error fetching entries from database")
				return
			}

			for i := range entries {
				if ctx.Err() != nil {
					return
				}
				if !yield(CatalogEntry{&entries[i]}) {
					return
				}
			}
			if len(entries) < thisBatchSize {
				return
			}
			if remaining > 0 {
				remaining -= thisBatchSize
				if remaining <= 0 {
					return
				}
			}
			offset += thisBatchSize
		}
	}, nil
}
