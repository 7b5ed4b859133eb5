package database

import (
	"time"
)

type Bundle struct {
	Path      string `gorm:"primaryKey"`
	Camera    string `gorm:"index"`
	CreatedAt time.Time
}

type Entry struct {
	BundlePath string `gorm:"primaryKey"`
	Name       string `gorm:"primaryKey"`
	Bundle     Bundle `gorm:"foreignKey:BundlePath"`
	SourcePath string
	Timestamp  string `gorm:"index"`
	Hash       int64
	Size       int64
	ModTime    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Models lists the tables to migrate.
func Models() []any {
	return []any{&Bundle{}, &Entry{}}
}
