package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Queries slower than this are logged at warn level.
const slowQueryThreshold = 500 * time.Millisecond

// Open opens, creating it if needed, the SQLite catalog at path and migrates
// its tables. With dryRun no statement reaches the database.
func Open(path string, log zerolog.Logger, dryRun bool) (*Database, error) {
	cli, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: &gormLogger{parent: log},
		DryRun: dryRun,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := cli.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return &Database{
		Cli:    cli,
		Logger: log,
		DryRun: dryRun,
	}, nil
}

// gormLogger routes gorm messages to zerolog. Statements are logged at trace
// level unless they failed or were slow.
type gormLogger struct {
	parent zerolog.Logger
}

func (g *gormLogger) LogMode(lvl logger.LogLevel) logger.Interface {
	zl := zerolog.Disabled
	switch lvl {
	case logger.Info:
		zl = zerolog.InfoLevel
	case logger.Warn:
		zl = zerolog.WarnLevel
	case logger.Error:
		zl = zerolog.ErrorLevel
	}
	return &gormLogger{parent: g.parent.Level(zl)}
}

func (g *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	g.parent.Info().Msgf(msg, args...)
}

func (g *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	g.parent.Warn().Msgf(msg, args...)
}

func (g *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	g.parent.Error().Msgf(msg, args...)
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)

	var e *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		e = g.parent.Error().Err(err)
	case elapsed > slowQueryThreshold:
		e = g.parent.Warn().Bool("slow", true)
	default:
		e = g.parent.Trace()
	}

	e.Dur("elapsed", elapsed).Func(func(e *zerolog.Event) {
		sql, rows := fc()
		e.Str("sql", sql)
		e.Int64("rows_affected", rows)
	}).Msg("query")
}
