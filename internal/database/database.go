// Package database opens the GORM connection used by the service and the
// migration commands.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"socialhub/internal/logging"
)

const sqlitePrefix = "sqlite://"

// Options tune the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to url. A "sqlite://" prefix selects the sqlite dialect
// with foreign keys enabled; anything else is treated as a postgres DSN.
func Open(ctx context.Context, url string, opts Options, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialector, memory, err := Dialector(url)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.NewGormLogger(logger),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	switch {
	case memory:
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := Ping(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Debug("database connected", zap.String("dialect", dialector.Name()))
	return db, nil
}

// Dialector picks the GORM dialector for url and reports whether it is an
// in-memory sqlite database.
func Dialector(url string) (gorm.Dialector, bool, error) {
	if url == "" {
		return nil, false, fmt.Errorf("DATABASE_URL not set in environment or .env file")
	}

	if strings.HasPrefix(url, sqlitePrefix) {
		path := strings.TrimPrefix(url, sqlitePrefix)
		if path == "" {
			return nil, false, fmt.Errorf("sqlite url %q has no path", url)
		}
		memory := strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
		return sqlite.Open(withForeignKeys(path)), memory, nil
	}

	config, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, false, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	return postgres.New(postgres.Config{
		Conn:       stdlib.OpenDB(*config),
		DriverName: "pgx",
	}), false, nil
}

func withForeignKeys(path string) string {
	if strings.Contains(path, "_foreign_keys") || strings.Contains(path, "_fk=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
