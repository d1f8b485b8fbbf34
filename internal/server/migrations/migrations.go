// Package migrations embeds the goose SQL migrations, one directory per
// dialect, and applies them through a goose Provider.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// ForDriver returns the goose dialect and migration files for a dbx driver name.
func ForDriver(driver string) (goose.Dialect, fs.FS, error) {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch driver {
	case dbx.DriverPostgres:
		dialect, dir = goose.DialectPostgres, "postgres"
	case dbx.DriverSQLite:
		dialect, dir = goose.DialectSQLite3, "sqlite"
	default:
		return "", nil, fmt.Errorf("no migrations for driver %q", driver)
	}

	sub, err := fs.Sub(Migrations, dir)
	if err != nil {
		return "", nil, err
	}
	return dialect, sub, nil
}

// Up applies every pending migration for driver and returns how many ran.
func Up(ctx context.Context, db *sql.DB, driver string) (int, error) {
	dialect, fsys, err := ForDriver(driver)
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("migrations: %w", err)
	}
	return len(results), nil
}
