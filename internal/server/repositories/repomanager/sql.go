package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/users"
)

// SQLRepositoryManager vends database/sql repositories. The same SQL runs on
// PostgreSQL and SQLite; only the migrations differ per driver.
type SQLRepositoryManager struct {
	driver string
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

// Tokens returns a tokens.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewSQLRepository(db)
}

// migrateUp is a seam for testing migrations.Up.
var migrateUp = func(ctx context.Context, db *sql.DB, driver string) (int, error) {
	return migrations.Up(ctx, db, driver)
}

// RunMigrations applies the embedded migrations of the manager's driver.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := migrateUp(ctx, db, m.driver); err != nil {
		return err
	}
	return nil
}

// NewRepositoryManager constructs a RepositoryManager for driver.
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	if _, _, err := migrations.ForDriver(driver); err != nil {
		return nil, fmt.Errorf("repository manager: %w", err)
	}
	return &SQLRepositoryManager{driver: driver}, nil
}
