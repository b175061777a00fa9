package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// goose keeps dialect and base FS in package globals.
var gooseMu sync.Mutex

// Migrate applies the embedded schema for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	gooseDialect, dir := "sqlite3", "migrations/sqlite"
	if s.dialect == DialectPostgres {
		gooseDialect, dir = "pgx", "migrations/postgres"
	}

	fsys, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}
