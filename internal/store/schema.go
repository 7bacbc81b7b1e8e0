package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"entgo.io/ent/dialect"
	"github.com/pressly/goose/v3"
)

const (
	tableMastery  = "mastery_states"
	tableAttempts = "attempts"
	tableReviews  = "review_items"
	tableEvents   = "mastery_events"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrate applies pending migrations and returns the schema version.
func (s *Store) migrate(ctx context.Context) (int64, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return 0, err
	}
	d := goose.DialectSQLite3
	if s.dialect == dialect.Postgres {
		d = goose.DialectPostgres
	}
	p, err := goose.NewProvider(d, s.db, fsys)
	if err != nil {
		return 0, fmt.Errorf("migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	return p.GetDBVersion(ctx)
}
