// Package statedb is the local SQLite state of continu: the sealed session
// and the history of backup and restore runs.
package statedb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dmitrijs2005/continu/internal/dbx"
	"github.com/dmitrijs2005/continu/internal/filex"
	"github.com/dmitrijs2005/continu/internal/statedb/metadata"
	"github.com/dmitrijs2005/continu/internal/statedb/runs"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store bundles the database handle with its repositories.
type Store struct {
	db       *sql.DB
	Metadata metadata.Repository
	Runs     runs.Repository
}

// RunMigrations brings db up to the latest schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate state db: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the state database at path and migrates
// it. ":memory:" gives a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	db, err := dbx.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:       db,
		Metadata: metadata.NewSQLiteRepository(db),
		Runs:     runs.NewSQLiteRepository(db),
	}, nil
}

// DB exposes the handle for transactions spanning repositories.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
