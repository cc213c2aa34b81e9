package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/continu/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// runMigrations is a seam for tests; sqlmock cannot drive goose.
var runMigrations = func(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// PostgresRecorder writes entries straight into the project database.
type PostgresRecorder struct {
	db dbx.DBTX
}

func NewPostgresRecorder(db dbx.DBTX) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// OpenPostgres connects to dsn with the pgx driver and migrates the backups
// table. The caller closes the returned *sql.DB.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecorder, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping ledger db: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewPostgresRecorder(db), db, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO backups (run_id, user_id, file_name, file_size, backup_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, e.RunID, e.UserID, e.FileName, e.FileSize, e.BackupDate); err != nil {
		return fmt.Errorf("insert backup %s: %w", e.FileName, err)
	}
	return nil
}

func (r *PostgresRecorder) List(ctx context.Context, userID string) ([]Entry, error) {
	query := `
		SELECT run_id, user_id, file_name, file_size, backup_date
		FROM backups
		WHERE user_id = $1
		ORDER BY backup_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select backups: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.UserID, &e.FileName, &e.FileSize, &e.BackupDate); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return out, nil
}
