package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Start(ctx context.Context, id string, kind Kind, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(kind), string(StatusRunning), at.UnixMilli())
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Finish(ctx context.Context, id string, o Outcome, at time.Time) error {
	msg := ""
	if o.Err != nil {
		msg = o.Err.Error()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_at = ?, files = ?, bytes = ?, failed = ?, error = ?
		WHERE id = ?
	`, string(o.Status), at.UnixMilli(), o.Files, int64(o.Bytes), o.Failed, msg, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, common.ErrNotFound)
	}
	return nil
}

const selectRun = `SELECT id, kind, status, started_at, finished_at, files, bytes, failed, error FROM runs`

func (r *SQLiteRepository) Last(ctx context.Context, kind Kind) (*Run, error) {
	row := r.db.QueryRowContext(ctx, selectRun+`
		WHERE kind = ? AND finished_at IS NOT NULL
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1`, string(kind))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last %s run: %w", kind, err)
	}
	return run, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run          Run
		kind, status string
		started      int64
		finished     sql.NullInt64
		bytes        int64
	)
	if err := s.Scan(&run.ID, &kind, &status, &started, &finished, &run.Files, &bytes, &run.Failed, &run.Error); err != nil {
		return nil, err
	}
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64)
	}
	run.Bytes = uint64(bytes)
	return &run, nil
}
