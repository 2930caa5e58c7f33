package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bbeale/GitTreasures/internal/models"
)

// SaveRun records the summary of a finished run
func (l *Ledger) SaveRun(ctx context.Context, s models.RunSummary) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, started_at, finished_at, dry_run, commits, items,
			created, moved, archived, skipped, failed, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Mode, formatTime(s.StartedAt), formatTime(s.FinishedAt), s.DryRun, s.Commits, s.Items,
		s.Created, s.Moved, s.Archived, s.Skipped, s.Failed, s.Error)
	if err != nil {
		return fmt.Errorf("save run %s: %w", s.ID, err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil if none was recorded
func (l *Ledger) LastRun(ctx context.Context) (*models.RunSummary, error) {
	var (
		s               models.RunSummary
		started, finish string
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, mode, started_at, finished_at, dry_run, commits, items,
			created, moved, archived, skipped, failed, error
		 FROM runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&s.ID, &s.Mode, &started, &finish, &s.DryRun, &s.Commits, &s.Items,
			&s.Created, &s.Moved, &s.Archived, &s.Skipped, &s.Failed, &s.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if s.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if s.FinishedAt, err = parseTime(finish); err != nil {
		return nil, err
	}
	return &s, nil
}
