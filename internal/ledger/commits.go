package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bbeale/GitTreasures/internal/models"
)

const commitColumns = `seq, hash, committed_at, branch, author_name, author_email, message`

// HighestKnownCommit returns the newest commit by committer time, or nil when the ledger is empty.
func (l *Ledger) HighestKnownCommit(ctx context.Context) (*models.CommitRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+commitColumns+` FROM commits ORDER BY committed_at DESC, seq DESC LIMIT 1`)
	rec, err := scanCommit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("highest known commit: %w", err)
	}
	return &rec, nil
}

// Record stores a commit. Its sequence index is one past the highest stored index.
// A hash that is already stored is left untouched and reported as not inserted.
func (l *Ledger) Record(ctx context.Context, c models.CommitInfo) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", c.ShortHash(), err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM commits`).Scan(&last); err != nil {
		return false, fmt.Errorf("record %s: read sequence: %w", c.ShortHash(), err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO commits (`+commitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (hash) DO NOTHING`,
		last+1, c.Hash, formatTime(c.CommittedAt), c.Branch, c.AuthorName, c.AuthorEmail, c.Message)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", c.ShortHash(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record %s: %w", c.ShortHash(), err)
	}
	if n == 0 {
		l.log.Debugw("commit already recorded", "hash", c.ShortHash())
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("record %s: commit: %w", c.ShortHash(), err)
	}
	return true, nil
}

// All returns every stored commit, newest first.
func (l *Ledger) All(ctx context.Context) ([]models.CommitRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+commitColumns+` FROM commits ORDER BY committed_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var out []models.CommitRecord
	for rows.Next() {
		rec, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("list commits: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IsInitialized reports whether the ledger holds at least one commit.
func (l *Ledger) IsInitialized(ctx context.Context) (bool, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits`).Scan(&n); err != nil {
		return false, fmt.Errorf("count commits: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommit(s scanner) (models.CommitRecord, error) {
	var (
		rec models.CommitRecord
		at  string
	)
	if err := s.Scan(&rec.Seq, &rec.Hash, &at, &rec.Branch, &rec.AuthorName, &rec.AuthorEmail, &rec.Message); err != nil {
		return rec, err
	}
	t, err := parseTime(at)
	if err != nil {
		return rec, fmt.Errorf("commit %s: bad timestamp %q: %w", rec.Hash, at, err)
	}
	rec.CommittedAt = t
	return rec, nil
}
