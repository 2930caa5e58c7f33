package ledger

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"
)

// CommitSource lists commits on a branch
type CommitSource interface {
	CommitsSince(ctx context.Context, branch string, since time.Time) ([]models.CommitInfo, error)
}

type PopulateOptions struct {
	Branch string
	// KeyPattern selects the commits worth keeping
	KeyPattern *regexp.Regexp
	// Lookback is used when the ledger is empty
	Lookback time.Duration
	Now      func() time.Time
}

type PopulateResult struct {
	Since    time.Time
	Fetched  int
	Matched  int
	Inserted int
}

// Populate reads commits newer than the highest known commit (or within the lookback
// window for an empty ledger), keeps those referencing an issue key and records them
// oldest first. Windows may overlap with earlier runs; duplicates are ignored.
func (l *Ledger) Populate(ctx context.Context, src CommitSource, opts PopulateOptions) (PopulateResult, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var res PopulateResult
	latest, err := l.HighestKnownCommit(ctx)
	if err != nil {
		return res, err
	}
	if latest != nil {
		res.Since = latest.CommittedAt
	} else {
		res.Since = now().Add(-opts.Lookback)
	}

	commits, err := src.CommitsSince(ctx, opts.Branch, res.Since)
	if err != nil {
		return res, fmt.Errorf("fetch commits on %s: %w", opts.Branch, err)
	}
	res.Fetched = len(commits)

	var matched []models.CommitInfo
	for _, c := range commits {
		if opts.KeyPattern != nil && !opts.KeyPattern.MatchString(c.Message) {
			continue
		}
		c.Message = models.SanitizeCommitMessage(c.Message)
		if c.Branch == "" {
			c.Branch = opts.Branch
		}
		matched = append(matched, c)
	}
	res.Matched = len(matched)

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CommittedAt.Before(matched[j].CommittedAt)
	})

	for _, c := range matched {
		inserted, err := l.Record(ctx, c)
		if err != nil {
			return res, err
		}
		if inserted {
			res.Inserted++
		}
	}

	l.log.Infow("ledger populated",
		"branch", opts.Branch, "since", res.Since,
		"fetched", res.Fetched, "matched", res.Matched, "inserted", res.Inserted)
	return res, nil
}
