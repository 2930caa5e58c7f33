package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"
)

// Commits is a commit source over a fixed branch history
type Commits struct {
	mu      sync.Mutex
	History []models.CommitInfo
	Err     error
	// Since records the window start of every fetch
	Since []time.Time
}

func (c *Commits) CommitsSince(_ context.Context, _ string, since time.Time) ([]models.CommitInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Since = append(c.Since, since)
	if c.Err != nil {
		return nil, c.Err
	}
	var out []models.CommitInfo
	for _, ci := range c.History {
		if !ci.CommittedAt.Before(since) {
			out = append(out, ci)
		}
	}
	return out, nil
}
