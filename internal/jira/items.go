package jira

import (
	"context"
	"fmt"

	"github.com/bbeale/GitTreasures/internal/models"

	"golang.org/x/sync/errgroup"
)

// WorkItems runs a saved filter and fetches every matching issue's full detail once,
// at most limit at a time. Issues that cannot be fetched are logged and skipped;
// only a failure to run the filter itself is returned. Items keep the filter's order.
func (c *Client) WorkItems(ctx context.Context, filterID string, rules Rules, limit int) ([]models.WorkItem, error) {
	issues, err := c.IssuesByFilter(ctx, filterID)
	if err != nil {
		return nil, fmt.Errorf("run filter %s: %w", filterID, err)
	}

	results := make([]*models.WorkItem, len(issues))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, is := range issues {
		g.Go(func() error {
			full, err := c.GetIssue(gctx, is.Key)
			if err != nil {
				c.log.Errorw("skipping work item", "key", is.Key, "error", err)
				return nil
			}
			if full == nil {
				c.log.Warnw("work item vanished during run", "key", is.Key)
				return nil
			}
			item := Parse(*full, rules)
			results[i] = &item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]models.WorkItem, 0, len(results))
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}
	return items, nil
}
