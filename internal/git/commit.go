package git

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// ExtractTickets extracts issue keys from text using the given compiled regex
func ExtractTickets(text string, ticketRegex *regexp.Regexp) []string {
	if ticketRegex == nil {
		return nil
	}

	matches := ticketRegex.FindAllStringSubmatch(text, -1)

	ticketSet := make(map[string]bool)
	for _, match := range matches {
		if len(match) > 1 {
			ticket := strings.ToUpper(match[1])
			ticketSet[ticket] = true
		}
	}

	// Convert to sorted slice
	tickets := make([]string, 0, len(ticketSet))
	for ticket := range ticketSet {
		tickets = append(tickets, ticket)
	}
	sort.Strings(tickets)

	return tickets
}

// Source reads commit history from a local clone
type Source struct {
	repoPath    string
	fetch       bool
	ticketRegex *regexp.Regexp
	log         *zap.SugaredLogger
}

// NewSource creates a Source over the clone at repoPath. When fetch is set the watched
// branch is fetched from origin before each read.
func NewSource(repoPath string, fetch bool, ticketRegex *regexp.Regexp, log *zap.SugaredLogger) *Source {
	return &Source{
		repoPath:    repoPath,
		fetch:       fetch,
		ticketRegex: ticketRegex,
		log:         log.Named("git"),
	}
}

// CommitsSince returns the commits reachable from branch whose committer time is at or after since
func (s *Source) CommitsSince(ctx context.Context, branch string, since time.Time) ([]models.CommitInfo, error) {
	if s.fetch {
		if err := FetchBranches(ctx, s.repoPath, []string{branch}); err != nil {
			return nil, err
		}
	}

	repo, err := git.PlainOpen(s.repoPath)
	if err != nil {
		return nil, err
	}

	head, err := resolveBranch(repo, branch)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head, Since: &since})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var commits []models.CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		message := strings.TrimSpace(c.Message)
		info := models.NewCommitInfo(c.Hash.String(), message, ExtractTickets(message, s.ticketRegex))
		info.Branch = branch
		info.AuthorName = c.Author.Name
		info.AuthorEmail = c.Author.Email
		info.CommittedAt = c.Committer.When
		commits = append(commits, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debugw("read commits", "branch", branch, "since", since, "count", len(commits))
	return commits, nil
}
