package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/bbeale/GitTreasures/internal/git"
	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// CheckAuth verifies gh CLI is authenticated
func CheckAuth(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "gh", "auth", "status")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not authenticated with GitHub CLI. Run 'gh auth login' first")
	}
	return nil
}

// apiCommit is the subset of the REST commit payload we read
type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
		Committer struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// runner executes gh and returns its stdout; swapped in tests
type runner func(ctx context.Context, args ...string) ([]byte, error)

func runGh(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gh %s failed: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Source reads commit history of a hosted repository through the gh CLI
type Source struct {
	repo        string
	ticketRegex *regexp.Regexp
	log         *zap.SugaredLogger
	run         runner
}

// NewSource creates a Source for repo given as "owner/name"
func NewSource(repo string, ticketRegex *regexp.Regexp, log *zap.SugaredLogger) *Source {
	return &Source{
		repo:        repo,
		ticketRegex: ticketRegex,
		log:         log.Named("github"),
		run:         runGh,
	}
}

// CommitsSince lists commits on branch committed at or after since, newest first
func (s *Source) CommitsSince(ctx context.Context, branch string, since time.Time) ([]models.CommitInfo, error) {
	output, err := s.run(ctx, "api", "-X", "GET",
		fmt.Sprintf("repos/%s/commits", s.repo),
		"-f", "sha="+branch,
		"-f", "since="+since.UTC().Format(time.RFC3339),
		"-f", "per_page=100",
		"--paginate",
	)
	if err != nil {
		return nil, err
	}

	raw, err := decodePages(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gh api commits output: %w", err)
	}

	commits := make([]models.CommitInfo, 0, len(raw))
	for _, c := range raw {
		message := strings.TrimSpace(c.Commit.Message)
		info := models.NewCommitInfo(c.SHA, message, git.ExtractTickets(message, s.ticketRegex))
		info.Branch = branch
		info.AuthorName = c.Commit.Author.Name
		info.AuthorEmail = c.Commit.Author.Email
		info.CommittedAt = c.Commit.Committer.Date
		commits = append(commits, info)
	}

	s.log.Debugw("read commits", "repo", s.repo, "branch", branch, "since", since, "count", len(commits))
	return commits, nil
}

// decodePages reads every JSON array gh printed; --paginate emits one array per page
func decodePages(output []byte) ([]apiCommit, error) {
	dec := json.NewDecoder(bytes.NewReader(output))
	var all []apiCommit
	for {
		var page []apiCommit
		err := dec.Decode(&page)
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
}
