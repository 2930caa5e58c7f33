package main

import (
	"context"
	"fmt"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/git"
	"github.com/bbeale/GitTreasures/internal/github"
	"github.com/bbeale/GitTreasures/internal/jira"
	"github.com/bbeale/GitTreasures/internal/ledger"
	"github.com/bbeale/GitTreasures/internal/runner"
	"github.com/bbeale/GitTreasures/internal/testrail"
	"github.com/bbeale/GitTreasures/internal/trello"
)

// commitSource picks the commit-history provider named by git.source
func (e *env) commitSource(ctx context.Context) (ledger.CommitSource, error) {
	cfg := e.cfg
	switch cfg.Git.Source {
	case "github":
		if err := github.CheckAuth(ctx); err != nil {
			return nil, err
		}
		return github.NewSource(cfg.Git.GitHubRepo, cfg.KeyRegex(), e.log), nil
	case "", "local":
		if !git.IsGitRepo(cfg.RepoPath()) {
			return nil, fmt.Errorf("git.repo_path %s is not a git repository", cfg.RepoPath())
		}
		if !cfg.Git.Fetch && !git.HasBranch(cfg.RepoPath(), cfg.Git.WatchedBranch) {
			return nil, fmt.Errorf("watched branch %s not found in %s", cfg.Git.WatchedBranch, cfg.RepoPath())
		}
		return git.NewSource(cfg.RepoPath(), cfg.Git.Fetch, cfg.KeyRegex(), e.log), nil
	default:
		return nil, fmt.Errorf("unknown git.source %q", cfg.Git.Source)
	}
}

func (e *env) jira() *jira.Client {
	return jira.New(e.cfg.Jira, e.cfg.Common, e.log)
}

func (e *env) trello() *trello.Client {
	return trello.New(e.cfg.Trello, e.cfg.Common, e.log)
}

func (e *env) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	return ledger.Open(ctx, e.cfg.DBPath(), e.log)
}

// newRunner wires every collaborator. The test-case manager is attached only when
// configured; review may be nil.
func (e *env) newRunner(ctx context.Context, l *ledger.Ledger, review runner.Review) (*runner.Runner, error) {
	src, err := e.commitSource(ctx)
	if err != nil {
		return nil, err
	}
	tracker := e.jira()
	me, err := tracker.CheckAuth(ctx)
	if err != nil {
		return nil, err
	}
	e.log.Debugw("jira credentials ok", "user", me.DisplayName)

	d := runner.Deps{
		Config:  e.cfg,
		Ledger:  l,
		Commits: src,
		Tracker: tracker,
		Board:   e.trello(),
		Review:  review,
		Log:     e.log,
	}
	if e.cfg.TestRailEnabled() {
		d.Tests = testrail.New(e.cfg.TestRail, e.cfg.Common, e.log)
	}
	return runner.New(d), nil
}

// checkMode validates the settings a run mode depends on
func checkMode(cfg *config.Config, testMode, testAssets bool) error {
	if testMode {
		if err := cfg.RequireTestBoard(); err != nil {
			return err
		}
	}
	if testAssets {
		if err := cfg.RequireTestRail(); err != nil {
			return err
		}
	}
	return nil
}
