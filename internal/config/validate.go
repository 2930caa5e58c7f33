package config

import (
	"fmt"
	"strings"
)

// ValidationError lists every configuration problem found
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the settings every run depends on. Settings only some modes need
// (test board, test-case manager) are checked by RequireTestBoard and RequireTestRail.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Common.DBPath == "" {
		add("common.db_path is required")
	}
	if c.Common.RunTimeout.Duration <= 0 {
		add("common.run_timeout must be positive")
	}
	if c.Common.RequestTimeout.Duration <= 0 {
		add("common.request_timeout must be positive")
	}
	if c.Common.RetryDelay.Duration < 0 {
		add("common.retry_delay must not be negative")
	}
	if c.Common.MaxConcurrent < 1 {
		add("common.max_concurrent must be at least 1")
	}
	if c.Common.ArchiveThreshold < 1 {
		add("common.archive_threshold must be at least 1")
	}

	switch c.Git.Source {
	case "local":
		if c.Git.RepoPath == "" {
			add("git.repo_path is required for the local source")
		}
	case "github":
		if c.Git.GitHubRepo == "" {
			add("git.github_repo is required for the github source")
		}
	default:
		add("git.source must be \"local\" or \"github\", got %q", c.Git.Source)
	}
	if c.Git.WatchedBranch == "" {
		add("git.watched_branch is required")
	}
	if c.Git.IssueKeyPattern == "" {
		add("git.issue_key_pattern is required")
	}
	if c.Git.LookbackDays < 1 {
		add("git.lookback_days must be at least 1")
	}

	if c.Jira.URL == "" {
		add("jira.url is required")
	}
	if c.Jira.Username == "" || c.Jira.Token == "" {
		add("jira.username and JIRA_TOKEN are required")
	}
	if c.Jira.ProjectKey == "" {
		add("jira.project_key is required")
	}
	if c.Jira.QAStatusFilterID == "" {
		add("jira.qa_status_filter_id is required")
	}

	if c.Trello.Key == "" || c.Trello.Token == "" {
		add("TRELLO_KEY and TRELLO_TOKEN are required")
	}
	if c.Trello.ArchiveBoardID == "" {
		add("trello.archive_board_id is required")
	}
	problems = append(problems, c.Trello.Prod.problems("trello.prod")...)

	for i, t := range c.Testers {
		if t.JiraDisplayName == "" {
			add("testers[%d].jira_display_name is required", i)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// RequireTestBoard checks the test board settings used by test mode
func (c *Config) RequireTestBoard() error {
	if problems := c.Trello.Test.problems("trello.test"); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// RequireTestRail checks the test-case manager settings used by the test asset modes
func (c *Config) RequireTestRail() error {
	var problems []string
	if !c.TestRailEnabled() {
		problems = append(problems, "testrail.url and testrail.user are required")
	}
	if c.TestRail.Password == "" {
		problems = append(problems, "TESTRAIL_PASSWORD is required")
	}
	if c.Jira.ThisReleaseFilterID == "" {
		problems = append(problems, "jira.this_release_filter_id is required")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (b BoardConfig) problems(prefix string) []string {
	var problems []string
	if b.BoardID == "" {
		problems = append(problems, prefix+".board_id is required")
	}
	lists := map[string]string{
		"other":    b.Lists.Other,
		"todo":     b.Lists.Todo,
		"failed":   b.Lists.Failed,
		"testing":  b.Lists.Testing,
		"complete": b.Lists.Complete,
	}
	for _, name := range []string{"other", "todo", "failed", "testing", "complete"} {
		if lists[name] == "" {
			problems = append(problems, prefix+".lists."+name+" is required")
		}
	}
	return problems
}
