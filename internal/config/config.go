package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Common   CommonConfig   `toml:"common"`
	Git      GitConfig      `toml:"git"`
	Jira     JiraConfig     `toml:"jira"`
	Trello   TrelloConfig   `toml:"trello"`
	TestRail TestRailConfig `toml:"testrail"`
	Server   ServerConfig   `toml:"server"`
	Testers  models.Roster  `toml:"testers"`

	// Compiled regex from Git.IssueKeyPattern (not serialized)
	keyRegex *regexp.Regexp
}

type CommonConfig struct {
	DBPath           string   `toml:"db_path"`
	RunTimeout       Duration `toml:"run_timeout"`
	RequestTimeout   Duration `toml:"request_timeout"`
	RetryDelay       Duration `toml:"retry_delay"`
	MaxConcurrent    int      `toml:"max_concurrent"`
	LogLevel         string   `toml:"log_level"`
	LogFormat        string   `toml:"log_format"`
	ArchiveThreshold int      `toml:"archive_threshold"`
}

type GitConfig struct {
	// Source is "local" (go-git over a clone) or "github" (gh api)
	Source          string `toml:"source"`
	RepoPath        string `toml:"repo_path"`
	GitHubRepo      string `toml:"github_repo"`
	WatchedBranch   string `toml:"watched_branch"`
	IssueKeyPattern string `toml:"issue_key_pattern"`
	LookbackDays    int    `toml:"lookback_days"`
	Fetch           bool   `toml:"fetch"`
}

type JiraConfig struct {
	URL                 string            `toml:"url"`
	Username            string            `toml:"username"`
	Token               string            `toml:"-"`
	ProjectKey          string            `toml:"project_key"`
	BoardName           string            `toml:"board_name"`
	SprintNameFilter    string            `toml:"sprint_name_filter"`
	QAStatusFilterID    string            `toml:"qa_status_filter_id"`
	ThisReleaseFilterID string            `toml:"this_release_filter_id"`
	HotfixLabel         string            `toml:"hotfix_label"`
	DefectTypes         []string          `toml:"defect_types"`
	AtomicKeyPrefixes   []string          `toml:"atomic_key_prefixes"`
	StagingTransitionID string            `toml:"staging_transition_id"`
	DefectIssueType     string            `toml:"defect_issue_type"`
	DefectPriority      string            `toml:"defect_priority"`
	DefectCustomFields  map[string]string `toml:"defect_custom_fields"`
}

type TrelloConfig struct {
	Key            string      `toml:"-"`
	Token          string      `toml:"-"`
	ArchiveBoardID string      `toml:"archive_board_id"`
	Prod           BoardConfig `toml:"prod"`
	Test           BoardConfig `toml:"test"`
}

// BoardConfig holds the board and list ids of one environment
type BoardConfig struct {
	BoardID string     `toml:"board_id"`
	Lists   ListConfig `toml:"lists"`
}

type ListConfig struct {
	Other    string `toml:"other"`
	Todo     string `toml:"todo"`
	Failed   string `toml:"failed"`
	Testing  string `toml:"testing"`
	Complete string `toml:"complete"`
}

type TestRailConfig struct {
	URL        string `toml:"url"`
	User       string `toml:"user"`
	Password   string `toml:"-"`
	CaseTypeID int    `toml:"case_type_id"`
	TemplateID int    `toml:"template_id"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Common: CommonConfig{
			DBPath:           "data/git_treasures.db",
			RunTimeout:       Duration{10 * time.Minute},
			RequestTimeout:   Duration{30 * time.Second},
			RetryDelay:       Duration{2 * time.Second},
			MaxConcurrent:    5,
			LogLevel:         "info",
			LogFormat:        "console",
			ArchiveThreshold: 10,
		},
		Git: GitConfig{
			Source:          "local",
			RepoPath:        ".",
			WatchedBranch:   "staging",
			IssueKeyPattern: "[A-Z][A-Z0-9]+-[0-9]+",
			LookbackDays:    30,
			Fetch:           true,
		},
		Jira: JiraConfig{
			SprintNameFilter:    "release sprint",
			HotfixLabel:         "hotfix",
			DefectTypes:         []string{"Defect", "QA Subtask"},
			AtomicKeyPrefixes:   []string{"MMDH-"},
			StagingTransitionID: "1011",
			DefectIssueType:     "Defect",
			DefectPriority:      "Minor",
		},
		TestRail: TestRailConfig{
			CaseTypeID: 9,
			TemplateID: 2,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration{10 * time.Second},
		},
	}
}

// DefaultPath is where the config file lives when --config is not given
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "gittreasures", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults, loads secrets from .env and the
// environment, then validates the result. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Missing .env is fine; secrets may already be in the environment
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.compileRegex(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfPresent(&c.Jira.Token, "JIRA_TOKEN")
	setIfPresent(&c.Trello.Key, "TRELLO_KEY")
	setIfPresent(&c.Trello.Token, "TRELLO_TOKEN")
	setIfPresent(&c.TestRail.Password, "TESTRAIL_PASSWORD")
	setIfPresent(&c.Common.DBPath, "GITTREASURES_DB_PATH")
	setIfPresent(&c.Common.LogLevel, "GITTREASURES_LOG_LEVEL")
}

func setIfPresent(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) compileRegex() error {
	re, err := regexp.Compile("(?i)(" + c.Git.IssueKeyPattern + ")")
	if err != nil {
		return fmt.Errorf("invalid git.issue_key_pattern %q: %w", c.Git.IssueKeyPattern, err)
	}
	c.keyRegex = re
	return nil
}

// KeyRegex returns the compiled issue-key regex. Configs built in code rather than by
// Load compile it on first use; an invalid pattern yields nil.
func (c *Config) KeyRegex() *regexp.Regexp {
	if c.keyRegex == nil {
		_ = c.compileRegex()
	}
	return c.keyRegex
}

// Board returns the board environment selected by testMode
func (c *Config) Board(testMode bool) BoardConfig {
	if testMode {
		return c.Trello.Test
	}
	return c.Trello.Prod
}

// LookbackWindow is how far back to read commits when the ledger is empty
func (c *Config) LookbackWindow() time.Duration {
	return time.Duration(c.Git.LookbackDays) * 24 * time.Hour
}

// DBPath returns the ledger path with a leading ~ expanded
func (c *Config) DBPath() string {
	return expandTilde(c.Common.DBPath)
}

func (c *Config) RepoPath() string {
	return expandTilde(c.Git.RepoPath)
}

// TestRailEnabled reports whether enough settings exist to talk to the test-case manager
func (c *Config) TestRailEnabled() bool {
	return c.TestRail.URL != "" && c.TestRail.User != ""
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ByRole maps each tracked list role to its list id
func (l ListConfig) ByRole() map[models.ListRole]string {
	return map[models.ListRole]string{
		models.ListOther:    l.Other,
		models.ListTodo:     l.Todo,
		models.ListFailed:   l.Failed,
		models.ListTesting:  l.Testing,
		models.ListComplete: l.Complete,
	}
}
