// Package jira is the issue tracker adapter: a REST client plus the derivation of
// work items from raw issues.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bbeale/GitTreasures/internal/apiclient"
	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// issueFields is every field the parse step reads, so one request per issue suffices
const issueFields = "summary,description,issuetype,status,labels,created,updated,comment,attachment,subtasks,parent"

const searchPageSize = 100

type Client struct {
	api     *apiclient.Client
	baseURL string
	cfg     config.JiraConfig
	log     *zap.SugaredLogger
}

func New(cfg config.JiraConfig, common config.CommonConfig, log *zap.SugaredLogger) *Client {
	log = log.Named("jira")
	return &Client{
		api: apiclient.New(apiclient.Options{
			BaseURL:    cfg.URL,
			Timeout:    common.RequestTimeout.Duration,
			RetryDelay: common.RetryDelay.Duration,
			Auth:       apiclient.BasicAuth(cfg.Username, cfg.Token),
			Log:        log,
		}),
		baseURL: strings.TrimRight(cfg.URL, "/"),
		cfg:     cfg,
		log:     log,
	}
}

// CheckAuth verifies the credentials by asking who we are
func (c *Client) CheckAuth(ctx context.Context) (*User, error) {
	var me User
	if err := c.api.Do(ctx, http.MethodGet, "rest/api/2/myself", nil, nil, &me); err != nil {
		return nil, fmt.Errorf("jira auth check: %w", err)
	}
	return &me, nil
}

// GetIssue fetches an issue with its changelog. A missing issue returns nil, nil.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	q := url.Values{
		"fields": {issueFields},
		"expand": {"changelog"},
	}
	var issue Issue
	err := c.api.Do(ctx, http.MethodGet, "rest/api/2/issue/"+url.PathEscape(key), q, nil, &issue)
	if apiclient.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	return &issue, nil
}

// GetFilter returns a saved filter, or nil if it does not exist
func (c *Client) GetFilter(ctx context.Context, id string) (*Filter, error) {
	var f Filter
	err := c.api.Do(ctx, http.MethodGet, "rest/api/2/filter/"+url.PathEscape(id), nil, nil, &f)
	if apiclient.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get filter %s: %w", id, err)
	}
	return &f, nil
}

type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Search runs a JQL query and returns the matching issues with summary fields only
func (c *Client) Search(ctx context.Context, jql string) ([]Issue, error) {
	var all []Issue
	for start := 0; ; {
		q := url.Values{
			"jql":        {jql},
			"startAt":    {strconv.Itoa(start)},
			"maxResults": {strconv.Itoa(searchPageSize)},
			"fields":     {"summary,status"},
		}
		var page searchResponse
		if err := c.api.Do(ctx, http.MethodGet, "rest/api/2/search", q, nil, &page); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		all = append(all, page.Issues...)
		start += len(page.Issues)
		if len(page.Issues) == 0 || start >= page.Total {
			return all, nil
		}
	}
}

// IssuesByFilter runs a saved filter. A missing filter yields no issues.
func (c *Client) IssuesByFilter(ctx context.Context, filterID string) ([]Issue, error) {
	f, err := c.GetFilter(ctx, filterID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		c.log.Warnw("filter not found", "filter", filterID)
		return nil, nil
	}
	return c.Search(ctx, f.JQL)
}

// AddFilter saves a new filter
func (c *Client) AddFilter(ctx context.Context, name, jql string) (*Filter, error) {
	var f Filter
	body := map[string]string{"name": name, "jql": jql}
	if err := c.api.Do(ctx, http.MethodPost, "rest/api/2/filter", nil, body, &f); err != nil {
		return nil, fmt.Errorf("add filter %q: %w", name, err)
	}
	return &f, nil
}

// UpdateFilter replaces the name and query of a saved filter
func (c *Client) UpdateFilter(ctx context.Context, id, name, jql string) (*Filter, error) {
	var f Filter
	body := map[string]string{"name": name, "jql": jql}
	if err := c.api.Do(ctx, http.MethodPut, "rest/api/2/filter/"+url.PathEscape(id), nil, body, &f); err != nil {
		return nil, fmt.Errorf("update filter %s: %w", id, err)
	}
	return &f, nil
}

// TransitionIssue moves an issue through the workflow transition with the given id
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	body := map[string]any{"transition": map[string]string{"id": transitionID}}
	path := "rest/api/2/issue/" + url.PathEscape(key) + "/transitions"
	if err := c.api.Do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("transition %s via %s: %w", key, transitionID, err)
	}
	return nil
}

// CreateIssue creates an issue from raw field values
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error) {
	var created CreatedIssue
	body := map[string]any{"fields": fields}
	if err := c.api.Do(ctx, http.MethodPost, "rest/api/2/issue", nil, body, &created); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return &created, nil
}

// CreateDefect files a defect sub-task under its parent work item
func (c *Client) CreateDefect(ctx context.Context, d models.NewDefect) (*CreatedIssue, error) {
	fields := map[string]any{
		"project":     map[string]string{"key": c.cfg.ProjectKey},
		"parent":      map[string]string{"key": d.ParentKey},
		"summary":     d.Summary,
		"description": d.Description,
		"issuetype":   map[string]string{"name": c.cfg.DefectIssueType},
	}
	if c.cfg.DefectPriority != "" {
		fields["priority"] = map[string]string{"name": c.cfg.DefectPriority}
	}
	for field, id := range c.cfg.DefectCustomFields {
		fields[field] = map[string]string{"id": id}
	}
	return c.CreateIssue(ctx, fields)
}

type boardsResponse struct {
	Values []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"values"`
}

type sprintsResponse struct {
	Values []Sprint `json:"values"`
}

// CurrentSprint returns the active sprint whose name contains the configured filter,
// or nil if there is none
func (c *Client) CurrentSprint(ctx context.Context) (*Sprint, error) {
	q := url.Values{"projectKeyOrId": {c.cfg.ProjectKey}}
	if c.cfg.BoardName != "" {
		q.Set("name", c.cfg.BoardName)
	}
	var boards boardsResponse
	if err := c.api.Do(ctx, http.MethodGet, "rest/agile/1.0/board", q, nil, &boards); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	want := strings.ToLower(c.cfg.SprintNameFilter)
	for _, b := range boards.Values {
		var sprints sprintsResponse
		path := fmt.Sprintf("rest/agile/1.0/board/%d/sprint", b.ID)
		if err := c.api.Do(ctx, http.MethodGet, path, url.Values{"state": {"active"}}, nil, &sprints); err != nil {
			return nil, fmt.Errorf("list sprints of board %d: %w", b.ID, err)
		}
		for _, s := range sprints.Values {
			if strings.Contains(strings.ToLower(s.Name), want) {
				sprint := s
				return &sprint, nil
			}
		}
	}
	return nil, nil
}
