// Package testrail is the test-case manager adapter
package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bbeale/GitTreasures/internal/apiclient"
	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// ErrSprintLevelCase is returned when a test case would attach directly to a sprint section
var ErrSprintLevelCase = errors.New("test cases must attach to a story section, not a sprint section")

const apiPrefix = "index.php?/api/v2/"

type Client struct {
	api     *apiclient.Client
	baseURL string
	cfg     config.TestRailConfig
	log     *zap.SugaredLogger
}

func New(cfg config.TestRailConfig, common config.CommonConfig, log *zap.SugaredLogger) *Client {
	log = log.Named("testrail")
	return &Client{
		api: apiclient.New(apiclient.Options{
			BaseURL:    cfg.URL,
			Timeout:    common.RequestTimeout.Duration,
			RetryDelay: common.RetryDelay.Duration,
			Auth:       apiclient.BasicAuth(cfg.User, cfg.Password),
			Log:        log,
		}),
		baseURL: strings.TrimRight(cfg.URL, "/"),
		cfg:     cfg,
		log:     log,
	}
}

func endpoint(name string, id ...int) string {
	p := apiPrefix + name
	for _, v := range id {
		p += fmt.Sprintf("/%d", v)
	}
	return p
}

// page is the paginated list shape; older servers return a bare array instead
type page struct {
	Links struct {
		Next *string `json:"next"`
	} `json:"_links"`
}

// list fetches every item of a list endpoint, following pagination links
func list[T any](ctx context.Context, c *Client, path, field string) ([]T, error) {
	var all []T
	for path != "" {
		var raw json.RawMessage
		if err := c.api.Do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			return all, nil
		}
		if raw[0] == '[' {
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
			return append(all, items...), nil
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode %s page: %w", field, err)
		}
		var items []T
		if data, ok := obj[field]; ok {
			if err := json.Unmarshal(data, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
		}
		all = append(all, items...)

		var p page
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s links: %w", field, err)
		}
		path = ""
		if p.Links.Next != nil && *p.Links.Next != "" {
			path = "index.php?" + *p.Links.Next
		}
	}
	return all, nil
}

func (c *Client) Projects(ctx context.Context) ([]models.TestProject, error) {
	projects, err := list[models.TestProject](ctx, c, endpoint("get_projects"), "projects")
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}
	return projects, nil
}

// AddProject creates a single-suite project
func (c *Client) AddProject(ctx context.Context, name, announcement string) (*models.TestProject, error) {
	body := map[string]any{
		"name":              name,
		"announcement":      announcement,
		"show_announcement": announcement != "",
		"suite_mode":        1,
	}
	var p models.TestProject
	if err := c.api.Do(ctx, http.MethodPost, endpoint("add_project"), nil, body, &p); err != nil {
		return nil, fmt.Errorf("add project %q: %w", name, err)
	}
	return &p, nil
}

func (c *Client) Sections(ctx context.Context, projectID int) ([]models.TestSection, error) {
	sections, err := list[models.TestSection](ctx, c, endpoint("get_sections", projectID), "sections")
	if err != nil {
		return nil, fmt.Errorf("get sections of project %d: %w", projectID, err)
	}
	return sections, nil
}

// Section returns a section, or nil if it does not exist
func (c *Client) Section(ctx context.Context, sectionID int) (*models.TestSection, error) {
	var s models.TestSection
	err := c.api.Do(ctx, http.MethodGet, endpoint("get_section", sectionID), nil, nil, &s)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get section %d: %w", sectionID, err)
	}
	return &s, nil
}

// AddSprintSection creates a top-level section for a sprint
func (c *Client) AddSprintSection(ctx context.Context, projectID int, name string) (*models.TestSection, error) {
	return c.addSection(ctx, projectID, map[string]any{"name": name})
}

// AddStorySection creates a story section under a sprint section
func (c *Client) AddStorySection(ctx context.Context, projectID, parentID int, name, description string) (*models.TestSection, error) {
	if parentID <= 0 {
		return nil, fmt.Errorf("story section %q needs a parent sprint section", name)
	}
	return c.addSection(ctx, projectID, map[string]any{
		"name":        name,
		"description": description,
		"parent_id":   parentID,
	})
}

func (c *Client) addSection(ctx context.Context, projectID int, body map[string]any) (*models.TestSection, error) {
	var s models.TestSection
	if err := c.api.Do(ctx, http.MethodPost, endpoint("add_section", projectID), nil, body, &s); err != nil {
		return nil, fmt.Errorf("add section %q: %w", body["name"], err)
	}
	return &s, nil
}

// AddTestCase adds a case to a story section. Sprint-level sections are refused with
// ErrSprintLevelCase before anything is written.
func (c *Client) AddTestCase(ctx context.Context, sectionID int, title, refs string) (*models.TestCase, error) {
	section, err := c.Section(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, fmt.Errorf("add test case %q: section %d not found", title, sectionID)
	}
	if section.IsSprintLevel() {
		return nil, fmt.Errorf("add test case %q to section %d: %w", title, sectionID, ErrSprintLevelCase)
	}

	body := map[string]any{"title": title}
	if c.cfg.CaseTypeID > 0 {
		body["type_id"] = c.cfg.CaseTypeID
	}
	if c.cfg.TemplateID > 0 {
		body["template_id"] = c.cfg.TemplateID
	}
	if refs != "" {
		body["refs"] = refs
	}
	var tc models.TestCase
	if err := c.api.Do(ctx, http.MethodPost, endpoint("add_case", sectionID), nil, body, &tc); err != nil {
		return nil, fmt.Errorf("add test case %q: %w", title, err)
	}
	return &tc, nil
}

func (c *Client) Runs(ctx context.Context, projectID int) ([]models.TestRun, error) {
	runs, err := list[models.TestRun](ctx, c, endpoint("get_runs", projectID), "runs")
	if err != nil {
		return nil, fmt.Errorf("get runs of project %d: %w", projectID, err)
	}
	return runs, nil
}

// AddRun creates a run including every case in the project
func (c *Client) AddRun(ctx context.Context, projectID int, name string) (*models.TestRun, error) {
	body := map[string]any{"name": name, "include_all": true}
	var r models.TestRun
	if err := c.api.Do(ctx, http.MethodPost, endpoint("add_run", projectID), nil, body, &r); err != nil {
		return nil, fmt.Errorf("add run %q: %w", name, err)
	}
	return &r, nil
}

func (c *Client) RunResults(ctx context.Context, runID int) ([]models.TestResult, error) {
	results, err := list[models.TestResult](ctx, c, endpoint("get_results_for_run", runID), "results")
	if err != nil {
		return nil, fmt.Errorf("get results of run %d: %w", runID, err)
	}
	return results, nil
}

// Test returns a test of a run, or nil if it does not exist
func (c *Client) Test(ctx context.Context, testID int) (*models.Test, error) {
	var t models.Test
	err := c.api.Do(ctx, http.MethodGet, endpoint("get_test", testID), nil, nil, &t)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get test %d: %w", testID, err)
	}
	return &t, nil
}

// Case returns a test case, or nil if it does not exist
func (c *Client) Case(ctx context.Context, caseID int) (*models.TestCase, error) {
	var tc models.TestCase
	err := c.api.Do(ctx, http.MethodGet, endpoint("get_case", caseID), nil, nil, &tc)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case %d: %w", caseID, err)
	}
	return &tc, nil
}

// isMissing treats the 400 the server answers for unknown ids like a 404
func isMissing(err error) bool {
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusNotFound ||
		(se.Status == http.StatusBadRequest && strings.Contains(se.Body, "is not a valid"))
}
