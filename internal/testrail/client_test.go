package testrail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// routes maps the API path carried in the raw query (e.g. "/api/v2/get_projects") to a body
type routes map[string]string

func newClient(t *testing.T, r routes, onPost func(path string, body map[string]any)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "qa-bot", user)
		assert.Equal(t, "pw", pass)
		assert.Equal(t, "/index.php", req.URL.Path)

		path := req.URL.RawQuery
		if req.Method == http.MethodPost && onPost != nil {
			var body map[string]any
			_ = json.NewDecoder(req.Body).Decode(&body)
			onPost(path, body)
		}
		body, ok := r[path]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Field :id is not a valid ID."}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	common := config.DefaultConfig().Common
	common.RetryDelay = config.Duration{Duration: time.Millisecond}
	cfg := config.DefaultConfig().TestRail
	cfg.URL = srv.URL
	cfg.User = "qa-bot"
	cfg.Password = "pw"
	return New(cfg, common, zap.NewNop().Sugar())
}

func TestProjectsBareArray(t *testing.T) {
	c := newClient(t, routes{"/api/v2/get_projects": `[{"id":1,"name":"Sprint 4 Tests"}]`}, nil)

	projects, err := c.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.TestProject{{ID: 1, Name: "Sprint 4 Tests"}}, projects)
}

func TestSectionsFollowsPagination(t *testing.T) {
	c := newClient(t, routes{
		"/api/v2/get_sections/1": `{"offset":0,"_links":{"next":"/api/v2/get_sections/1&offset=2"},
			"sections":[{"id":10,"name":"Sprint 4","parent_id":null},{"id":11,"name":"ABC-1 - Login","parent_id":10}]}`,
		"/api/v2/get_sections/1&offset=2": `{"offset":2,"_links":{"next":null},
			"sections":[{"id":12,"name":"ABC-2 - Cart","parent_id":10}]}`,
	}, nil)

	sections, err := c.Sections(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	assert.True(t, sections[0].IsSprintLevel())
	assert.False(t, sections[2].IsSprintLevel())
	assert.Equal(t, 10, *sections[2].ParentID)
}

func TestAddTestCaseRejectsSprintSection(t *testing.T) {
	posted := false
	c := newClient(t, routes{
		"/api/v2/get_section/10": `{"id":10,"name":"Sprint 4","parent_id":null}`,
	}, func(string, map[string]any) { posted = true })

	_, err := c.AddTestCase(context.Background(), 10, "ABC-1 regression", "ABC-1")
	require.ErrorIs(t, err, ErrSprintLevelCase)
	assert.False(t, posted, "nothing is written for a sprint-level section")
}

func TestAddTestCaseToStorySection(t *testing.T) {
	var got map[string]any
	c := newClient(t, routes{
		"/api/v2/get_section/11": `{"id":11,"name":"ABC-1 - Login","parent_id":10}`,
		"/api/v2/add_case/11":    `{"id":500,"title":"ABC-1 regression","section_id":11,"refs":"ABC-1"}`,
	}, func(path string, body map[string]any) { got = body })

	tc, err := c.AddTestCase(context.Background(), 11, "ABC-1 regression", "ABC-1")
	require.NoError(t, err)
	assert.Equal(t, 500, tc.ID)
	assert.Equal(t, map[string]any{
		"title":       "ABC-1 regression",
		"type_id":     float64(9),
		"template_id": float64(2),
		"refs":        "ABC-1",
	}, got)
}

func TestAddStorySectionNeedsParent(t *testing.T) {
	c := newClient(t, routes{}, nil)
	_, err := c.AddStorySection(context.Background(), 1, 0, "ABC-1 - Login", "")
	require.Error(t, err)
}

func TestAddSections(t *testing.T) {
	var bodies []map[string]any
	c := newClient(t, routes{
		"/api/v2/add_section/1": `{"id":20,"name":"x"}`,
	}, func(path string, body map[string]any) { bodies = append(bodies, body) })

	_, err := c.AddSprintSection(context.Background(), 1, "Sprint 4")
	require.NoError(t, err)
	_, err = c.AddStorySection(context.Background(), 1, 20, "ABC-1 - Login", "desc")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"name": "Sprint 4"}, bodies[0])
	assert.Equal(t, float64(20), bodies[1]["parent_id"])
	assert.Equal(t, "desc", bodies[1]["description"])
}

func TestRunResultsAndChain(t *testing.T) {
	c := newClient(t, routes{
		"/api/v2/get_results_for_run/7": `{"results":[{"id":1,"test_id":70,"status_id":5,
			"custom_step_results":[{"content":"open cart","actual":"500 error","status_id":5}]}],"_links":{"next":null}}`,
		"/api/v2/get_test/70":  `{"id":70,"case_id":500,"run_id":7,"title":"ABC-1 regression"}`,
		"/api/v2/get_case/500": `{"id":500,"section_id":11}`,
	}, nil)
	ctx := context.Background()

	results, err := c.RunResults(ctx, 7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	step := results[0].FailedStep()
	require.NotNil(t, step)
	assert.Equal(t, "500 error", step.Actual)

	test, err := c.Test(ctx, 70)
	require.NoError(t, err)
	assert.Equal(t, 500, test.CaseID)

	tc, err := c.Case(ctx, test.CaseID)
	require.NoError(t, err)
	assert.Equal(t, 11, tc.SectionID)
}

func TestMissingLookupsReturnNil(t *testing.T) {
	c := newClient(t, routes{}, nil)
	ctx := context.Background()

	s, err := c.Section(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, s)

	tc, err := c.Case(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, tc)
}

func TestRunsAndAddRun(t *testing.T) {
	var got map[string]any
	c := newClient(t, routes{
		"/api/v2/get_runs/1": `[{"id":7,"name":"Sprint 4 Testing","url":"https://tr.example/runs/view/7"}]`,
		"/api/v2/add_run/1":  `{"id":8,"name":"Sprint 5 Testing"}`,
	}, func(path string, body map[string]any) {
		if strings.Contains(path, "add_run") {
			got = body
		}
	})
	ctx := context.Background()

	runs, err := c.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sprint 4 Testing", runs[0].Name)

	run, err := c.AddRun(ctx, 1, "Sprint 5 Testing")
	require.NoError(t, err)
	assert.Equal(t, 8, run.ID)
	assert.Equal(t, true, got["include_all"])
}
