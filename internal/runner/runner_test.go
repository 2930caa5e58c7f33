package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/jira"
	"github.com/bbeale/GitTreasures/internal/ledger"
	"github.com/bbeale/GitTreasures/internal/logger"
	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/reconcile"
	"github.com/bbeale/GitTreasures/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 9, 0, 0, 0, time.UTC)
}

type env struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	commits *testutil.Commits
	tracker *testutil.Tracker
	board   *testutil.Board
	tests   *testutil.TestManager
}

func lists(prefix string) config.ListConfig {
	return config.ListConfig{
		Other:    prefix + "-other",
		Todo:     prefix + "-todo",
		Failed:   prefix + "-failed",
		Testing:  prefix + "-testing",
		Complete: prefix + "-complete",
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Common.DBPath = filepath.Join(t.TempDir(), "ledger.db")
	cfg.Jira.QAStatusFilterID = "qa"
	cfg.Jira.ThisReleaseFilterID = "release"
	cfg.Trello.ArchiveBoardID = "archive"
	cfg.Trello.Prod = config.BoardConfig{BoardID: "prod", Lists: lists("p")}
	cfg.Trello.Test = config.BoardConfig{BoardID: "test", Lists: lists("t")}
	cfg.Testers = models.Roster{{JiraDisplayName: "Pat Tester", TrelloID: "m-pat"}}

	l, err := ledger.Open(context.Background(), cfg.DBPath(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	board := testutil.NewBoard()
	for _, bc := range []config.BoardConfig{cfg.Trello.Prod, cfg.Trello.Test} {
		for _, role := range models.TrackedLists {
			board.SeedList(bc.BoardID, bc.Lists.ByRole()[role], role.String())
		}
	}

	tracker := testutil.NewTracker()
	tracker.Sprint = &jira.Sprint{ID: 7, Name: "Release Sprint 12", State: "active"}
	tracker.Filters["qa"] = []models.WorkItem{
		{
			Key: "ABC-1", Summary: "Login", Status: models.StatusReadyForQA, StatusCategory: "In Progress",
			TestedBy: models.Unassigned, QAReadyAt: day(2),
		},
		{
			Key: "ABC-3", Summary: "Checkout", Status: "Code Review", StatusCategory: "In Progress",
			TestedBy: models.Unassigned,
		},
	}

	return &env{
		cfg:    cfg,
		ledger: l,
		commits: &testutil.Commits{History: []models.CommitInfo{
			{Hash: "aaa", Message: "ABC-3 checkout fix", CommittedAt: day(5)},
			{Hash: "bbb", Message: "bump deps", CommittedAt: day(6)},
		}},
		tracker: tracker,
		board:   board,
		tests:   testutil.NewTestManager(),
	}
}

func (e *env) runner(review Review) *Runner {
	return New(Deps{
		Config:  e.cfg,
		Ledger:  e.ledger,
		Commits: e.commits,
		Tracker: e.tracker,
		Board:   e.board,
		Tests:   e.tests,
		Review:  review,
		Log:     logger.Nop(),
		Now:     func() time.Time { return now },
	})
}

func TestRunReconcilesProductionBoard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rep, err := e.runner(nil).Run(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ABC-1", "ABC-3"}, e.board.Names("p-todo"))
	assert.Empty(t, e.board.Names("t-todo"))

	s := rep.Summary
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "normal", s.Mode)
	assert.Equal(t, 1, s.Commits, "only commits naming an issue are kept")
	assert.Equal(t, 2, s.Items)
	assert.Equal(t, 2, s.Created)
	assert.Empty(t, s.Error)

	last, err := e.ledger.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, s.ID, last.ID)
	assert.Equal(t, 2, last.Created)

	_, err = os.Stat(e.cfg.DBPath() + ".lock")
	assert.True(t, errors.Is(err, os.ErrNotExist), "lock released")

	// the ledger window starts at the newest known commit on the next run
	_, err = e.runner(nil).Run(ctx, Options{})
	require.NoError(t, err)
	require.Len(t, e.commits.Since, 2)
	assert.Equal(t, now.Add(-e.cfg.LookbackWindow()), e.commits.Since[0])
	assert.True(t, e.commits.Since[1].Equal(day(5)))
}

func TestRunTestModeUsesTestBoard(t *testing.T) {
	e := newEnv(t)
	rep, err := e.runner(nil).Run(context.Background(), Options{Mode: models.RunMode{TestMode: true}})
	require.NoError(t, err)

	assert.Equal(t, "normal_dev", rep.Summary.Mode)
	assert.Equal(t, []string{"ABC-1", "ABC-3"}, e.board.Names("t-todo"))
	assert.Empty(t, e.board.Names("p-todo"))
}

func TestRunDryRunWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rep, err := e.runner(nil).Run(ctx, Options{DryRun: true})
	require.NoError(t, err)

	require.NotNil(t, rep.Plan)
	assert.Equal(t, 2, rep.Plan.Count(models.MutationCreate))
	assert.Nil(t, rep.Result)
	assert.Zero(t, e.board.Writes)

	last, err := e.ledger.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunDeclinedAtReview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	var seen *reconcile.Plan
	review := func(_ context.Context, p *reconcile.Plan) (bool, error) {
		seen = p
		return false, nil
	}

	_, err := e.runner(review).Run(ctx, Options{})
	require.ErrorIs(t, err, ErrDeclined)
	require.NotNil(t, seen)
	assert.Len(t, seen.Mutations, 2)
	assert.Zero(t, e.board.Writes)

	last, err := e.ledger.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, ErrDeclined.Error(), last.Error)
}

func TestRunRefusesWhenLedgerLocked(t *testing.T) {
	e := newEnv(t)
	unlock, err := ledger.Lock(e.cfg.DBPath(), time.Hour)
	require.NoError(t, err)
	defer func() { _ = unlock() }()

	_, err = e.runner(nil).Run(context.Background(), Options{})
	require.ErrorIs(t, err, ledger.ErrLocked)
	assert.Empty(t, e.tracker.Calls)
}

func TestRunRefusesWhenBusy(t *testing.T) {
	e := newEnv(t)
	r := e.runner(nil)
	r.running.Store(true)

	_, err := r.Run(context.Background(), Options{})
	require.ErrorIs(t, err, ErrBusy)
	assert.True(t, r.Running())
}

func TestRunStopsWhenLedgerCannotBePopulated(t *testing.T) {
	e := newEnv(t)
	e.commits.Err = errors.New("remote hung up")
	ctx := context.Background()

	_, err := e.runner(nil).Run(ctx, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "populate ledger")
	assert.Zero(t, e.board.Writes)

	last, err := e.ledger.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Contains(t, last.Error, "remote hung up")
}

func TestRunContinuesWithoutSprint(t *testing.T) {
	e := newEnv(t)
	e.tracker.Sprint = nil

	rep, err := e.runner(nil).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Summary.Created)
}

func TestRunTestRailModeLinksRunOnCards(t *testing.T) {
	e := newEnv(t)
	release := e.tracker.Filters["qa"][0]
	release.ForQATeam = true
	e.tracker.Filters["release"] = []models.WorkItem{release}

	rep, err := e.runner(nil).Run(context.Background(), Options{Mode: models.RunMode{TestRail: true}})
	require.NoError(t, err)

	require.NotNil(t, rep.Release)
	require.NotNil(t, rep.Release.Run)
	assert.Equal(t, []string{"ABC-1"}, rep.Release.AddedStories)

	var cardID string
	for _, it := range rep.Result.Items {
		if it.Key == "ABC-1" {
			cardID = it.CardID
		}
	}
	card, ok := e.board.Card(cardID)
	require.True(t, ok)
	assert.Contains(t, card.Desc, "**TestRail link:** "+rep.Release.Run.URL)
}

func TestRunTestRailFailureDoesNotBlockBoard(t *testing.T) {
	e := newEnv(t)
	e.tests.Fail["Projects"] = errors.New("status 503")

	rep, err := e.runner(nil).Run(context.Background(), Options{Mode: models.RunMode{TestRail: true}})
	require.NoError(t, err)
	assert.Nil(t, rep.Release)
	assert.Equal(t, 2, rep.Summary.Created)
}

func TestRunPersistOnlySyncsResults(t *testing.T) {
	e := newEnv(t)
	p := e.tests.SeedProject("Release Sprint 12 Tests")
	s := e.tests.SeedSection(p.ID, 0, "Release Sprint 12")
	story := e.tests.SeedSection(p.ID, s.ID, "ABC-1 - Login")
	run := e.tests.SeedRun(p.ID, "Release Sprint 12 Testing")
	e.tests.SeedResult(run.ID, story.ID, "Login works", models.TestStatusPassed)

	rep, err := e.runner(nil).Run(context.Background(), Options{Mode: models.RunMode{PersistOnly: true}})
	require.NoError(t, err)

	assert.Equal(t, "persist", rep.Summary.Mode)
	require.NotNil(t, rep.Sync)
	assert.Equal(t, []string{"ABC-1"}, rep.Sync.Transitioned)
	assert.Equal(t, []string{"1011"}, e.tracker.Transitions["ABC-1"])
	assert.Empty(t, e.commits.Since, "ledger untouched")
	assert.Zero(t, e.board.Writes)
}

func TestRunPersistOnlyNeedsTestManager(t *testing.T) {
	e := newEnv(t)
	r := New(Deps{
		Config: e.cfg, Ledger: e.ledger, Commits: e.commits, Tracker: e.tracker,
		Board: e.board, Log: logger.Nop(),
	})
	_, err := r.Run(context.Background(), Options{Mode: models.RunMode{PersistOnly: true}})
	require.Error(t, err)
}

func TestDescribePreviewsOneItem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.ledger.Populate(ctx, e.commits, ledger.PopulateOptions{
		Branch: "staging", KeyPattern: e.cfg.KeyRegex(), Lookback: e.cfg.LookbackWindow(),
		Now: func() time.Time { return now },
	})
	require.NoError(t, err)

	p, err := e.runner(nil).Describe(ctx, "abc-3", false)
	require.NoError(t, err)

	assert.Equal(t, "ABC-3", p.Item.Key)
	assert.True(t, p.Item.InStaging)
	assert.Equal(t, models.ListTodo, p.Outcome.To)
	require.Len(t, p.Planned, 1)
	assert.Equal(t, models.MutationCreate, p.Planned[0].Kind)
	assert.Equal(t, "ABC-3", p.Card.Name)
	assert.Zero(t, e.board.Writes)
}

func TestDescribeUnknownKey(t *testing.T) {
	e := newEnv(t)
	_, err := e.runner(nil).Describe(context.Background(), "ABC-404", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the QA status filter")
}
