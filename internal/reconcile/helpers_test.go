package reconcile

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	boardID   = "qa-board"
	archiveID = "archive-board"
	sprint    = "Release Sprint 12"
)

var listIDs = map[models.ListRole]string{
	models.ListOther:    "other",
	models.ListTodo:     "todo",
	models.ListFailed:   "failed",
	models.ListTesting:  "testing",
	models.ListComplete: "complete",
}

var testRoster = models.Roster{{JiraDisplayName: "Pat Tester", TrelloID: "m-pat"}}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 9, 0, 0, 0, time.UTC)
}

func testRules() Rules {
	return Rules{
		KeyPattern:        regexp.MustCompile(`(?i)([A-Z][A-Z0-9]+-[0-9]+)`),
		AtomicKeyPrefixes: []string{"MMDH-"},
		Roster:            testRoster,
		ArchiveThreshold:  10,
		ArchiveBoardID:    archiveID,
		SprintName:        sprint,
	}
}

func newPlanner() *Planner {
	return NewPlanner(testRules(), zap.NewNop().Sugar())
}

// freshItem is an item awaiting QA for the first time
func freshItem(key string, readyAt time.Time) models.WorkItem {
	return models.WorkItem{
		Key:            key,
		URL:            "https://jira.example/browse/" + key,
		Summary:        key + " summary",
		Status:         models.StatusReadyForQA,
		StatusCategory: "In Progress",
		TestedBy:       models.Unassigned,
		QAReadyAt:      readyAt,
	}
}

// staleItem is an item awaiting QA again after a tester failed it
func staleItem(key string, readyAt time.Time) models.WorkItem {
	it := freshItem(key, readyAt)
	it.HasFailedQA = true
	it.TesterInHistory = true
	it.TestedBy = "Pat Tester"
	return it
}

func withStatus(it models.WorkItem, status, category string) models.WorkItem {
	it.Status = status
	it.StatusCategory = category
	return it
}

func cards(names ...string) []models.Card {
	out := make([]models.Card, len(names))
	for i, n := range names {
		out[i] = models.Card{ID: "c-" + n, Name: n, Pos: float64((i + 1) * 100)}
	}
	return out
}

func newSnapshot(seed map[models.ListRole][]models.Card, labels ...models.Label) *Snapshot {
	return NewSnapshot(boardID, listIDs, seed, labels)
}

func newBoard(seed map[models.ListRole][]models.Card) *testutil.Board {
	b := testutil.NewBoard()
	for _, role := range models.TrackedLists {
		b.SeedList(boardID, listIDs[role], role.String(), seed[role]...)
	}
	b.SeedList(archiveID, "archive-old", "Release_Sprint_11_archive")
	return b
}

// run snapshots the board, plans against it and applies the plan
func run(t *testing.T, b *testutil.Board, items []models.WorkItem, commits []models.CommitRecord) (*Plan, Result) {
	t.Helper()
	ctx := context.Background()
	snap, err := TakeSnapshot(ctx, b, boardID, listIDs)
	require.NoError(t, err)

	work := append([]models.WorkItem(nil), items...)
	plan := newPlanner().Plan(work, commits, snap)
	res := NewApplier(b, zap.NewNop().Sugar()).Apply(ctx, plan)
	require.NoError(t, res.Err)
	return plan, res
}

func zapNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
