package trello

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorded struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]string
}

// recorder answers every request with the canned response for its path and keeps a log
type recorder struct {
	mu        sync.Mutex
	calls     []recorded
	responses map[string]string
	status    map[string]int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recorded{Method: r.Method, Path: r.URL.Path, Query: map[string]string{}}
	for k := range r.URL.Query() {
		call.Query[k] = r.URL.Query().Get(k)
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}
	rec.mu.Lock()
	rec.calls = append(rec.calls, call)
	rec.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if code, ok := rec.status[key]; ok {
		w.WriteHeader(code)
		return
	}
	if body, ok := rec.responses[key]; ok {
		_, _ = w.Write([]byte(body))
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (rec *recorder) last() recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.calls[len(rec.calls)-1]
}

func newClient(t *testing.T, rec *recorder) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	common := config.DefaultConfig().Common
	common.RetryDelay = config.Duration{Duration: time.Millisecond}
	return New(config.TrelloConfig{Key: "k", Token: "tok"}, common, zap.NewNop().Sugar(), WithBaseURL(srv.URL))
}

func TestCardsInListSendsCredentials(t *testing.T) {
	rec := &recorder{responses: map[string]string{
		"GET /lists/todo/cards": `[{"id":"c1","name":"ABC-1","idList":"todo","pos":16384,"labels":[{"id":"l1","name":"staging","color":"green"}],"idMembers":["m1"]}]`,
	}}
	c := newClient(t, rec)

	cards, err := c.CardsInList(context.Background(), "todo")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "ABC-1", cards[0].Name)
	assert.Equal(t, 16384.0, cards[0].Pos)
	assert.True(t, cards[0].HasLabel("Staging"))
	assert.Equal(t, []string{"m1"}, cards[0].MemberIDs)

	call := rec.last()
	assert.Equal(t, "k", call.Query["key"])
	assert.Equal(t, "tok", call.Query["token"])
	assert.Equal(t, cardFields, call.Query["fields"])
}

func TestCreateCardPositions(t *testing.T) {
	rec := &recorder{responses: map[string]string{"POST /cards": `{"id":"new","name":"ABC-1","idList":"todo"}`}}
	c := newClient(t, rec)

	card, err := c.CreateCard(context.Background(), "todo", models.NewCard{Name: "ABC-1", Desc: "d", Position: models.At(150)})
	require.NoError(t, err)
	assert.Equal(t, "new", card.ID)
	assert.Equal(t, map[string]string{"idList": "todo", "name": "ABC-1", "desc": "d", "pos": "150"}, rec.last().Body)

	_, err = c.CreateCard(context.Background(), "todo", models.NewCard{Name: "ABC-2", Position: models.Top()})
	require.NoError(t, err)
	assert.Equal(t, "top", rec.last().Body["pos"])
}

func TestCopyCardKeepsEverything(t *testing.T) {
	rec := &recorder{responses: map[string]string{"POST /cards": `{"id":"copy","idList":"failed"}`}}
	c := newClient(t, rec)

	card, err := c.CopyCard(context.Background(), "c1", "failed", models.Bottom())
	require.NoError(t, err)
	assert.Equal(t, "copy", card.ID)
	assert.Equal(t, map[string]string{
		"idList":         "failed",
		"idCardSource":   "c1",
		"keepFromSource": "all",
		"pos":            "bottom",
	}, rec.last().Body)
}

func TestDeleteMissingCardIsNotAnError(t *testing.T) {
	rec := &recorder{status: map[string]int{"DELETE /cards/gone": http.StatusNotFound}}
	c := newClient(t, rec)
	assert.NoError(t, c.DeleteCard(context.Background(), "gone"))
}

func TestDeleteCardFailsAfterRetry(t *testing.T) {
	rec := &recorder{status: map[string]int{"DELETE /cards/c1": http.StatusBadGateway}}
	c := newClient(t, rec)
	require.Error(t, c.DeleteCard(context.Background(), "c1"))
	assert.Len(t, rec.calls, 2)
}

func TestCardCreationIsNotRetried(t *testing.T) {
	rec := &recorder{status: map[string]int{"POST /cards": http.StatusBadGateway}}
	c := newClient(t, rec)
	ctx := context.Background()

	_, err := c.CopyCard(ctx, "c1", "todo", models.Bottom())
	require.Error(t, err)
	assert.Len(t, rec.calls, 1)

	_, err = c.CreateCard(ctx, "todo", models.NewCard{Name: "ABC-1", Position: models.Bottom()})
	require.Error(t, err)
	assert.Len(t, rec.calls, 2)
}

func TestAddLabelByIDOrName(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)

	require.NoError(t, c.AddLabel(context.Background(), "c1", models.Label{ID: "l1", Name: "staging"}))
	assert.Equal(t, "/cards/c1/idLabels", rec.last().Path)
	assert.Equal(t, map[string]string{"value": "l1"}, rec.last().Body)

	require.NoError(t, c.AddLabel(context.Background(), "c1", models.Label{Name: "hotfix", Color: "red"}))
	assert.Equal(t, "/cards/c1/labels", rec.last().Path)
	assert.Equal(t, map[string]string{"name": "hotfix", "color": "red"}, rec.last().Body)
}

func TestAddLabelReusesCreatedLabel(t *testing.T) {
	rec := &recorder{responses: map[string]string{
		"POST /cards/c1/labels": `{"id":"l9","name":"staging","color":"green"}`,
	}}
	c := newClient(t, rec)
	ctx := context.Background()
	staging := models.Label{Name: "staging", Color: "green"}

	require.NoError(t, c.AddLabel(ctx, "c1", staging))
	require.NoError(t, c.AddLabel(ctx, "c2", staging))
	require.NoError(t, c.AddLabel(ctx, "c3", staging))

	var created int
	for _, call := range rec.calls {
		if strings.HasSuffix(call.Path, "/labels") {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, recorded{Method: "POST", Path: "/cards/c3/idLabels", Query: rec.last().Query, Body: map[string]string{"value": "l9"}}, rec.last())
}

func TestAddLabelRecreatesDeletedLabel(t *testing.T) {
	rec := &recorder{
		responses: map[string]string{"POST /cards/c1/labels": `{"id":"l9","name":"hotfix","color":"red"}`},
		status:    map[string]int{"POST /cards/c2/idLabels": http.StatusNotFound},
	}
	c := newClient(t, rec)
	ctx := context.Background()
	hotfix := models.Label{Name: "hotfix", Color: "red"}

	require.NoError(t, c.AddLabel(ctx, "c1", hotfix))
	require.NoError(t, c.AddLabel(ctx, "c2", hotfix))
	assert.Equal(t, "/cards/c2/labels", rec.last().Path)
}

func TestDecorations(t *testing.T) {
	rec := &recorder{responses: map[string]string{"POST /cards/c1/checklists": `{"id":"cl1","name":"Subtasks","idCard":"c1"}`}}
	c := newClient(t, rec)
	ctx := context.Background()

	require.NoError(t, c.AddMember(ctx, "c1", "m1"))
	assert.Equal(t, recorded{Method: "POST", Path: "/cards/c1/idMembers", Query: rec.last().Query, Body: map[string]string{"value": "m1"}}, rec.last())

	require.NoError(t, c.AddAttachment(ctx, "c1", "https://jira.example/secure/attachment/7/shot.png"))
	assert.Equal(t, "shot.png", rec.last().Body["name"])

	cl, err := c.AddChecklist(ctx, "c1", "Subtasks")
	require.NoError(t, err)
	assert.Equal(t, "cl1", cl.ID)

	require.NoError(t, c.AddChecklistItem(ctx, cl.ID, "ABC-10 write tests"))
	assert.Equal(t, "/checklists/cl1/checkItems", rec.last().Path)
}

func TestListOperations(t *testing.T) {
	rec := &recorder{responses: map[string]string{
		"POST /lists":            `{"id":"arch1","name":"Sprint_4_archive","idBoard":"archive"}`,
		"GET /boards/b1/lists":   `[{"id":"l1","name":"Todo","idBoard":"b1"}]`,
		"GET /boards/b1":         `{"id":"b1","name":"QA","url":"https://trello.example/b/b1"}`,
		"GET /boards/b1/labels":  `[{"id":"x","name":"hotfix","color":"red"}]`,
		"GET /boards/b1/members": `[{"id":"m1","username":"pat","fullName":"Pat Tester"}]`,
	}}
	c := newClient(t, rec)
	ctx := context.Background()

	l, err := c.AddList(ctx, "archive", "Sprint_4_archive")
	require.NoError(t, err)
	assert.Equal(t, "arch1", l.ID)

	require.NoError(t, c.MoveAllCardsInList(ctx, "complete", "archive", "arch1"))
	assert.Equal(t, "/lists/complete/moveAllCards", rec.last().Path)
	assert.Equal(t, map[string]string{"idBoard": "archive", "idList": "arch1"}, rec.last().Body)

	require.NoError(t, c.ArchiveAllCardsInList(ctx, "todo"))
	assert.Equal(t, "/lists/todo/archiveAllCards", rec.last().Path)

	lists, err := c.Lists(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "open", rec.last().Query["filter"])
	assert.Equal(t, "Todo", lists[0].Name)

	board, err := c.GetBoard(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "QA", board.Name)

	labels, err := c.Labels(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "red", labels[0].Color)

	members, err := c.Members(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Pat Tester", members[0].FullName)
}

func TestGetMissingBoard(t *testing.T) {
	rec := &recorder{status: map[string]int{"GET /boards/nope": http.StatusNotFound}}
	c := newClient(t, rec)

	board, err := c.GetBoard(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, board)
}
