package app

import (
	"testing"

	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/reconcile"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(n int) *reconcile.Plan {
	p := &reconcile.Plan{BoardID: "prod"}
	for i := 0; i < n; i++ {
		p.Mutations = append(p.Mutations, models.Mutation{
			Kind: models.MutationCreate, Key: "ABC-" + string(rune('A'+i%26)),
			To: models.ListTodo, Position: models.Bottom(),
		})
	}
	p.Mutations = append(p.Mutations, models.Mutation{
		Kind: models.MutationMove, Key: "ABC-99", From: models.ListTodo, To: models.ListFailed, Position: models.Bottom(),
	})
	p.Outcomes = []reconcile.Outcome{{Key: "ABC-100", Skip: "no key"}}
	return p
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
		cmd = c
	}
	return m, cmd
}

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestReviewApprove(t *testing.T) {
	m := New(testPlan(3), Header{Mode: "normal"})
	assert.Equal(t, ScreenReview, m.Screen())

	m, cmd := press(t, m, "enter")
	assert.Equal(t, ScreenConfirmation, m.Screen())
	assert.Nil(t, cmd)

	// selection starts on No
	m, cmd = press(t, m, "left", "enter")
	assert.True(t, isQuit(t, cmd))
	assert.True(t, m.Approved())
	assert.Equal(t, ScreenDone, m.Screen())
}

func TestReviewEnterOnDefaultDeclines(t *testing.T) {
	m, cmd := press(t, New(testPlan(1), Header{}), "enter", "enter")
	assert.True(t, isQuit(t, cmd))
	assert.False(t, m.Approved())
}

func TestReviewShortcuts(t *testing.T) {
	m, _ := press(t, New(testPlan(1), Header{}), "a", "y")
	assert.True(t, m.Approved())

	m, _ = press(t, New(testPlan(1), Header{}), "a", "n")
	assert.False(t, m.Approved())

	m, cmd := press(t, New(testPlan(1), Header{}), "q")
	assert.True(t, isQuit(t, cmd))
	assert.False(t, m.Approved())

	m, cmd = press(t, New(testPlan(1), Header{}), "a", "left", "ctrl+c")
	assert.True(t, isQuit(t, cmd))
	assert.False(t, m.Approved())
}

func TestReviewEscGoesBack(t *testing.T) {
	m, _ := press(t, New(testPlan(1), Header{}), "enter", "esc")
	assert.Equal(t, ScreenReview, m.Screen())
	assert.False(t, m.Approved())
}

func TestReviewScrollIsClamped(t *testing.T) {
	m := New(testPlan(40), Header{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	m, _ = press(t, m, "up")
	assert.Zero(t, m.scroll)

	m, _ = press(t, m, "G")
	assert.Equal(t, m.maxScroll(), m.scroll)
	m, _ = press(t, m, "down")
	assert.Equal(t, m.maxScroll(), m.scroll)

	m, _ = press(t, m, "g")
	assert.Zero(t, m.scroll)
}

func TestViewShowsPlan(t *testing.T) {
	m := New(testPlan(2), Header{Mode: "normal_dev", DryRun: true})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	view := next.(Model).View()

	assert.Contains(t, view, "prod")
	assert.Contains(t, view, "ABC-99")
	assert.Contains(t, view, "normal_dev")
	assert.Contains(t, view, "DRY RUN")
	assert.Contains(t, view, "1 items left out")
}

func TestViewEmptyPlan(t *testing.T) {
	m := New(&reconcile.Plan{BoardID: "prod"}, Header{})
	assert.Contains(t, m.View(), "nothing to change")
	assert.Empty(t, m.counts())
}

func TestScrollWindow(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, lines, scrollWindow(lines, 0, 10))

	out := scrollWindow(lines, 1, 3)
	require.Len(t, out, 3)
	assert.Contains(t, out[0], "more above")
	assert.Equal(t, "c", out[1])
	assert.Contains(t, out[2], "more below")
}

func TestTouchedLists(t *testing.T) {
	m := New(testPlan(1), Header{})
	assert.Equal(t, []models.ListRole{models.ListTodo, models.ListFailed}, m.touchedLists())
}
