// Package app is the interactive review shown before a plan is applied to the board.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/reconcile"

	tea "github.com/charmbracelet/bubbletea"
)

// Header is the run context shown above the plan
type Header struct {
	Mode    string
	BoardID string
	DryRun  bool
}

// Model is the main application state
type Model struct {
	header Header
	plan   *reconcile.Plan
	// lines are the rendered mutations, built once
	lines []string

	// Navigation
	screen     Screen
	scroll     int
	shouldQuit bool

	// UI state
	confirmSelection int // 0=Yes, 1=No
	approved         bool

	// Window size
	width  int
	height int
}

// New creates a review model for plan
func New(plan *reconcile.Plan, h Header) Model {
	m := Model{
		header:           h,
		plan:             plan,
		screen:           ScreenReview,
		confirmSelection: 1,
		width:            80,
		height:           24,
	}
	if h.BoardID == "" && plan != nil {
		m.header.BoardID = plan.BoardID
	}
	m.lines = m.buildLines()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Approved reports whether the plan was accepted
func (m Model) Approved() bool {
	return m.approved
}

// Screen is the screen currently shown
func (m Model) Screen() Screen {
	return m.screen
}

// Review shows plan full-screen and blocks until it is accepted or declined.
// Cancelling ctx declines.
func Review(ctx context.Context, plan *reconcile.Plan, h Header, opts ...tea.ProgramOption) (bool, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(New(plan, h), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("review: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return false, nil
	}
	return fm.Approved(), nil
}

// counts summarizes the plan by mutation kind, in display order
func (m Model) counts() []kindCount {
	if m.plan == nil {
		return nil
	}
	kinds := []models.MutationKind{
		models.MutationCreate,
		models.MutationMove,
		models.MutationDelete,
		models.MutationAddLabel,
		models.MutationAddMember,
		models.MutationArchive,
	}
	var out []kindCount
	for _, k := range kinds {
		if n := m.plan.Count(k); n > 0 {
			out = append(out, kindCount{kind: k, n: n})
		}
	}
	return out
}

type kindCount struct {
	kind models.MutationKind
	n    int
}
