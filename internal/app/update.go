package app

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all messages and updates state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll = min(m.scroll, m.maxScroll())
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.Type == tea.KeyCtrlC {
		return m.decide(false)
	}

	switch m.screen {
	case ScreenReview:
		return m.handleReviewKey(msg)
	case ScreenConfirmation:
		return m.handleConfirmationKey(msg)
	}

	return m, nil
}

func (m Model) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m.decide(false)
	case "up", "k":
		if m.scroll > 0 {
			m.scroll--
		}
	case "down", "j":
		if m.scroll < m.maxScroll() {
			m.scroll++
		}
	case "pgup":
		m.scroll = max(m.scroll-m.visibleLines(), 0)
	case "pgdown", " ":
		m.scroll = min(m.scroll+m.visibleLines(), m.maxScroll())
	case "home", "g":
		m.scroll = 0
	case "end", "G":
		m.scroll = m.maxScroll()
	case "enter", "a":
		m.screen = ScreenConfirmation
		m.confirmSelection = 1
	}
	return m, nil
}

func (m Model) handleConfirmationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.decide(false)
	case "left", "right", "tab", "h", "l":
		m.confirmSelection = 1 - m.confirmSelection
	case "y":
		return m.decide(true)
	case "n":
		return m.decide(false)
	case "enter":
		return m.decide(m.confirmSelection == 0)
	case "esc":
		m.screen = ScreenReview
	}
	return m, nil
}

func (m Model) decide(approve bool) (tea.Model, tea.Cmd) {
	m.approved = approve
	m.screen = ScreenDone
	m.shouldQuit = true
	return m, tea.Quit
}

// visibleLines is how many mutation lines fit under the banner and summary
func (m Model) visibleLines() int {
	return max(m.height-16, 5)
}

func (m Model) maxScroll() int {
	return max(len(m.lines)-m.visibleLines(), 0)
}
