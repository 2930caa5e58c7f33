package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/testrail"
)

// TestManager is an in-memory test-case manager
type TestManager struct {
	mu     sync.Mutex
	nextID int

	projects []models.TestProject
	sections map[int][]models.TestSection
	cases    map[int]models.TestCase
	runs     map[int][]models.TestRun
	tests    map[int]models.Test
	results  map[int][]models.TestResult

	Fail  map[string]error
	Calls []string
}

func NewTestManager() *TestManager {
	return &TestManager{
		sections: make(map[int][]models.TestSection),
		cases:    make(map[int]models.TestCase),
		runs:     make(map[int][]models.TestRun),
		tests:    make(map[int]models.Test),
		results:  make(map[int][]models.TestResult),
		Fail:     make(map[string]error),
	}
}

func (m *TestManager) id() int {
	m.nextID++
	return m.nextID
}

func (m *TestManager) call(method string) error {
	m.Calls = append(m.Calls, method)
	return m.Fail[method]
}

// SeedProject adds a project and returns it
func (m *TestManager) SeedProject(name string) models.TestProject {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.TestProject{ID: m.id(), Name: name}
	m.projects = append(m.projects, p)
	return p
}

// SeedSection adds a section; parentID 0 makes it sprint level
func (m *TestManager) SeedSection(projectID, parentID int, name string) models.TestSection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addSection(projectID, parentID, name, "")
}

// SeedRun adds a run to a project
func (m *TestManager) SeedRun(projectID int, name string) models.TestRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addRun(projectID, name)
}

// SeedResult records a result in a run for a new case in sectionID
func (m *TestManager) SeedResult(runID, sectionID int, title string, status int, steps ...models.StepResult) models.TestResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	tc := models.TestCase{ID: m.id(), Title: title, SectionID: sectionID}
	m.cases[tc.ID] = tc
	t := models.Test{ID: m.id(), CaseID: tc.ID, RunID: runID, Title: title}
	m.tests[t.ID] = t
	r := models.TestResult{ID: m.id(), TestID: t.ID, StatusID: status, StepResults: steps}
	m.results[runID] = append(m.results[runID], r)
	return r
}

// StoryNames lists the child sections of a project
func (m *TestManager) StoryNames(projectID int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sections[projectID] {
		if !s.IsSprintLevel() {
			out = append(out, s.Name)
		}
	}
	return out
}

// CasesIn lists the cases of a section
func (m *TestManager) CasesIn(sectionID int) []models.TestCase {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TestCase
	for id := 1; id <= m.nextID; id++ {
		if tc, ok := m.cases[id]; ok && tc.SectionID == sectionID {
			out = append(out, tc)
		}
	}
	return out
}

func (m *TestManager) addSection(projectID, parentID int, name, desc string) models.TestSection {
	s := models.TestSection{ID: m.id(), Name: name, Description: desc}
	if parentID > 0 {
		pid := parentID
		s.ParentID = &pid
		s.Depth = 1
	}
	m.sections[projectID] = append(m.sections[projectID], s)
	return s
}

func (m *TestManager) addRun(projectID int, name string) models.TestRun {
	r := models.TestRun{ID: m.id(), Name: name}
	r.URL = fmt.Sprintf("https://testrail.example/index.php?/runs/view/%d", r.ID)
	m.runs[projectID] = append(m.runs[projectID], r)
	return r
}

func (m *TestManager) Projects(context.Context) ([]models.TestProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Projects"); err != nil {
		return nil, err
	}
	return append([]models.TestProject(nil), m.projects...), nil
}

func (m *TestManager) AddProject(_ context.Context, name, _ string) (*models.TestProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("AddProject"); err != nil {
		return nil, err
	}
	p := models.TestProject{ID: m.id(), Name: name}
	m.projects = append(m.projects, p)
	return &p, nil
}

func (m *TestManager) Sections(_ context.Context, projectID int) ([]models.TestSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Sections"); err != nil {
		return nil, err
	}
	return append([]models.TestSection(nil), m.sections[projectID]...), nil
}

func (m *TestManager) Section(_ context.Context, sectionID int) (*models.TestSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Section"); err != nil {
		return nil, err
	}
	for _, sections := range m.sections {
		for _, s := range sections {
			if s.ID == sectionID {
				return &s, nil
			}
		}
	}
	return nil, nil
}

func (m *TestManager) AddSprintSection(_ context.Context, projectID int, name string) (*models.TestSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("AddSprintSection"); err != nil {
		return nil, err
	}
	s := m.addSection(projectID, 0, name, "")
	return &s, nil
}

func (m *TestManager) AddStorySection(_ context.Context, projectID, parentID int, name, description string) (*models.TestSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("AddStorySection"); err != nil {
		return nil, err
	}
	if parentID <= 0 {
		return nil, fmt.Errorf("story section %q needs a parent sprint section", name)
	}
	s := m.addSection(projectID, parentID, name, description)
	return &s, nil
}

func (m *TestManager) AddTestCase(_ context.Context, sectionID int, title, refs string) (*models.TestCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("AddTestCase"); err != nil {
		return nil, err
	}
	for _, sections := range m.sections {
		for _, s := range sections {
			if s.ID != sectionID {
				continue
			}
			if s.IsSprintLevel() {
				return nil, fmt.Errorf("add test case %q: %w", title, testrail.ErrSprintLevelCase)
			}
			tc := models.TestCase{ID: m.id(), Title: title, SectionID: sectionID, Refs: refs}
			m.cases[tc.ID] = tc
			return &tc, nil
		}
	}
	return nil, fmt.Errorf("add test case %q: section %d not found", title, sectionID)
}

func (m *TestManager) Runs(_ context.Context, projectID int) ([]models.TestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Runs"); err != nil {
		return nil, err
	}
	return append([]models.TestRun(nil), m.runs[projectID]...), nil
}

func (m *TestManager) AddRun(_ context.Context, projectID int, name string) (*models.TestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("AddRun"); err != nil {
		return nil, err
	}
	r := m.addRun(projectID, name)
	return &r, nil
}

func (m *TestManager) RunResults(_ context.Context, runID int) ([]models.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("RunResults"); err != nil {
		return nil, err
	}
	return append([]models.TestResult(nil), m.results[runID]...), nil
}

func (m *TestManager) Test(_ context.Context, testID int) (*models.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Test"); err != nil {
		return nil, err
	}
	t, ok := m.tests[testID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *TestManager) Case(_ context.Context, caseID int) (*models.TestCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Case"); err != nil {
		return nil, err
	}
	tc, ok := m.cases[caseID]
	if !ok {
		return nil, nil
	}
	return &tc, nil
}
