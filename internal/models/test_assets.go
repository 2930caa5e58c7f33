package models

// Test result status ids used by the test-case manager
const (
	TestStatusPassed = 1
	TestStatusFailed = 5
)

// TestProject is a test-case manager project, one per release
type TestProject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TestSection is a sprint-level section (ParentID nil) or a story-level child section
type TestSection struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int   `json:"parent_id"`
	Depth       int    `json:"depth"`
}

// IsSprintLevel reports whether the section sits at the top of the hierarchy
func (s TestSection) IsSprintLevel() bool {
	return s.ParentID == nil
}

type TestCase struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	SectionID int    `json:"section_id"`
	Refs      string `json:"refs"`
}

type TestRun struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	FailedCount int    `json:"failed_count"`
	PassedCount int    `json:"passed_count"`
}

// Test is a test case instantiated in a run
type Test struct {
	ID     int    `json:"id"`
	CaseID int    `json:"case_id"`
	RunID  int    `json:"run_id"`
	Title  string `json:"title"`
}

// StepResult is one step of a stepped test result
type StepResult struct {
	Content  string `json:"content"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	StatusID int    `json:"status_id"`
}

type TestResult struct {
	ID          int          `json:"id"`
	TestID      int          `json:"test_id"`
	StatusID    int          `json:"status_id"`
	Comment     string       `json:"comment"`
	StepResults []StepResult `json:"custom_step_results"`
}

// FailedStep returns the first failed step, or nil
func (r TestResult) FailedStep() *StepResult {
	for i := range r.StepResults {
		if r.StepResults[i].StatusID == TestStatusFailed {
			return &r.StepResults[i]
		}
	}
	return nil
}

// NewDefect is a defect to file against a parent work item
type NewDefect struct {
	ParentKey   string
	Summary     string
	Description string
}
