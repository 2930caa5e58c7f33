package models

import "time"

// RunMode selects which parts of a reconciliation run execute
type RunMode struct {
	// TestMode targets the test board lists instead of production
	TestMode bool `json:"test_mode"`
	// TestRail also populates test assets for the release
	TestRail bool `json:"testrail"`
	// Results also syncs test run results back to the issue tracker
	Results bool `json:"results"`
	// PersistOnly skips board reconciliation and only syncs test results
	PersistOnly bool `json:"persist_only"`
}

func (m RunMode) String() string {
	s := "normal"
	if m.PersistOnly {
		s = "persist"
	} else if m.TestRail {
		s = "testrail"
	}
	if m.TestMode {
		s += "_dev"
	}
	return s
}

// RunSummary records what a reconciliation run did
type RunSummary struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Commits    int       `json:"commits"`
	Items      int       `json:"items"`
	Created    int       `json:"created"`
	Moved      int       `json:"moved"`
	Archived   int       `json:"archived"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	DryRun     bool      `json:"dry_run"`
	Error      string    `json:"error,omitempty"`
}

// Tally folds item results into the summary counters
func (s *RunSummary) Tally(results []ItemResult) {
	for _, r := range results {
		switch {
		case IsStatusCreated(r.Status):
			s.Created++
		case IsStatusMoved(r.Status):
			s.Moved++
		case IsStatusSkipped(r.Status):
			s.Skipped++
		case IsStatusFailed(r.Status):
			s.Failed++
		}
	}
}
