// Package testassets keeps the release's regression-test project in step with the work
// items a tester handled, and feeds run results back to the issue tracker.
package testassets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bbeale/GitTreasures/internal/jira"
	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// ErrRunNotFound is returned by SyncResults when the release has no test run yet
var ErrRunNotFound = errors.New("test run not found")

// TestManager is the subset of the test-case manager used here
type TestManager interface {
	Projects(ctx context.Context) ([]models.TestProject, error)
	AddProject(ctx context.Context, name, announcement string) (*models.TestProject, error)
	Sections(ctx context.Context, projectID int) ([]models.TestSection, error)
	Section(ctx context.Context, sectionID int) (*models.TestSection, error)
	AddSprintSection(ctx context.Context, projectID int, name string) (*models.TestSection, error)
	AddStorySection(ctx context.Context, projectID, parentID int, name, description string) (*models.TestSection, error)
	AddTestCase(ctx context.Context, sectionID int, title, refs string) (*models.TestCase, error)
	Runs(ctx context.Context, projectID int) ([]models.TestRun, error)
	AddRun(ctx context.Context, projectID int, name string) (*models.TestRun, error)
	RunResults(ctx context.Context, runID int) ([]models.TestResult, error)
	Test(ctx context.Context, testID int) (*models.Test, error)
	Case(ctx context.Context, caseID int) (*models.TestCase, error)
}

// Tracker is the subset of the issue tracker result sync writes to
type Tracker interface {
	CreateDefect(ctx context.Context, d models.NewDefect) (*jira.CreatedIssue, error)
	TransitionIssue(ctx context.Context, key, transitionID string) error
}

// ProjectName is the test project holding a release's sections
func ProjectName(sprint string) string { return sprint + " Tests" }

// RunName is the test run a release is tested in
func RunName(sprint string) string { return sprint + " Testing" }

// StorySectionName names the section holding one work item's cases
func StorySectionName(item models.WorkItem) string {
	return item.Key + " - " + item.Summary
}

// KeyFromSection recovers the work item key from a story section name
func KeyFromSection(name string) string {
	key, _, _ := strings.Cut(name, " - ")
	return strings.TrimSpace(key)
}

func sectionDescription(item models.WorkItem) string {
	updated := ""
	if !item.Updated.IsZero() {
		updated = item.Updated.Format("2006-01-02T15:04:05.000-0700")
	}
	return fmt.Sprintf("%s\n\nURL:\n%s\n\nUpdated on:\n%s", item.Description, item.URL, updated)
}

type Reconciler struct {
	tm           TestManager
	tracker      Tracker
	transitionID string
	log          *zap.SugaredLogger
}

// New builds a reconciler. transitionID is the workflow transition applied to items
// whose regression tests passed.
func New(tm TestManager, tracker Tracker, transitionID string, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{tm: tm, tracker: tracker, transitionID: transitionID, log: log.Named("testassets")}
}

// Release describes the test assets of one release after population
type Release struct {
	Project      models.TestProject
	Sprint       models.TestSection
	Run          *models.TestRun
	RunCreated   bool
	AddedStories []string
}

// PopulateRelease makes sure the release project, the sprint section, one story section
// per tester-handled item and the release test run exist. Items already present
// anywhere in the release are left alone.
func (r *Reconciler) PopulateRelease(ctx context.Context, sprint string, items []models.WorkItem) (*Release, error) {
	if sprint == "" {
		return nil, errors.New("populate test assets: no current sprint")
	}

	project, err := r.project(ctx, ProjectName(sprint))
	if err != nil {
		return nil, err
	}
	rel := &Release{Project: *project}

	sections, err := r.tm.Sections(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	var sprintSection *models.TestSection
	var stories []models.TestSection
	for i := range sections {
		s := sections[i]
		switch {
		case !s.IsSprintLevel():
			stories = append(stories, s)
		case s.Name == sprint && sprintSection == nil:
			sprintSection = &s
		}
	}
	if sprintSection == nil {
		if sprintSection, err = r.tm.AddSprintSection(ctx, project.ID, sprint); err != nil {
			return nil, err
		}
		r.log.Infow("added sprint section", "project", project.Name, "sprint", sprint)
	}
	rel.Sprint = *sprintSection

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !item.ForQATeam || hasStory(stories, item.Key) {
			continue
		}
		story, err := r.tm.AddStorySection(ctx, project.ID, sprintSection.ID, StorySectionName(item), sectionDescription(item))
		if err != nil {
			r.log.Errorw("could not add story section", "key", item.Key, "error", err)
			continue
		}
		stories = append(stories, *story)
		rel.AddedStories = append(rel.AddedStories, item.Key)

		if _, err := r.tm.AddTestCase(ctx, story.ID, item.Key+" regression", item.Key); err != nil {
			r.log.Warnw("could not add placeholder test case", "key", item.Key, "error", err)
		}
	}

	runs, err := r.tm.Runs(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if strings.Contains(runs[i].Name, RunName(sprint)) || strings.Contains(runs[i].Name, "Master") {
			rel.Run = &runs[i]
			break
		}
	}
	if rel.Run == nil {
		if rel.Run, err = r.tm.AddRun(ctx, project.ID, RunName(sprint)); err != nil {
			return nil, err
		}
		rel.RunCreated = true
		r.log.Infow("added test run", "run", rel.Run.Name)
	}

	r.log.Infow("test assets populated", "project", project.Name, "stories_added", len(rel.AddedStories))
	return rel, nil
}

func hasStory(stories []models.TestSection, key string) bool {
	for _, s := range stories {
		if strings.EqualFold(KeyFromSection(s.Name), key) {
			return true
		}
	}
	return false
}

func (r *Reconciler) project(ctx context.Context, name string) (*models.TestProject, error) {
	projects, err := r.tm.Projects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}
	p, err := r.tm.AddProject(ctx, name, "")
	if err != nil {
		return nil, err
	}
	r.log.Infow("added test project", "project", name)
	return p, nil
}

// SyncReport is what SyncResults filed and transitioned
type SyncReport struct {
	Run          models.TestRun
	Defects      []string
	Transitioned []string
	Errors       int
}

// SyncResults files a defect sub-task for every failed result with a failed step and
// moves items whose results all passed through the staging transition. A single
// result that cannot be handled is logged and the rest continue.
func (r *Reconciler) SyncResults(ctx context.Context, sprint string) (*SyncReport, error) {
	projects, err := r.tm.Projects(ctx)
	if err != nil {
		return nil, err
	}
	var project *models.TestProject
	for i := range projects {
		if projects[i].Name == ProjectName(sprint) {
			project = &projects[i]
			break
		}
	}
	if project == nil {
		return nil, fmt.Errorf("%w: no project %q", ErrRunNotFound, ProjectName(sprint))
	}

	runs, err := r.tm.Runs(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	var run *models.TestRun
	for i := range runs {
		if runs[i].Name == RunName(sprint) {
			run = &runs[i]
			break
		}
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, RunName(sprint))
	}

	report := &SyncReport{Run: *run}
	results, err := r.tm.RunResults(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	failedKeys := make(map[string]bool)
	var passed []string
	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if res.StatusID != models.TestStatusFailed && res.StatusID != models.TestStatusPassed {
			continue
		}

		origin, err := r.origin(ctx, res.TestID)
		if err != nil {
			r.log.Errorw("could not trace result to a work item", "test", res.TestID, "error", err)
			report.Errors++
			continue
		}

		if res.StatusID == models.TestStatusPassed {
			passed = append(passed, origin.key)
			continue
		}
		failedKeys[origin.key] = true

		step := res.FailedStep()
		if step == nil {
			continue
		}
		defect := models.NewDefect{
			ParentKey:   origin.key,
			Summary:     fmt.Sprintf("[TestRail] %s: %s - %s - %s", origin.section, origin.title, step.Content, step.Actual),
			Description: fmt.Sprintf("[TestRail - %s|%s]", run.Name, run.URL),
		}
		created, err := r.tracker.CreateDefect(ctx, defect)
		if err != nil {
			r.log.Errorw("could not file defect", "parent", origin.key, "error", err)
			report.Errors++
			continue
		}
		r.log.Infow("filed defect", "parent", origin.key, "defect", created.Key)
		report.Defects = append(report.Defects, created.Key)
	}

	seen := make(map[string]bool)
	for _, key := range passed {
		if failedKeys[key] || seen[key] {
			continue
		}
		seen[key] = true
		if err := r.tracker.TransitionIssue(ctx, key, r.transitionID); err != nil {
			r.log.Errorw("could not transition work item", "key", key, "error", err)
			report.Errors++
			continue
		}
		report.Transitioned = append(report.Transitioned, key)
	}
	return report, nil
}

type origin struct {
	key     string
	section string
	title   string
}

// origin follows result -> test -> case -> section to the work item the test covers
func (r *Reconciler) origin(ctx context.Context, testID int) (origin, error) {
	test, err := r.tm.Test(ctx, testID)
	if err != nil {
		return origin{}, err
	}
	if test == nil {
		return origin{}, fmt.Errorf("test %d not found", testID)
	}
	tc, err := r.tm.Case(ctx, test.CaseID)
	if err != nil {
		return origin{}, err
	}
	if tc == nil {
		return origin{}, fmt.Errorf("case %d not found", test.CaseID)
	}
	section, err := r.tm.Section(ctx, tc.SectionID)
	if err != nil {
		return origin{}, err
	}
	if section == nil {
		return origin{}, fmt.Errorf("section %d not found", tc.SectionID)
	}
	key := KeyFromSection(section.Name)
	if key == "" {
		return origin{}, fmt.Errorf("section %q has no work item key", section.Name)
	}
	return origin{key: key, section: section.Name, title: test.Title}, nil
}
