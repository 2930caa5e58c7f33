// Package runner drives one reconciliation run: ledger population, work item fetch,
// board planning and apply, test assets, and the run history record.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/jira"
	"github.com/bbeale/GitTreasures/internal/ledger"
	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/reconcile"
	"github.com/bbeale/GitTreasures/internal/testassets"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrBusy is returned when this process is already running a reconciliation
var ErrBusy = errors.New("a run is already in progress")

// ErrDeclined is returned when the plan was rejected at review
var ErrDeclined = errors.New("plan declined at review")

// Tracker is the issue tracker as the runner uses it
type Tracker interface {
	testassets.Tracker
	Rules(roster models.Roster) jira.Rules
	WorkItems(ctx context.Context, filterID string, rules jira.Rules, limit int) ([]models.WorkItem, error)
	CurrentSprint(ctx context.Context) (*jira.Sprint, error)
}

// Review is shown the plan before it is applied and reports whether to go ahead
type Review func(ctx context.Context, plan *reconcile.Plan) (bool, error)

type Deps struct {
	Config  *config.Config
	Ledger  *ledger.Ledger
	Commits ledger.CommitSource
	Tracker Tracker
	Board   reconcile.Board
	// Tests is nil when no test-case manager is configured
	Tests  testassets.TestManager
	Review Review
	Log    *zap.SugaredLogger
	Now    func() time.Time
}

type Options struct {
	Mode   models.RunMode
	DryRun bool
}

// Report is everything a run produced. Fields for steps that did not run stay nil.
type Report struct {
	Summary models.RunSummary
	Plan    *reconcile.Plan
	Result  *reconcile.Result
	Release *testassets.Release
	Sync    *testassets.SyncReport
}

type Runner struct {
	deps    Deps
	log     *zap.SugaredLogger
	running atomic.Bool
}

func New(d Deps) *Runner {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Runner{deps: d, log: d.Log.Named("runner")}
}

// Running reports whether a run is in progress in this process
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run executes one reconciliation under the ledger lock and the configured deadline,
// and records its summary in the run history whatever the outcome.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.running.Store(false)

	cfg := r.deps.Config
	unlock, err := ledger.Lock(cfg.DBPath(), 2*cfg.Common.RunTimeout.Duration)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			r.log.Warnw("could not release ledger lock", "error", err)
		}
	}()

	if d := cfg.Common.RunTimeout.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	rep := &Report{Summary: models.RunSummary{
		ID:        uuid.NewString(),
		Mode:      opts.Mode.String(),
		StartedAt: r.deps.Now().UTC(),
		DryRun:    opts.DryRun,
	}}
	log := r.log.With("run", rep.Summary.ID, "mode", rep.Summary.Mode)
	log.Infow("run started", "dry_run", opts.DryRun)

	runErr := r.run(ctx, log, opts, rep)

	rep.Summary.FinishedAt = r.deps.Now().UTC()
	if runErr != nil {
		rep.Summary.Error = runErr.Error()
		log.Errorw("run failed", "error", runErr)
	}
	if !opts.DryRun {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.deps.Ledger.SaveRun(saveCtx, rep.Summary); err != nil {
			log.Errorw("could not record run", "error", err)
		}
	}
	if runErr == nil {
		s := rep.Summary
		log.Infow("run finished", "created", s.Created, "moved", s.Moved, "archived", s.Archived,
			"skipped", s.Skipped, "failed", s.Failed, "took", s.FinishedAt.Sub(s.StartedAt).String())
	}
	return rep, runErr
}

func (r *Runner) run(ctx context.Context, log *zap.SugaredLogger, opts Options, rep *Report) error {
	cfg := r.deps.Config

	sprint, err := r.sprint(ctx, log)
	if err != nil {
		return err
	}

	if opts.Mode.PersistOnly {
		return r.syncResults(ctx, sprint, rep)
	}

	_, err = r.deps.Ledger.Populate(ctx, r.deps.Commits, ledger.PopulateOptions{
		Branch:     cfg.Git.WatchedBranch,
		KeyPattern: cfg.KeyRegex(),
		Lookback:   cfg.LookbackWindow(),
		Now:        r.deps.Now,
	})
	if err != nil {
		return fmt.Errorf("populate ledger: %w", err)
	}

	commits, err := r.deps.Ledger.All(ctx)
	if err != nil {
		return err
	}
	rep.Summary.Commits = len(commits)

	rules := r.deps.Tracker.Rules(cfg.Testers)
	var items, release []models.WorkItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = r.deps.Tracker.WorkItems(gctx, cfg.Jira.QAStatusFilterID, rules, cfg.Common.MaxConcurrent)
		return err
	})
	if r.testAssetsEnabled(opts) {
		g.Go(func() error {
			var err error
			release, err = r.deps.Tracker.WorkItems(gctx, cfg.Jira.ThisReleaseFilterID, rules, cfg.Common.MaxConcurrent)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch work items: %w", err)
	}
	rep.Summary.Items = len(items)
	log.Infow("work items fetched", "count", len(items), "release", len(release))

	links := make(map[string]string)
	if r.testAssetsEnabled(opts) && !opts.DryRun {
		rel, err := r.populateRelease(ctx, sprint, release)
		if err != nil {
			// test assets are additive; the board still gets reconciled
			log.Errorw("test assets not populated", "error", err)
		} else {
			rep.Release = rel
			for _, it := range release {
				if it.ForQATeam && rel.Run != nil && rel.Run.URL != "" {
					links[it.Key] = rel.Run.URL
				}
			}
		}
	}

	board := cfg.Board(opts.Mode.TestMode)
	lists := board.Lists.ByRole()
	snap, err := reconcile.TakeSnapshot(ctx, r.deps.Board, board.BoardID, lists)
	if err != nil {
		return err
	}

	rep.Plan = r.planner(sprint, links).Plan(items, commits, snap)
	log.Infow("plan ready", "mutations", len(rep.Plan.Mutations))

	if opts.DryRun {
		for _, o := range rep.Plan.Outcomes {
			if o.Skip != "" {
				rep.Summary.Skipped++
			}
		}
		return nil
	}

	if r.deps.Review != nil && len(rep.Plan.Mutations) > 0 {
		ok, err := r.deps.Review(ctx, rep.Plan)
		if err != nil {
			return fmt.Errorf("review plan: %w", err)
		}
		if !ok {
			return ErrDeclined
		}
	}

	res := reconcile.NewApplier(r.deps.Board, r.log).Apply(ctx, rep.Plan)
	rep.Result = &res
	rep.Summary.Tally(res.Items)
	rep.Summary.Archived = res.Archived
	if res.Err != nil {
		return fmt.Errorf("apply plan: %w", res.Err)
	}

	if opts.Mode.Results {
		return r.syncResults(ctx, sprint, rep)
	}
	return nil
}

func (r *Runner) planner(sprint string, links map[string]string) *reconcile.Planner {
	cfg := r.deps.Config
	return reconcile.NewPlanner(reconcile.Rules{
		KeyPattern:        cfg.KeyRegex(),
		AtomicKeyPrefixes: cfg.Jira.AtomicKeyPrefixes,
		Roster:            cfg.Testers,
		ArchiveThreshold:  cfg.Common.ArchiveThreshold,
		ArchiveBoardID:    cfg.Trello.ArchiveBoardID,
		SprintName:        sprint,
		TestLinks:         links,
	}, r.log)
}

func (r *Runner) testAssetsEnabled(opts Options) bool {
	return opts.Mode.TestRail && r.deps.Tests != nil
}

// sprint finds the active release sprint. Without one the run continues, but archiving
// and test assets have nothing to attach to.
func (r *Runner) sprint(ctx context.Context, log *zap.SugaredLogger) (string, error) {
	s, err := r.deps.Tracker.CurrentSprint(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		log.Warnw("could not look up current sprint", "error", err)
		return "", nil
	}
	if s == nil {
		log.Warnw("no active release sprint")
		return "", nil
	}
	return s.Name, nil
}

func (r *Runner) populateRelease(ctx context.Context, sprint string, items []models.WorkItem) (*testassets.Release, error) {
	ta := testassets.New(r.deps.Tests, r.deps.Tracker, r.deps.Config.Jira.StagingTransitionID, r.log)
	return ta.PopulateRelease(ctx, sprint, items)
}

func (r *Runner) syncResults(ctx context.Context, sprint string, rep *Report) error {
	if r.deps.Tests == nil {
		return errors.New("sync results: no test-case manager configured")
	}
	if sprint == "" {
		return errors.New("sync results: no active release sprint")
	}
	ta := testassets.New(r.deps.Tests, r.deps.Tracker, r.deps.Config.Jira.StagingTransitionID, r.log)
	sync, err := ta.SyncResults(ctx, sprint)
	if err != nil {
		return err
	}
	rep.Sync = sync
	return nil
}
