package main

import (
	"context"
	"errors"

	"github.com/bbeale/GitTreasures/internal/app"
	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/reconcile"
	"github.com/bbeale/GitTreasures/internal/runner"
	"github.com/bbeale/GitTreasures/internal/ui"

	"github.com/spf13/cobra"
)

type reconcileFlags struct {
	testMode bool
	testRail bool
	results  bool
	persist  bool
	dryRun   bool
	review   bool
}

func (f reconcileFlags) mode() (models.RunMode, error) {
	if f.persist && (f.testRail || f.results) {
		return models.RunMode{}, errors.New("--persist cannot be combined with --testrail or --results")
	}
	if f.persist && f.dryRun {
		return models.RunMode{}, errors.New("--persist has nothing to preview with --dry-run")
	}
	return models.RunMode{
		TestMode:    f.testMode,
		TestRail:    f.testRail || f.results,
		Results:     f.results,
		PersistOnly: f.persist,
	}, nil
}

func newReconcileCmd(g *globals) *cobra.Command {
	var f reconcileFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bring the board (and optionally TestRail) in line with Jira and the staging branch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := f.mode()
			if err != nil {
				return err
			}
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if err := checkMode(e.cfg, mode.TestMode, mode.TestRail || mode.PersistOnly); err != nil {
				return err
			}
			return runReconcile(cmd.Context(), e, mode, f)
		},
	}
	cmd.Flags().BoolVar(&f.testMode, "dev", false, "Use the test board lists")
	cmd.Flags().BoolVar(&f.testMode, "test-mode", false, "Alias for --dev")
	cmd.Flags().BoolVar(&f.testRail, "testrail", false, "Also populate TestRail sections, cases and the release run")
	cmd.Flags().BoolVar(&f.results, "results", false, "Also sync TestRail results back to Jira (implies --testrail)")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "Only sync TestRail results back to Jira")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Plan without writing to the board or the run history")
	cmd.Flags().BoolVar(&f.review, "review", false, "Review the plan interactively before applying it")
	return cmd
}

func runReconcile(ctx context.Context, e *env, mode models.RunMode, f reconcileFlags) error {
	l, err := e.openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	var review runner.Review
	if f.review {
		board := e.cfg.Board(mode.TestMode)
		review = func(ctx context.Context, p *reconcile.Plan) (bool, error) {
			return app.Review(ctx, p, app.Header{Mode: mode.String(), BoardID: board.BoardID, DryRun: f.dryRun})
		}
	}

	r, err := e.newRunner(ctx, l, review)
	if err != nil {
		return err
	}

	e.console.Info("reconciling (%s)", mode)
	rep, err := r.Run(ctx, runner.Options{Mode: mode, DryRun: f.dryRun})
	if rep != nil {
		printReport(e.console, rep, f.dryRun)
	}
	if errors.Is(err, runner.ErrDeclined) {
		e.console.Warn("plan declined, nothing applied")
		return nil
	}
	return err
}

func printReport(c *ui.Console, rep *runner.Report, dryRun bool) {
	if dryRun && rep.Plan != nil {
		for _, m := range rep.Plan.Mutations {
			c.Print(ui.MutationLine(m))
		}
		c.Done("dry run: %d changes planned, %d items skipped", len(rep.Plan.Mutations), rep.Summary.Skipped)
		return
	}
	if rep.Result != nil {
		for _, it := range rep.Result.Items {
			if !models.IsStatusFailed(it.Status) && !models.IsStatusSkipped(it.Status) {
				continue
			}
			c.Print(ui.ItemLine(it))
		}
		s := rep.Summary
		c.Done("%d created, %d moved, %d archived, %d skipped, %d failed",
			s.Created, s.Moved, s.Archived, s.Skipped, s.Failed)
	}
	if rep.Release != nil && rep.Release.Run != nil {
		c.Done("test run %s: %d stories added", rep.Release.Run.Name, len(rep.Release.AddedStories))
	}
	if rep.Sync != nil {
		c.Done("results synced: %d defects filed, %d issues moved on", len(rep.Sync.Defects), len(rep.Sync.Transitioned))
		if rep.Sync.Errors > 0 {
			c.Warn("%d results could not be synced", rep.Sync.Errors)
		}
	}
}
