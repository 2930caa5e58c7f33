package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bbeale/GitTreasures/internal/ledger"
	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/spf13/cobra"
)

func newInitCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the commit ledger and seed it from the lookback window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := cmd.Context()

			unlock, err := ledger.Lock(e.cfg.DBPath(), 2*e.cfg.Common.RunTimeout.Duration)
			if err != nil {
				return err
			}
			defer func() { _ = unlock() }()

			l, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			ok, err := l.IsInitialized(ctx)
			if err != nil {
				return err
			}
			if ok {
				return errors.New("ledger already initialised at " + e.cfg.DBPath())
			}

			src, err := e.commitSource(ctx)
			if err != nil {
				return err
			}
			res, err := l.Populate(ctx, src, ledger.PopulateOptions{
				Branch:     e.cfg.Git.WatchedBranch,
				KeyPattern: e.cfg.KeyRegex(),
				Lookback:   e.cfg.LookbackWindow(),
			})
			if err != nil {
				return fmt.Errorf("populate ledger: %w", err)
			}
			e.console.Done("ledger created at %s: %d of %d commits since %s recorded",
				e.cfg.DBPath(), res.Inserted, res.Fetched, res.Since.Format(time.DateOnly))
			return nil
		},
	}
}

func newLedgerCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the commit ledger",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every recorded commit, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			l, err := e.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close()

			commits, err := l.All(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range commits {
				printCommit(cmd.OutOrStdout(), c)
			}
			e.console.Done("%d commits", len(commits))
			return nil
		},
	}

	latest := &cobra.Command{
		Use:   "latest",
		Short: "Print the newest recorded commit and the last run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			l, err := e.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close()

			c, err := l.HighestKnownCommit(cmd.Context())
			if err != nil {
				return err
			}
			if c == nil {
				e.console.Warn("ledger is empty; run init first")
			} else {
				printCommit(cmd.OutOrStdout(), *c)
			}

			run, err := l.LastRun(cmd.Context())
			if err != nil {
				return err
			}
			if run != nil {
				e.console.Info("last run %s (%s) at %s: %d created, %d moved, %d failed",
					run.ID, run.Mode, run.StartedAt.Format(time.RFC3339), run.Created, run.Moved, run.Failed)
				if run.Error != "" {
					e.console.Warn("last run failed: %s", run.Error)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(list, latest)
	return cmd
}

func printCommit(w io.Writer, c models.CommitRecord) {
	fmt.Fprintf(w, "%6d  %.10s  %s  %-20.20s  %s\n",
		c.Seq, c.Hash, c.CommittedAt.Format("2006-01-02 15:04"), c.AuthorName, firstLine(c.Message))
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
