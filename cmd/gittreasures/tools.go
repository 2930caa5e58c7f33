package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bbeale/GitTreasures/internal/export"
	"github.com/bbeale/GitTreasures/internal/ui"
	"github.com/bbeale/GitTreasures/internal/update"

	"github.com/spf13/cobra"
)

func newDescribeCmd(g *globals) *cobra.Command {
	var testMode bool
	cmd := &cobra.Command{
		Use:   "describe <KEY>",
		Short: "Show what the next run would do with one work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := cmd.Context()
			if err := checkMode(e.cfg, testMode, false); err != nil {
				return err
			}

			l, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer l.Close()
			r, err := e.newRunner(ctx, l, nil)
			if err != nil {
				return err
			}

			p, err := r.Describe(ctx, args[0], testMode)
			if err != nil {
				return err
			}
			reason := p.Outcome.Skip
			if reason == "" && p.Outcome.Rung != 0 {
				reason = p.Outcome.Rung.String()
			}
			md := ui.CardMarkdown(p.Item, p.Card, p.Outcome.To, reason)
			out, err := ui.RenderMarkdown(md, 80, e.console.Colorless())
			if err != nil {
				return err
			}
			e.console.Print(out)
			for _, m := range p.Planned {
				e.console.Print(ui.MutationLine(m))
			}
			if len(p.Planned) == 0 {
				e.console.Info("no board changes planned for %s", p.Item.Key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&testMode, "dev", false, "Plan against the test board")
	return cmd
}

func newFilterCmd(g *globals) *cobra.Command {
	var name, jql string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Create or update saved Jira filters",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a saved filter and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			f, err := e.jira().AddFilter(cmd.Context(), name, jql)
			if err != nil {
				return err
			}
			e.console.Done("filter %s created: %s", f.ID, f.Name)
			return nil
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <ID>",
		Short: "Replace the name and query of a saved filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			f, err := e.jira().UpdateFilter(cmd.Context(), args[0], name, jql)
			if err != nil {
				return err
			}
			e.console.Done("filter %s updated: %s", f.ID, f.Name)
			return nil
		},
	}

	for _, c := range []*cobra.Command{create, updateCmd} {
		c.Flags().StringVar(&name, "name", "", "Filter name")
		c.Flags().StringVar(&jql, "jql", "", "Filter query")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("jql")
	}
	cmd.AddCommand(create, updateCmd)
	return cmd
}

func newBoardCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Export a board or reset the test board",
	}

	var format, output string
	var testMode bool
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every list and card of a board as JSON or YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			boardID := e.cfg.Board(testMode).BoardID
			if err := export.Export(cmd.Context(), e.trello(), boardID, f, w); err != nil {
				return err
			}
			if output != "" && output != "-" {
				e.console.Done("board %s written to %s", boardID, output)
			}
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().BoolVar(&testMode, "dev", false, "Export the test board")

	var yes bool
	reset := &cobra.Command{
		Use:   "reset-test",
		Short: "Empty the test board lists and copy the production cards into them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset-test archives every card on the test board; pass --yes to go ahead")
			}
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.cfg.RequireTestBoard(); err != nil {
				return err
			}
			rep, err := export.ResetTestBoard(cmd.Context(), e.trello(), e.cfg.Trello.Prod, e.cfg.Trello.Test, e.log)
			if err != nil {
				return err
			}
			total := 0
			for _, n := range rep.Copied {
				total += n
			}
			e.console.Done("test board reset: %d cards copied", total)
			if rep.Failed > 0 {
				e.console.Warn("%d cards could not be copied", rep.Failed)
			}
			return nil
		},
	}
	reset.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	cmd.AddCommand(exportCmd, reset)
	return cmd
}

func newVersionCmd(g *globals) *cobra.Command {
	var check bool
	var repo string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version, optionally checking for a newer release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := ui.NewConsole(cmd.OutOrStdout(), g.noColor)
			c.Print("gittreasures " + update.VersionDisplay(version))
			if !check {
				return nil
			}
			rel, err := update.CheckForUpdate(cmd.Context(), version, repo, update.GhLister)
			if err != nil {
				return fmt.Errorf("check for update: %w", err)
			}
			if rel == nil {
				c.Done("up to date")
				return nil
			}
			c.Info("%s is available", update.VersionDisplay(rel.TagName))
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	cmd.Flags().StringVar(&repo, "repo", "bbeale/GitTreasures", "Repository publishing releases")
	return cmd
}
