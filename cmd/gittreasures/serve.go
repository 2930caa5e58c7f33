package main

import (
	"github.com/bbeale/GitTreasures/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status page and the run trigger endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			ctx := cmd.Context()

			l, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			r, err := e.newRunner(ctx, l, nil)
			if err != nil {
				return err
			}

			cfg := e.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			e.console.Info("listening on %s", cfg.Addr)
			return server.New(cfg, r, l, e.log).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Override server.addr")
	return cmd
}
