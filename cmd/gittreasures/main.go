package main

// Must be first import - fixes terminal probe delays before lipgloss loads
import _ "github.com/bbeale/GitTreasures/internal/termfix"

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/logger"
	"github.com/bbeale/GitTreasures/internal/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// globals are the persistent flags every command shares
type globals struct {
	configPath string
	noColor    bool
	logLevel   string
}

// env is what a command needs once configuration is loaded
type env struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	console *ui.Console
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := &globals{}
	root := newRootCmd(g)
	if err := root.ExecuteContext(ctx); err != nil {
		ui.NewConsole(os.Stderr, g.noColor).Warn("%s", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:           "gittreasures",
		Short:         "Reconcile Jira, Trello and TestRail from the staging branch history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/gittreasures/config.toml)")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable coloured output")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override common.log_level")

	root.AddCommand(
		newReconcileCmd(g),
		newInitCmd(g),
		newLedgerCmd(g),
		newServeCmd(g),
		newDescribeCmd(g),
		newFilterCmd(g),
		newBoardCmd(g),
		newVersionCmd(g),
	)
	return root
}

// setup loads configuration and builds the logger and console for a command
func (g *globals) setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Common.LogLevel
	if g.logLevel != "" {
		level = g.logLevel
	}
	log, err := logger.New(level, cfg.Common.LogFormat)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		log:     log,
		console: ui.NewConsole(cmd.OutOrStdout(), g.noColor),
	}, nil
}

func (e *env) close() {
	_ = e.log.Sync()
}
