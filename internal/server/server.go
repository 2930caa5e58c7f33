// Package server exposes reconciliation runs over HTTP for schedulers and chat hooks.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/ledger"
	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/runner"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// Trigger starts a reconciliation run
type Trigger interface {
	Run(ctx context.Context, opts runner.Options) (*runner.Report, error)
}

// History answers the status page
type History interface {
	HighestKnownCommit(ctx context.Context) (*models.CommitRecord, error)
	LastRun(ctx context.Context) (*models.RunSummary, error)
}

// Status is the body of the status page
type Status struct {
	LatestCommit *models.CommitRecord `json:"latest_commit"`
	LastRun      *models.RunSummary   `json:"last_run"`
}

type errorBody struct {
	Error string `json:"error"`
}

// routes maps each trigger path to the run mode it starts
var routes = map[string]models.RunMode{
	"/git_treasures":              {},
	"/git_treasures_dev":          {TestMode: true},
	"/git_treasures_testrail":     {TestRail: true},
	"/git_treasures_testrail_dev": {TestRail: true, TestMode: true},
}

type Server struct {
	app     *fiber.App
	cfg     config.ServerConfig
	trigger Trigger
	history History
	log     *zap.SugaredLogger
}

func New(cfg config.ServerConfig, trigger Trigger, history History, log *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:     cfg,
		trigger: trigger,
		history: history,
		log:     log.Named("server"),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(s.log))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/", s.status)
	app.Get("/index.html", s.status)
	for path, mode := range routes {
		app.Get(path, s.run(mode))
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) status(c *fiber.Ctx) error {
	ctx := c.UserContext()
	commit, err := s.history.HighestKnownCommit(ctx)
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, err)
	}
	last, err := s.history.LastRun(ctx)
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(Status{LatestCommit: commit, LastRun: last})
}

// run triggers a run in the given mode and sends the caller back to the status page
func (s *Server) run(mode models.RunMode) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, err := s.trigger.Run(c.UserContext(), runner.Options{Mode: mode})
		switch {
		case errors.Is(err, runner.ErrBusy), errors.Is(err, ledger.ErrLocked):
			return s.fail(c, fiber.StatusConflict, err)
		case err != nil:
			return s.fail(c, fiber.StatusInternalServerError, err)
		}
		return c.Redirect("/", fiber.StatusFound)
	}
}

func (s *Server) fail(c *fiber.Ctx, status int, err error) error {
	if status >= fiber.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(errorBody{Error: err.Error()})
}

// ListenAndServe serves until ctx is cancelled, then shuts down within the
// configured timeout
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if err := s.app.ShutdownWithTimeout(timeout); err != nil {
		s.log.Warnw("server shutdown", "timeout", timeout.String(), "error", err)
		return err
	}
	return <-errCh
}
