// Package ledger is the append-only commit cache used as a high-water mark over the
// watched branch, plus the history of reconciliation runs.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals
var gooseMu sync.Mutex

// timeLayout is fixed width so text order equals time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Ledger struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (creating if needed) the ledger at path and applies migrations.
func Open(ctx context.Context, path string, log *zap.SugaredLogger) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// Single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	l := &Ledger{db: db, log: log.Named("ledger")}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{l.log})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migrate dialect: %w", err)
	}
	if err := goose.UpContext(ctx, l.db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// gooseLogger routes migration output to the ledger logger
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Debugf(format, v...)
}

// Fatalf only logs. goose returns the failure as an error as well, and exiting here
// would skip the caller's cleanup.
func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Errorf(format, v...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
