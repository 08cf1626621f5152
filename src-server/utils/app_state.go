package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"eventfair/src-server/blob"
	"eventfair/src-server/cache"
	"eventfair/src-server/metric"
	"eventfair/src-server/model"
	"eventfair/src-server/service"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config  *Config
	RawDB   *sql.DB
	BunDB   *bun.DB
	When    *when.Parser
	Cache   *cache.Memory
	Blobs   *blob.Disk
	Service *service.Service

	// SIGINT/SIGTERM, or a fatal server error
	AppCloseSignalChan chan os.Signal

	startedAt    time.Time
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// Open the database at DATABASE_PATH and wire everything on top of it,
// exiting on failure.
func NewAppState() *AppState {
	config := NewConfig()

	rawDB, err := sql.Open(sqliteshim.ShimName, model.DSN(config.GetDatabasePath(), "mode=rwc"))
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}

	as, err := NewAppStateFromDB(config, rawDB)
	if err != nil {
		slog.Error("cannot init app state", "error", err)
		os.Exit(1)
	}
	return as
}

// Wire the app on an already opened SQLite handle and create the schema.
func NewAppStateFromDB(config *Config, rawDB *sql.DB) (*AppState, error) {
	as := &AppState{
		Config:             config,
		RawDB:              rawDB,
		AppCloseSignalChan: make(chan os.Signal, 1),
		startedAt:          time.Now(),
		shutdownCh:         make(chan struct{}),
	}

	// date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// database; SQLite allows a single writer, the unique constraint on
	// registrations arbitrates the rest. CreateSchema turns foreign keys on
	// for handles opened without model.DSN.
	as.RawDB.SetMaxOpenConns(1)
	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		return nil, fmt.Errorf("NewAppStateFromDB: %w", err)
	}

	var err error
	if as.Cache, err = cache.NewMemory(config.GetCacheSize(), metric.CacheObserver()); err != nil {
		return nil, fmt.Errorf("NewAppStateFromDB: %w", err)
	}
	as.Blobs = blob.NewDisk(config.GetUploadDir(), config.GetPublicBaseURL())
	as.Service = service.New(as.BunDB, as.Cache, as.Blobs,
		service.WithRegistrationObserver(metric.RegistrationObserver()),
	)

	return as, nil
}

func (as *AppState) GetUptime() time.Duration {
	return time.Since(as.startedAt)
}

// Closed once GracefulShutdown starts; background workers select on it.
func (as *AppState) ShutdownChan() <-chan struct{} {
	return as.shutdownCh
}

// Stop background workers and close the database. Safe to call twice.
func (as *AppState) GracefulShutdown() {
	as.shutdownOnce.Do(func() {
		close(as.shutdownCh)
		if err := as.BunDB.Close(); err != nil {
			slog.Error("can't close database", "error", err)
		}
	})
}
