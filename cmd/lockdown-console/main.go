// Package main runs a lockdown session headless, driven by commands on stdin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/lockdown/internal/console"
	"github.com/MRamiBalles/lockdown/internal/engine"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/infra/storage"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	"github.com/MRamiBalles/lockdown/internal/platform/i18n"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
)

func main() {
	audit := flag.Bool("audit", false, "record the session in the sqlite audit (LOCKDOWN_DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout stays readable as the room's display.
	appLogger := logger.New(os.Stderr, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	opts := []engine.Option{
		engine.WithID(sessionID),
		engine.WithFeedback(i18n.NewPrinter(cfg.Server.Locale)),
	}

	var sessions storage.SessionRepository
	if *audit {
		db, err := storage.InitSQLite(cfg.Server.DBPath)
		if err != nil {
			appLogger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		sessions = storage.NewSQLiteSessionRepository(db)
		if err := sessions.Start(ctx, sessionID, cfg.Server.Locale, time.Now()); err != nil {
			appLogger.Error("failed to record session start", "error", err)
			os.Exit(1)
		}
		opts = append(opts, engine.WithPersister(storage.NewEventSink(storage.NewSQLiteEventRepository(db), sessionID, nil)))
	}

	session := engine.NewSession(cfg.Tuning, appLogger, opts...)
	if sessions != nil {
		session.Subscribe(events.EventTypeOutcomeSelected, storage.OutcomeRecorder(sessions, sessionID, appLogger))
	}

	if err := console.Run(ctx, os.Stdin, os.Stdout, session); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("console stopped with error", "error", err)
		os.Exit(1)
	}
}
