// Package main is the entry point for the lockdown session server.
// It only handles dependency injection and server initialization.
// NO game rules belong here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/lockdown/internal/engine"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/infra/storage"
	"github.com/MRamiBalles/lockdown/internal/network"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	"github.com/MRamiBalles/lockdown/internal/platform/i18n"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.New(os.Stdout, cfg.Server.LogLevel)
	collector := metrics.NewCollector()

	if err := run(cfg, appLogger, collector); err != nil {
		appLogger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, appLogger *logger.Logger, collector *metrics.Collector) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("initializing sqlite audit", "path", cfg.Server.DBPath)
	db, err := storage.InitSQLite(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	eventRepo := storage.NewSQLiteEventRepository(db)
	sessionRepo := storage.NewSQLiteSessionRepository(db)

	// Sessions are built on the loop goroutine after the first, so the hub is
	// reached through the variable rather than captured at construction.
	var hub *network.Hub
	newSession := func() (*engine.Session, error) {
		sessionID := uuid.NewString()
		if err := sessionRepo.Start(ctx, sessionID, cfg.Server.Locale, time.Now()); err != nil {
			return nil, err
		}
		session := engine.NewSession(cfg.Tuning, appLogger,
			engine.WithID(sessionID),
			engine.WithPersister(storage.NewEventSink(eventRepo, sessionID, collector)),
			engine.WithFeedback(i18n.NewPrinter(cfg.Server.Locale)),
			engine.WithMetrics(collector),
		)
		session.Subscribe(events.EventTypeOutcomeSelected, storage.OutcomeRecorder(sessionRepo, sessionID, appLogger))
		session.SubscribeAll(func(e events.GameEvent) { hub.BroadcastEvent(e) })
		return session, nil
	}

	session, err := newSession()
	if err != nil {
		return err
	}
	loop := engine.NewLoop(session, cfg.Server.FrameRate, cfg.Server.CommandBuffer, collector, appLogger)
	loop.SetFactory(newSession)
	hub = network.NewHub(loop, network.Limits{
		Rate:       cfg.Server.ClientRate,
		Burst:      cfg.Server.ClientBurst,
		SendBuffer: cfg.Server.ClientSendBuf,
	}, collector, appLogger)

	go hub.Run(ctx)
	go loop.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewReplayHandler(loop, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/api/sessions", sessionsHandler(sessionRepo, appLogger))
	mux.HandleFunc("/metrics", collector.Handler())
	mux.HandleFunc("/metrics/prometheus", collector.PrometheusHandler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("http api and websocket listening", "addr", cfg.Server.Addr, "session", session.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			loop.Stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown incomplete", "error", err)
	}
	loop.Stop()
	<-loop.Done()
	appLogger.Info("server stopped")
	return nil
}

// sessionsHandler lists recent sessions from the audit.
// GET /api/sessions?limit=N
func sessionsHandler(repo storage.SessionRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		sessions, err := repo.Recent(r.Context(), limit)
		if err != nil {
			log.Error("failed to list sessions", "error", err)
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []storage.SessionRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessions)
	}
}
