package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/httpapi"
	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/service/audit"
	"github.com/splitkhata/splitkhata/internal/split"
	"github.com/splitkhata/splitkhata/internal/storage/memory"
	pgstore "github.com/splitkhata/splitkhata/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var store httpapi.Store
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		// Use Postgres store when DATABASE_URL is provided
		if err := pgstore.Migrate(dsn); err != nil {
			logger.Error("failed to apply migrations", "err", err)
			os.Exit(1)
		}
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store with a small dev seed
		mem := memory.New()
		if dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))); dev == "1" || dev == "true" || dev == "yes" {
			seedDev(logger, mem)
		}
		store = mem
		logger.Info("storage backend: memory")
	}

	// Event trail drains to the store off the request path.
	events := eventlog.NewWorker(store.(eventlog.Sink), logger, 256)
	events.Start()

	locks := keylock.New()
	srv := &http.Server{
		Addr:              addrFromEnv(),
		Handler:           httpapi.New(store, locks, events, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Scheduled consistency sweep across all groups, off by default.
	var sched *cron.Cron
	if spec := strings.TrimSpace(os.Getenv("AUDIT_CRON")); spec != "" {
		auditSvc := audit.New(store, store, locks, logger, events)
		sched = cron.New()
		if _, err := sched.AddFunc(spec, func() {
			if err := auditSvc.RunAll(context.Background()); err != nil {
				logger.Error("scheduled audit sweep failed", "err", err)
			}
		}); err != nil {
			logger.Error("invalid AUDIT_CRON", "spec", spec, "err", err)
			os.Exit(1)
		}
		sched.Start()
		logger.Info("scheduled audit sweep enabled", "spec", spec)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("splitkhata service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if sched != nil {
		<-sched.Stop().Done()
	}
	events.Stop()
	if closeFn != nil {
		closeFn()
	}
}

// seedDev creates a small group with three members so local clients have ids
// to work with, and prints them for easy copy/paste.
func seedDev(l *slog.Logger, mem *memory.Store) {
	now := time.Now().UTC()
	alice, bob, cara := uuid.New(), uuid.New(), uuid.New()
	g := split.Group{
		ID:        uuid.New(),
		Name:      "Dev Flat",
		Slug:      "dev-flat",
		Currency:  "GBP",
		CreatedBy: alice,
		CreatedAt: now,
	}
	mem.SeedGroup(g, []split.Member{
		{GroupID: g.ID, UserID: alice, JoinedAt: now},
		{GroupID: g.ID, UserID: bob, JoinedAt: now},
		{GroupID: g.ID, UserID: cara, JoinedAt: now},
	})
	l.Info("DEV seed (memory)", "group_id", g.ID.String(),
		"user_ids", []string{alice.String(), bob.String(), cara.String()})
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("group_id: %s\n", g.ID.String())
	fmt.Printf("user_a: %s\n", alice.String())
	fmt.Printf("user_b: %s\n", bob.String())
	fmt.Printf("user_c: %s\n", cara.String())
	fmt.Println("==================================================")
}

func addrFromEnv() string {
	if addr := strings.TrimSpace(os.Getenv("ADDR")); addr != "" {
		return addr
	}
	return ":8080"
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
