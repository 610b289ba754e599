// Package main is the entry point for the Lunar Birthday API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zapponejosh/lunar-birthday-api/internal/api"
	"github.com/zapponejosh/lunar-birthday-api/internal/config"
	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/logger"
	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
	"github.com/zapponejosh/lunar-birthday-api/internal/metrics"
	"github.com/zapponejosh/lunar-birthday-api/internal/reminders"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	log := logger.Setup(cfg)

	log.Info("starting lunar birthday API",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("lunar birthday API stopped")
}

func loadTable(cfg *config.Config, log *slog.Logger) (*lunar.Table, error) {
	var (
		table *lunar.Table
		err   error
	)
	if cfg.LunarTablePath != "" {
		table, err = lunar.LoadTable(cfg.LunarTablePath)
	} else {
		table, err = lunar.ReferenceTable()
	}
	if err != nil {
		return nil, err
	}

	first, last := table.Range()
	log.Info("lunar table loaded",
		slog.String("source", tableSource(cfg)),
		slog.Int("first_year", first),
		slog.Int("last_year", last),
	)

	// Anchors are authoritative; drift only means month lengths and the next
	// New Year disagree somewhere in the data.
	for _, d := range table.Audit() {
		log.Warn("lunar table drift",
			slog.Int("year", d.Year),
			slog.Int("days", d.Days),
		)
	}
	return table, nil
}

func tableSource(cfg *config.Config) string {
	if cfg.LunarTablePath != "" {
		return cfg.LunarTablePath
	}
	return "embedded"
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	table, err := loadTable(cfg, log)
	if err != nil {
		return fmt.Errorf("load lunar table: %w", err)
	}

	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), log)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	m := metrics.New()
	converter := lunar.NewConverter(table)
	service := reminders.NewService(db, converter, m, log)

	if _, err := service.PrunePast(ctx); err != nil {
		log.Warn("initial prune failed", slog.Any("error", err))
	}

	scheduler, err := reminders.NewScheduler(service, cfg.PruneSchedule, time.UTC, log)
	if err != nil {
		return err
	}

	handlers := api.NewHandlers(db, converter, service, m, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(handlers, cfg, m, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
