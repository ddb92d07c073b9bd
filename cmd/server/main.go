package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hearth/internal/platform/config"
	"hearth/internal/platform/database"
	"hearth/internal/platform/health"
	"hearth/internal/platform/logger"
	"hearth/internal/platform/metrics"
	"hearth/internal/platform/redis"
	"hearth/migrations"
)

const poolStatsInterval = 15 * time.Second

func main() {
	log := logger.New(os.Getenv("HEARTH_ENV"))
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log = logger.New(cfg.Server.Environment)
	metrics.RecordBuildInfo(health.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // shutdown path
	if pool != nil {
		if err := migrations.Apply(ctx, pool.DB()); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close() //nolint:errcheck // shutdown path

	a, err := buildApp(cfg, log, pool, rdb)
	if err != nil {
		return err
	}
	defer a.producer.Close() //nolint:errcheck // shutdown path
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracing.Shutdown(flushCtx); err != nil {
			log.Warn("flush traces", "error", err)
		}
	}()
	if a.seeder != nil {
		if _, err := a.seeder.SeedAll(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.outbox != nil {
		g.Go(func() error { return a.outbox.Run(gctx) })
	}
	g.Go(func() error {
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				pool.RecordPoolStats()
				rdb.RecordPoolStats()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
