package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/phiguard/internal/app"
	"github.com/bryanwahyu/phiguard/internal/config"
	"github.com/bryanwahyu/phiguard/internal/infra/httpserver"
	"github.com/bryanwahyu/phiguard/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("phiguard api: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	logger, err := logging.New(cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("logger init error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// runs live until shutdown, not until the request that started them ends
	runCtx, abortRuns := context.WithCancel(context.Background())
	defer abortRuns()
	runs := httpserver.NewRegistry(runCtx, httpserver.DefaultMaxFinishedRuns, logger.Named("runs"))

	handler := httpserver.NewRouter(a.Scans, runs, httpserver.Options{
		APIKeys:     cfg.Server.APIKeys,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		CORSOrigins: cfg.Server.CORSOrigins,
		Checkers:    a.Checkers,
		Incremental: cfg.Scan.Incremental,
		Logger:      logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		abortRuns()
		runs.Wait()
		return err
	})

	return g.Wait()
}
