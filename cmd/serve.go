package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"domainwatch/internal/api"
	"domainwatch/internal/config"
	"domainwatch/internal/worker"
	"domainwatch/pkg/controller"
	"domainwatch/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) func(ctx context.Context) {
	server, err := api.NewServer(deps, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the ops server and runs checks on a schedule",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			reg, closeReg := getRegistry(ctx, cfg)
			defer closeReg()

			checks := map[string]controller.HealthCheck{
				"postgres": strg.Ping,
			}
			if reg.redis != nil {
				checks["redis"] = func(ctx context.Context) error { return reg.redis.Ping(ctx).Err() }
			}
			stopWebserver := setupServer(ctx, cfg, api.Deps{HealthChecks: checks})

			riverClient, err := worker.Start(context.WithoutCancel(ctx), strg.Pool, getChecker(cfg, strg, reg), worker.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}
			logger.Info(ctx, "scheduler started",
				zap.Duration("interval", cfg.Scheduler.Interval),
				zap.Bool("run_on_start", cfg.Scheduler.RunOnStart))

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			logger.Info(shutdownCtx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Warn(ctx, "check run still in progress, cancelling it", zap.Error(err))
				cancelCtx, cancelStop := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
				if err := riverClient.StopAndCancel(cancelCtx); err != nil {
					logger.Error(cancelCtx, "could not stop workers", zap.Error(err))
				}
				cancelStop()
			}
			stopWebserver(shutdownCtx)
		},
	}

	return cmd
}
