package main

import (
	"context"

	"domainwatch/internal/config"
	"domainwatch/internal/worker"
	"domainwatch/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// enqueueCommand asks a running `serve` to start a check run now.
func enqueueCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queues a one-off check run for the scheduler",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			added, err := worker.Enqueue(ctx, strg, "manual")
			if err != nil {
				logger.Fatal(ctx, "could not enqueue check run", zap.Error(err))
			}
			if !added {
				logger.Info(ctx, "a check run is already queued or running")

				return
			}
			logger.Info(ctx, "check run queued")
		},
	}

	return cmd
}
