package main

import (
	"context"

	"domainwatch/internal/config"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/storage"
	"domainwatch/pkg/storage/memory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// seedCommand loads a domains file into the database in one transaction.
func seedCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Loads domains and notification channels from a YAML file into the database",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			domainsFile, _ := cmd.Flags().GetString("domains-file")

			seed, err := memory.LoadSeed(domainsFile)
			if err != nil {
				logger.Fatal(ctx, "could not load domains file", zap.Error(err))
			}

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			if err := strg.WithTx(ctx, func(tx storage.AllStorage) error {
				return seed.Apply(ctx, tx)
			}); err != nil {
				logger.Fatal(ctx, "could not seed database", zap.Error(err))
			}
			logger.Info(ctx, "database seeded",
				zap.Int("groups", len(seed.Groups)),
				zap.Int("domains", len(seed.Domains)))
		},
	}

	cmd.Flags().String("domains-file", "", "YAML file of domains and channels")
	_ = cmd.MarkFlagRequired("domains-file")

	return cmd
}
