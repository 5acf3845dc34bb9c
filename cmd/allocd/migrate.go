package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"device-allocation-backend/internal/db"
	"device-allocation-backend/internal/store"
)

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			_, err = db.Init(&cfg.Database, logger)
			return err
		},
	}
}

func seedCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate and fill an empty database with sample partners and machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			gormDB, err := db.Init(&cfg.Database, logger)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), store.NewGormStore(gormDB), logger)
		},
	}
}

func runSeed(ctx context.Context, s store.Store, logger *zap.Logger) error {
	res, err := store.Seed(ctx, s)
	if err != nil {
		return err
	}
	if res.Machines == 0 {
		logger.Info("database already has machines, skipping seed")
		return nil
	}
	logger.Info("seeded sample data",
		zap.Int("distributors", res.Distributors),
		zap.Int("retailers", res.Retailers),
		zap.Int("machines", res.Machines))
	return nil
}
