package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"device-allocation-backend/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "allocd",
		Short: "Device allocation backend for POS and soundbox inventory",
		Long: `allocd serves the REST API that tracks payment devices as they are
assigned to distributors and retailers, returned and reassigned.`,
		SilenceUsage: true,
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to the YAML config file")

	load := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load configuration from %s: %w", configPath, err)
		}
		logger, err := newLogger(cfg.Server)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("configuration loaded", zap.String("path", configPath), zap.String("mode", cfg.Server.Mode))
		return cfg, logger, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(seedCmd(load))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func() (*config.Config, *zap.Logger, error)

func newLogger(server config.ServerConfig) (*zap.Logger, error) {
	if server.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
