package main

import (
	"context"
	"os"

	"warehousepos/internal/config"
	"warehousepos/pkg/logger"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "warehousepos",
		Short:         "WarehousePOS multi-tenant retail backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newWorkerCommand())
	return root
}

// bootstrap loads the configuration and builds the logger every sub-command starts from.
func bootstrap(service string) (*config.Config, *logger.Logger, error) {
	boot := logger.New(logger.Options{ServiceName: service})
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	return cfg, log, nil
}
