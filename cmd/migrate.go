package main

import (
	"fmt"

	"warehousepos/pkg/database"

	"github.com/spf13/cobra"
)

var migrateCommands = map[string]bool{"up": true, "down": true, "status": true, "version": true}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect the database schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := args[0]
			if !migrateCommands[command] {
				return fmt.Errorf("unknown migrate command %q", command)
			}
			cfg, log, err := bootstrap("migrate")
			if err != nil {
				return err
			}
			ctx := log.WithField(cmd.Context(), "command", command)

			pool, err := database.NewPool(ctx, database.Options{URL: cfg.DB.URL, MaxConns: 2})
			if err != nil {
				log.Error(ctx, "failed to connect to database", err)
				return err
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool, command); err != nil {
				log.Error(ctx, "migration failed", err)
				return err
			}
			log.Info(ctx, "migration finished")
			return nil
		},
	}
}
