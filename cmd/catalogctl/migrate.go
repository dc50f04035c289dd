package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog tables, constraints and indexes",
	Long:  "migrate applies the catalog schema. It is idempotent and safe to run on an existing database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, closeDB, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := engine.Ping(ctx); err != nil {
			return err
		}

		if err := engine.ApplySchema(ctx); err != nil {
			return err
		}

		slog.Info("schema applied")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
