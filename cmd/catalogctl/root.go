package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/config"
)

var (
	verbose bool
	dsn     string
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Maintenance tool for the library catalog database",
	Long: `catalogctl manages the PostgreSQL database behind the library catalog.
The DSN comes from --dsn, CATALOG_POSTGRES_DSN or a .env file; ADAPTER_TYPE selects the driver.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every SQL statement")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (overrides CATALOG_POSTGRES_DSN)")
}

// openEngine connects with the configured adapter type. The returned func closes the connection.
func openEngine(ctx context.Context, options ...postgresengine.Option) (*postgresengine.Engine, func(), error) {
	target := dsn
	if target == "" {
		target = config.PostgresDSN()
	}

	options = append([]postgresengine.Option{postgresengine.WithLogger(slog.Default())}, options...)

	switch adapterType := config.AdapterType(); adapterType {
	case config.AdapterPGXPool:
		poolConfig, err := config.PostgresPGXPoolConfig(target)
		if err != nil {
			return nil, nil, err
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}

		engine, err := postgresengine.NewEngineFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return engine, pool.Close, nil

	case config.AdapterSQLDB:
		db, err := config.PostgresSQLDB(target)
		if err != nil {
			return nil, nil, err
		}

		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return engine, func() { _ = db.Close() }, nil

	case config.AdapterSQLXDB:
		db, err := config.PostgresSQLX(target)
		if err != nil {
			return nil, nil, err
		}

		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return engine, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported %s: %s", config.EnvAdapterType, adapterType)
	}
}
