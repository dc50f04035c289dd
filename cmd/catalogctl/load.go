package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-catalog-go/catalog/oteladapters"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/config"
)

const (
	defaultRate            = 30
	defaultScenarioWeights = "20,80" // circulation, lending
	serviceName            = "catalogctl-load"
)

var (
	loadRate             int
	loadDuration         time.Duration
	loadWeights          string
	observabilityEnabled bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Generate lending traffic against a seeded catalog",
	Long: `load lends, returns and re-stocks book editions at a fixed rate until interrupted
or until --duration has passed. Capacity rejections are expected and counted separately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		weights, err := parseScenarioWeights(loadWeights)
		if err != nil {
			return fmt.Errorf("invalid --scenario-weights %q: %w", loadWeights, err)
		}

		if loadRate < 1 {
			return fmt.Errorf("--rate must be positive, got %d", loadRate)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if loadDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, loadDuration)
			defer cancel()
		}

		var options []postgresengine.Option
		if observabilityEnabled {
			providers, err := config.NewObservabilityProviders(ctx, serviceName, config.OTLPEndpoint())
			if err != nil {
				return fmt.Errorf("observability: %w", err)
			}
			defer func() {
				if err := providers.Shutdown(context.Background()); err != nil {
					slog.Warn("observability shutdown failed", "error", err)
				}
			}()

			options = append(options,
				postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger(serviceName)),
				postgresengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter(serviceName))),
				postgresengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer(serviceName))),
			)
		}

		engine, closeDB, err := openEngine(ctx, options...)
		if err != nil {
			return err
		}
		defer closeDB()

		generator, err := newLoadGenerator(ctx, engine, loadConfig{Rate: loadRate, ScenarioWeights: weights})
		if err != nil {
			return err
		}

		slog.Info("load generator started", "rate", loadRate, "scenario_weights", loadWeights, "observability", observabilityEnabled)

		generator.Run(ctx)

		stats := generator.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "requests=%d errors=%d capacity_rejections=%d duration=%s\n",
			stats.Requests, stats.Errors, stats.Rejections, stats.Elapsed.Truncate(time.Second))

		return nil
	},
}

func init() {
	loadCmd.Flags().IntVar(&loadRate, "rate", defaultRate, "requests per second")
	loadCmd.Flags().DurationVar(&loadDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	loadCmd.Flags().StringVar(&loadWeights, "scenario-weights", defaultScenarioWeights, "comma-separated weights for circulation,lending")
	loadCmd.Flags().BoolVar(&observabilityEnabled, "observability-enabled", false, "export traces and metrics via OTLP to "+config.EnvOTLPEndpoint)
	rootCmd.AddCommand(loadCmd)
}

func parseScenarioWeights(weights string) ([2]int, error) {
	var out [2]int

	parts := strings.Split(weights, ",")
	if len(parts) != len(out) {
		return out, fmt.Errorf("expected %d weights, got %d", len(out), len(parts))
	}

	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return out, fmt.Errorf("invalid weight %q: %w", part, err)
		}

		if weight < 0 || weight > 100 {
			return out, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}

		out[i] = weight
		total += weight
	}

	if total != 100 {
		return out, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return out, nil
}
