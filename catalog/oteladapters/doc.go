// Package oteladapters implements the catalog observability interfaces with OpenTelemetry.
//
//	tracer := otel.Tracer("library-catalog")
//	meter := otel.Meter("library-catalog")
//
//	engine, err := postgresengine.NewEngineFromPGXPool(pool,
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("library-catalog")),
//	)
package oteladapters
