// Package middleware provides observers that wrap the pipeline operations
// (config, transform, load) with metrics and tracing.
//
// # Prometheus Metrics
//
//	obs := middleware.Prometheus(middleware.WithNamespace("islands"))
//
// Metrics collected:
//   - islands_operations_total{operation,status}
//   - islands_operation_duration_seconds{operation}
//   - islands_operation_errors_total{operation,code}
//
// # OpenTelemetry
//
//	obs := middleware.OpenTelemetry(middleware.WithTracerName("islands"))
//
// Each operation runs in a span named "islands.<operation>" carrying the
// file being processed. The global tracer provider is used unless
// WithTracerProvider is given.
//
// # Composition
//
//	plugin.New(plugin.Options{
//	    Observer: middleware.Chain(middleware.Prometheus(), middleware.OpenTelemetry()),
//	})
package middleware
