// Package observability bundles logging, tracing and metrics wiring.
package observability

import (
	"github.com/collectra/collectra/internal/logger"
	"github.com/collectra/collectra/internal/observability/metrics"
	"github.com/collectra/collectra/pkg/telemetry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Options(
	logger.Module,
	telemetry.Module,
	fx.Invoke(ensureTracerProvider),
	fx.Invoke(ensureCollectionsMetrics),
)

func ensureTracerProvider(_ *sdktrace.TracerProvider) {}

func ensureCollectionsMetrics() {
	metrics.Collections()
}
