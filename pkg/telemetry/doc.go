// Package telemetry provides hookstore observers for Prometheus metrics and
// OpenTelemetry tracing.
//
//	metrics := telemetry.Prometheus(telemetry.WithNamespace("myapp"))
//	tracer := telemetry.OpenTelemetry(telemetry.WithTracerName("myapp"))
//
//	reg := hookstore.NewRegistry(
//	    hookstore.WithObserver(telemetry.Multi(metrics, tracer)),
//	)
//
//	http.Handle("/metrics", promhttp.Handler())
package telemetry

import (
	"errors"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

// errorCode returns the hookstore error code of err, or "unknown".
func errorCode(err error) string {
	var e *herrors.Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "unknown"
}
