// Package api configures the ops HTTP server of serve mode: Prometheus
// metrics, health checks and optional pprof.
package api

import (
	"fmt"
	"net/http"
	"time"

	"domainwatch/internal/config"
	"domainwatch/pkg/controller"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// HealthPath serves the dependency checks.
const HealthPath = "/healthz"

// Options holds configuration for the HTTP server.
// It is typically created from a config.Config via NewOptions.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// EnablePprof mounts the profiler under /debug/pprof/.
	EnablePprof bool
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MetricsPath:       cfg.HTTP.MetricsPath,
		EnablePprof:       cfg.HTTP.EnablePprof,
	}
}

// Deps are the dependencies probed by the health endpoint, by name.
type Deps struct {
	HealthChecks map[string]controller.HealthCheck
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - OpenTelemetry meter provider exported through Prometheus, installed globally
// - health endpoint (HealthPath)
// - pprof endpoints when enabled
// The mux is wrapped with the access log middleware.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	mux := http.NewServeMux()

	mux.Handle(opts.MetricsPath, promhttp.Handler())

	exp, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)))

	mux.Handle(HealthPath, controller.Health(deps.HealthChecks, 5*time.Second))

	if opts.EnablePprof {
		controller.MountPprof(mux, "/debug/pprof/")
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           controller.WithLogger(mux, opts.MetricsPath, HealthPath),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}, nil
}
