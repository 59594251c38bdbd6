// Package observability exports fakedetect metrics in the Prometheus text
// format, for node_exporter's textfile collector.
package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deepscan/fakedetect/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Detector *metrics.DetectorMetrics
}

// NewMetrics creates a new instance of Metrics with its own registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	detectorMetrics, err := metrics.NewDetectorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Detector: detectorMetrics,
	}, nil
}

// Registry returns the Prometheus registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes all metrics to path. The directory is
// created if needed.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
