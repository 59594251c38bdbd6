package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deepscan/fakedetect/internal/errors"
)

// DetectorMetrics contains the Prometheus metrics of one detector run.
type DetectorMetrics struct {
	ModelLoadDuration  *prometheus.HistogramVec
	ModelLoadTotal     *prometheus.CounterVec
	PredictionDuration *prometheus.HistogramVec
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	LastIsFake         prometheus.Gauge
	LastConfidence     prometheus.Gauge
}

// NewDetectorMetrics creates the detector metrics and registers them with registry.
func NewDetectorMetrics(registry *prometheus.Registry) (*DetectorMetrics, error) {
	m := &DetectorMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detector metrics: %w", err)
	}
	return m, nil
}

func (m *DetectorMetrics) initMetrics() {
	m.ModelLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_load_duration_seconds",
			Help:      "Time taken to load the classifier model",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"backend"},
	)

	m.ModelLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Total number of model load attempts",
		},
		[]string{"backend", "status"},
	)

	m.PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time taken to preprocess an image and run inference",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"backend"},
	)

	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of predictions by outcome",
		},
		[]string{"backend", "status"},
	)

	m.PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Total number of failed predictions by error category",
		},
		[]string{"backend", "category"},
	)

	m.LastIsFake = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_is_fake",
			Help:      "Label of the most recent verdict (1 fake, 0 real)",
		},
	)

	m.LastConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_confidence",
			Help:      "Confidence of the most recent verdict",
		},
	)
}

// RecordModelLoad implements Recorder
func (m *DetectorMetrics) RecordModelLoad(backend string, seconds float64, err error) {
	if err != nil {
		m.ModelLoadTotal.WithLabelValues(backend, StatusError).Inc()
		return
	}
	m.ModelLoadTotal.WithLabelValues(backend, StatusSuccess).Inc()
	m.ModelLoadDuration.WithLabelValues(backend).Observe(seconds)
}

// RecordPrediction implements Recorder
func (m *DetectorMetrics) RecordPrediction(backend string, seconds float64, err error) {
	m.PredictionDuration.WithLabelValues(backend).Observe(seconds)
	if err != nil {
		m.PredictionTotal.WithLabelValues(backend, StatusError).Inc()
		m.PredictionErrors.WithLabelValues(backend, categorizeError(err)).Inc()
		return
	}
	m.PredictionTotal.WithLabelValues(backend, StatusSuccess).Inc()
}

// RecordVerdict implements Recorder
func (m *DetectorMetrics) RecordVerdict(isFake bool, confidence float64) {
	if isFake {
		m.LastIsFake.Set(1)
	} else {
		m.LastIsFake.Set(0)
	}
	m.LastConfidence.Set(confidence)
}

// categorizeError returns the error category label for err
func categorizeError(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category != "" {
		return string(ee.Category)
	}
	return string(errors.CategoryGeneric)
}

// Describe implements the prometheus.Collector interface.
func (m *DetectorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ModelLoadDuration.Describe(ch)
	m.ModelLoadTotal.Describe(ch)
	m.PredictionDuration.Describe(ch)
	m.PredictionTotal.Describe(ch)
	m.PredictionErrors.Describe(ch)
	ch <- m.LastIsFake.Desc()
	ch <- m.LastConfidence.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *DetectorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ModelLoadDuration.Collect(ch)
	m.ModelLoadTotal.Collect(ch)
	m.PredictionDuration.Collect(ch)
	m.PredictionTotal.Collect(ch)
	m.PredictionErrors.Collect(ch)
	ch <- m.LastIsFake
	ch <- m.LastConfidence
}
