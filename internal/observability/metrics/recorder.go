// Package metrics provides custom Prometheus metrics for fakedetect.
package metrics

// Recorder defines the metrics a detector run reports. Components depend on
// this interface rather than on concrete collectors.
type Recorder interface {
	// RecordModelLoad records a model load attempt and how long it took.
	RecordModelLoad(backend string, seconds float64, err error)

	// RecordPrediction records one prediction. err is the error of the
	// result record, nil for a verdict.
	RecordPrediction(backend string, seconds float64, err error)

	// RecordVerdict records the label and confidence of the last verdict.
	RecordVerdict(isFake bool, confidence float64)
}

// NoOpRecorder discards all metrics
type NoOpRecorder struct{}

// RecordModelLoad implements Recorder
func (NoOpRecorder) RecordModelLoad(string, float64, error) {}

// RecordPrediction implements Recorder
func (NoOpRecorder) RecordPrediction(string, float64, error) {}

// RecordVerdict implements Recorder
func (NoOpRecorder) RecordVerdict(bool, float64) {}
