// Package metrics provides constants used across metric definitions.
package metrics

// Operation status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// namespace prefixes every metric name
const namespace = "fakedetect"
