package telemetry

import (
	"github.com/deepscan/fakedetect/internal/logger"
)

// GetLogger returns the telemetry module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
