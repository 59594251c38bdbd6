package detector

import (
	"sync"

	"github.com/deepscan/fakedetect/internal/logger"
)

var (
	pkgLogger     logger.Logger
	pkgLoggerOnce sync.Once
)

// GetLogger returns the detector module logger
func GetLogger() logger.Logger {
	pkgLoggerOnce.Do(func() {
		pkgLogger = logger.Global().Module("detector")
	})
	return pkgLogger
}
