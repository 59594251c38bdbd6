// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("model.path", DefaultModelPath)
	viper.SetDefault("model.backend", BackendAuto)
	viper.SetDefault("model.threads", 0)
	viper.SetDefault("model.usexnnpack", false)
	viper.SetDefault("model.onnxlibrary", "")

	// the classifier was trained on nearest-neighbour 128x128 inputs
	viper.SetDefault("image.width", 128)
	viper.SetDefault("image.height", 128)
	viper.SetDefault("image.interpolation", "nearest")
	viper.SetDefault("image.autoorient", false)

	viper.SetDefault("logging.level", "error")
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.timezone", "Local")

	viper.SetDefault("output.guard", true)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.debug", false)

	viper.SetDefault("metrics.textfile", "")
}
