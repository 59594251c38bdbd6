// Package conf loads fakedetect settings from defaults, an optional YAML
// config file, FAKEDETECT_* environment variables and command line flags.
package conf

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/viper"

	"github.com/deepscan/fakedetect/internal/errors"
)

const (
	// ConfigName is the base name of the config file searched in the default paths
	ConfigName = "fakedetect"

	// DefaultModelPath is resolved against the working directory
	DefaultModelPath = "fake_image_detector_model.tflite"
)

// Backend names accepted by model.backend
const (
	BackendAuto   = "auto"
	BackendTFLite = "tflite"
	BackendONNX   = "onnx"
)

// Settings holds the effective configuration of one invocation.
type Settings struct {
	Debug   bool            `yaml:"debug" mapstructure:"debug"`
	Model   ModelSettings   `yaml:"model" mapstructure:"model"`
	Image   ImageSettings   `yaml:"image" mapstructure:"image"`
	Logging LoggingSettings `yaml:"logging" mapstructure:"logging"`
	Output  OutputSettings  `yaml:"output" mapstructure:"output"`
	Sentry  SentrySettings  `yaml:"sentry" mapstructure:"sentry"`
	Metrics MetricsSettings `yaml:"metrics" mapstructure:"metrics"`
}

// ModelSettings selects and tunes the classifier runtime
type ModelSettings struct {
	Path        string `yaml:"path" mapstructure:"path"`               // model file, relative to the working directory unless absolute
	Backend     string `yaml:"backend" mapstructure:"backend"`         // auto, tflite or onnx
	Threads     int    `yaml:"threads" mapstructure:"threads"`         // 0 = derived from CPU topology
	UseXNNPACK  bool   `yaml:"usexnnpack" mapstructure:"usexnnpack"`   // TFLite only
	ONNXLibrary string `yaml:"onnxlibrary" mapstructure:"onnxlibrary"` // path to the onnxruntime shared library
}

// ImageSettings controls preprocessing
type ImageSettings struct {
	Width         int    `yaml:"width" mapstructure:"width"`
	Height        int    `yaml:"height" mapstructure:"height"`
	Interpolation string `yaml:"interpolation" mapstructure:"interpolation"` // nearest, bilinear, bicubic, lanczos, box
	AutoOrient    bool   `yaml:"autoorient" mapstructure:"autoorient"`       // apply EXIF orientation before resizing
}

// LoggingSettings controls diagnostic output on stderr and the optional log file
type LoggingSettings struct {
	Level    string `yaml:"level" mapstructure:"level"`
	File     string `yaml:"file" mapstructure:"file"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// OutputSettings controls the result channel
type OutputSettings struct {
	Guard bool `yaml:"guard" mapstructure:"guard"` // redirect fd 1 to stderr while native code runs
}

// SentrySettings enables opt-in error telemetry
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// MetricsSettings controls the Prometheus textfile export
type MetricsSettings struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"` // empty disables export
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file, environment variables and any flags
// already bound with viper.BindPFlag into a validated Settings. An empty
// configFile searches the default config paths; a missing file there is not
// an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init_viper").
			Build()
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.Newf("error unmarshaling config into struct: %w", err).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.Newf("error validating settings: %w", err).
			Category(errors.CategoryConfiguration).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and environment bindings and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Newf("fatal error reading config file %s: %w", configFile, err).
				Category(errors.CategoryConfiguration).
				Build()
		}
		return nil
	}

	viper.SetConfigName(ConfigName)
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return errors.Newf("fatal error reading config file: %w", err).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}

// ConfigFileUsed returns the config file viper read, or "" when running on defaults
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetDefaultConfigPaths returns the directories searched for fakedetect.yaml,
// in priority order. The working directory always comes first.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	homeDir, err := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if err == nil {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", ConfigName))
		}
	default:
		if err == nil {
			paths = append(paths, filepath.Join(homeDir, ".config", ConfigName))
		}
		paths = append(paths, "/etc/"+ConfigName)
	}

	return paths
}

// GetSettings returns the settings of the last successful Load, or nil
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ResolvedBackend returns the backend to use for the configured model,
// resolving "auto" by file extension.
func (m *ModelSettings) ResolvedBackend() string {
	if m.Backend != "" && m.Backend != BackendAuto {
		return m.Backend
	}
	if filepath.Ext(m.Path) == ".onnx" {
		return BackendONNX
	}
	return BackendTFLite
}

// EffectiveLogLevel returns the log level after applying the debug switch
func (s *Settings) EffectiveLogLevel() string {
	if s.Debug {
		return "debug"
	}
	return s.Logging.Level
}
