// env.go - Environment variable configuration and validation for fakedetect
package conf

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "FAKEDETECT_DEBUG", validateEnvBool},

		// Model
		{"model.path", "FAKEDETECT_MODEL_PATH", validateEnvNonEmpty},
		{"model.backend", "FAKEDETECT_MODEL_BACKEND", validateEnvBackend},
		{"model.threads", "FAKEDETECT_MODEL_THREADS", validateEnvThreads},
		{"model.usexnnpack", "FAKEDETECT_MODEL_USEXNNPACK", validateEnvBool},
		{"model.onnxlibrary", "FAKEDETECT_MODEL_ONNXLIBRARY", nil},

		// Preprocessing
		{"image.width", "FAKEDETECT_IMAGE_WIDTH", validateEnvImageSize},
		{"image.height", "FAKEDETECT_IMAGE_HEIGHT", validateEnvImageSize},
		{"image.interpolation", "FAKEDETECT_IMAGE_INTERPOLATION", validateEnvInterpolation},

		// Diagnostics
		{"logging.level", "FAKEDETECT_LOGGING_LEVEL", validateEnvLogLevel},
		{"logging.file", "FAKEDETECT_LOGGING_FILE", nil},
		{"sentry.dsn", "FAKEDETECT_SENTRY_DSN", nil},
		{"metrics.textfile", "FAKEDETECT_METRICS_TEXTFILE", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("value must not be blank")
	}
	return nil
}

func validateEnvBackend(value string) error {
	return validateChoice(value, validBackends)
}

func validateEnvInterpolation(value string) error {
	return validateChoice(value, validInterpolations)
}

func validateEnvLogLevel(value string) error {
	return validateChoice(value, validLogLevels)
}

func validateEnvThreads(value string) error {
	threads, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid threads: %w", err)
	}
	if threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", threads)
	}
	return nil
}

func validateEnvImageSize(value string) error {
	size, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid image size: %w", err)
	}
	return validateImageSize(size)
}

func validateChoice(value string, valid []string) error {
	if !slices.Contains(valid, value) {
		return fmt.Errorf("must be one of: %s", strings.Join(valid, ", "))
	}
	return nil
}
