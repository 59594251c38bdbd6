// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

const maxImageSize = 4096

var (
	validBackends       = []string{BackendAuto, BackendTFLite, BackendONNX}
	validInterpolations = []string{"nearest", "bilinear", "bicubic", "lanczos", "box"}
	validLogLevels      = []string{"trace", "debug", "info", "warn", "error"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateModelSettings(&settings.Model); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateImageSettings(&settings.Image); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSentrySettings(&settings.Sentry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(settings *ModelSettings) error {
	var errs []string

	if strings.TrimSpace(settings.Path) == "" {
		errs = append(errs, "model path must not be empty")
	}

	if err := validateChoice(settings.Backend, validBackends); err != nil {
		errs = append(errs, fmt.Sprintf("model backend: %v", err))
	}

	if settings.Threads < 0 {
		errs = append(errs, fmt.Sprintf("model threads must be non-negative, got %d", settings.Threads))
	}

	if settings.UseXNNPACK && settings.ResolvedBackend() == BackendONNX {
		errs = append(errs, "XNNPACK is only available with the tflite backend")
	}

	if len(errs) > 0 {
		return fmt.Errorf("model settings errors: %v", errs)
	}
	return nil
}

func validateImageSettings(settings *ImageSettings) error {
	var errs []string

	if err := validateImageSize(settings.Width); err != nil {
		errs = append(errs, fmt.Sprintf("image width: %v", err))
	}
	if err := validateImageSize(settings.Height); err != nil {
		errs = append(errs, fmt.Sprintf("image height: %v", err))
	}
	if err := validateChoice(settings.Interpolation, validInterpolations); err != nil {
		errs = append(errs, fmt.Sprintf("image interpolation: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("image settings errors: %v", errs)
	}
	return nil
}

func validateLoggingSettings(settings *LoggingSettings) error {
	if err := validateChoice(settings.Level, validLogLevels); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry is enabled but no DSN is configured")
	}
	return nil
}

func validateImageSize(size int) error {
	if size < 1 || size > maxImageSize {
		return fmt.Errorf("must be between 1 and %d, got %d", maxImageSize, size)
	}
	return nil
}
