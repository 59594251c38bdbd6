package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepscan/fakedetect/internal/errors"
)

// resetViper isolates a test from global viper state and from any
// fakedetect.yaml in the package directory or the user's home.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakedetect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultModelPath, settings.Model.Path)
	assert.Equal(t, BackendAuto, settings.Model.Backend)
	assert.Equal(t, 0, settings.Model.Threads)
	assert.False(t, settings.Model.UseXNNPACK)
	assert.Equal(t, 128, settings.Image.Width)
	assert.Equal(t, 128, settings.Image.Height)
	assert.Equal(t, "nearest", settings.Image.Interpolation)
	assert.Equal(t, "error", settings.Logging.Level)
	assert.True(t, settings.Output.Guard)
	assert.False(t, settings.Sentry.Enabled)
	assert.Empty(t, settings.Metrics.Textfile)
	assert.Same(t, settings, GetSettings())
}

func TestLoadPrecedence(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
model:
  path: from-file.tflite
  threads: 2
image:
  interpolation: bilinear
logging:
  level: info
`)
	t.Setenv("FAKEDETECT_MODEL_THREADS", "6")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("model", "", "")
	require.NoError(t, viper.BindPFlag("model.path", flags.Lookup("model")))
	require.NoError(t, flags.Parse([]string{"--model", "from-flag.onnx"}))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.onnx", settings.Model.Path, "flag beats file")
	assert.Equal(t, 6, settings.Model.Threads, "env beats file")
	assert.Equal(t, "bilinear", settings.Image.Interpolation, "file beats default")
	assert.Equal(t, "info", settings.Logging.Level)
	assert.Equal(t, path, ConfigFileUsed())
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	resetViper(t)

	require.NoError(t, os.WriteFile("fakedetect.yaml", []byte("model:\n  backend: onnx\n"), 0o600))

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendONNX, settings.Model.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"negative threads", "FAKEDETECT_MODEL_THREADS", "-1"},
		{"unknown backend", "FAKEDETECT_MODEL_BACKEND", "tensorrt"},
		{"bad bool", "FAKEDETECT_MODEL_USEXNNPACK", "maybe"},
		{"zero width", "FAKEDETECT_IMAGE_WIDTH", "0"},
		{"unknown interpolation", "FAKEDETECT_IMAGE_INTERPOLATION", "cubic-spline"},
		{"unknown level", "FAKEDETECT_LOGGING_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, "sentry:\n  enabled: true\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN")
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := func() Settings {
		return Settings{
			Model:   ModelSettings{Path: "m.tflite", Backend: BackendAuto},
			Image:   ImageSettings{Width: 128, Height: 128, Interpolation: "nearest"},
			Logging: LoggingSettings{Level: "error"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"empty model path", func(s *Settings) { s.Model.Path = " " }, "model path"},
		{"xnnpack with onnx", func(s *Settings) { s.Model.Path = "m.onnx"; s.Model.UseXNNPACK = true }, "XNNPACK"},
		{"huge image", func(s *Settings) { s.Image.Height = 10000 }, "image height"},
		{"bad level", func(s *Settings) { s.Logging.Level = "loud" }, "logging level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tt.mutate(&s)
			err := ValidateSettings(&s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolvedBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, backend, want string
	}{
		{"fake_image_detector_model.tflite", BackendAuto, BackendTFLite},
		{"model.onnx", BackendAuto, BackendONNX},
		{"model.h5", "", BackendTFLite},
		{"model.bin", BackendONNX, BackendONNX},
	}

	for _, tt := range tests {
		m := ModelSettings{Path: tt.path, Backend: tt.backend}
		assert.Equal(t, tt.want, m.ResolvedBackend(), tt.path)
	}
}

func TestEffectiveLogLevel(t *testing.T) {
	t.Parallel()

	s := Settings{Logging: LoggingSettings{Level: "warn"}}
	assert.Equal(t, "warn", s.EffectiveLogLevel())
	s.Debug = true
	assert.Equal(t, "debug", s.EffectiveLogLevel())
}
