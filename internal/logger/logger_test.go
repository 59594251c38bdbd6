package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantError bool
	}{
		{"debug shows all", LogLevelDebug, true, true},
		{"error hides debug", LogLevelError, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			log := NewSlogLogger(buf, tt.level, time.UTC)

			log.Debug("debug message")
			log.Error("error message")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "debug message"))
			assert.Equal(t, tt.wantError, strings.Contains(buf.String(), "error message"))
		})
	}
}

func TestTextHandlerFormat(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).Module("detector").Module("tflite")

	log.Debug("model loaded",
		String("backend", "tflite"),
		Int("threads", 4),
		Float32("confidence", 0.123456),
		Duration("elapsed", 1500*time.Millisecond),
		String("path", "with space.png"))

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "DEBUG [detector.tflite] model loaded"), line)
	assert.Contains(t, line, "backend=tflite")
	assert.Contains(t, line, "threads=4")
	assert.Contains(t, line, "confidence=0.1235")
	assert.Contains(t, line, "elapsed=1.5s")
	assert.Contains(t, line, `path="with space.png"`)
}

func TestWithFieldsAreImmutable(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelInfo, time.UTC)
	child := base.With(String("run_id", "abc"))

	base.Info("parent")
	child.Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "run_id")
	assert.Contains(t, lines[1], "run_id=abc")
}

func TestFanoutRespectsOutputLevels(t *testing.T) {
	t.Parallel()

	console := &bytes.Buffer{}
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "error",
		Console:      &ConsoleOutput{Enabled: true, Level: "warn"},
		FileOutput: &FileOutput{
			Enabled: true,
			Path:    filepath.Join(t.TempDir(), "logs", "fakedetect.log"),
			Level:   "debug",
		},
	}, WithConsoleWriter(console))
	require.NoError(t, err)

	log := cl.Module("detector")
	log.Debug("only in file")
	log.Warn("everywhere")
	require.NoError(t, cl.Close())

	assert.NotContains(t, console.String(), "only in file")
	assert.Contains(t, console.String(), "everywhere")

	data, err := os.ReadFile(cl.config.FileOutput.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"only in file"`)
	assert.Contains(t, string(data), `"module":"detector"`)
}

func TestRedaction(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.Info("telemetry",
		String("sentry_dsn", "https://0123456789abcdef0123@o1.ingest.sentry.io/1"),
		String("note", "token=supersecretvalue"))

	out := buf.String()
	assert.NotContains(t, out, "0123456789abcdef0123")
	assert.NotContains(t, out, "supersecretvalue")
	assert.Contains(t, out, "[REDACTED]")
}

func TestCentralLoggerConsoleAndFile(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "fakedetect.log")
	console := &bytes.Buffer{}

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "error",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: true, Level: "warn"},
		FileOutput:   &FileOutput{Enabled: true, Path: logPath, Level: "debug"},
	}, WithConsoleWriter(console))
	require.NoError(t, err)

	log := cl.Module("imageproc")
	log.Debug("resized", Int("width", 128))
	log.Warn("slow decode")

	require.NoError(t, cl.Close())

	assert.NotContains(t, console.String(), "resized")
	assert.Contains(t, console.String(), "WARN  [imageproc] slow decode")

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)
	assert.Equal(t, "resized", records[0]["msg"])
	assert.Equal(t, "imageproc", records[0]["module"])
	assert.InDelta(t, 128, records[0]["width"], 0)
}

func TestCentralLoggerInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestCentralLoggerNilConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)
}

func TestModuleLevelOverride(t *testing.T) {
	t.Parallel()

	console := &bytes.Buffer{}
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: true, Level: "debug"},
		ModuleLevels: map[string]string{"detector": "error"},
	}, WithConsoleWriter(console))
	require.NoError(t, err)

	cl.Module("detector").Debug("hidden")
	cl.Module("imageproc").Debug("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestBufferedFileWriterClosed(t *testing.T) {
	t.Parallel()

	w, err := NewBufferedFileWriter(filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)

	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	require.ErrorIs(t, err, ErrWriterClosed)
}
