package errors

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuildWithReporterDetectsCategory(t *testing.T) {
	rec := &recordingReporter{}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"model load", fmt.Errorf("failed to load model file"), CategoryModelLoad},
		{"model init", fmt.Errorf("failed to create model interpreter"), CategoryModelInit},
		{"decode", fmt.Errorf("failed to decode image"), CategoryImageDecode},
		{"invoke", fmt.Errorf("invoke failed"), CategoryInference},
		{"missing file", fmt.Errorf("open x.png: no such file or directory"), CategoryFileIO},
		{"shape", fmt.Errorf("input shape mismatch"), CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ee := New(tt.err).Component("detector").Build()
			assert.Equal(t, tt.want, ee.Category)
			assert.True(t, ee.IsReported())
		})
	}
	assert.Len(t, rec.reported, len(tests))
}

func TestExplicitCategoryWins(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("failed to decode image")).
		Category(CategoryOutput).
		Build()

	assert.Equal(t, CategoryOutput, ee.Category)
	assert.True(t, IsCategory(ee, CategoryOutput))
	assert.False(t, IsCategory(ee, CategoryImageDecode))
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("boom")).
		ModelContext("/opt/models/fake_image_detector_model.tflite", "tflite").
		FileContext("photos/face.PNG", 2048).
		Timing("predict", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "fake_image_detector_model.tflite", ctx["model_file"])
	assert.Equal(t, "tflite", ctx["model_format"])
	assert.Equal(t, "tflite", ctx["backend"])
	assert.Equal(t, "relative-path", ctx["file_type"])
	assert.Equal(t, "png", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
	assert.Equal(t, "predict", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])

	ctx["backend"] = "mutated"
	assert.Equal(t, "tflite", ee.GetContext()["backend"], "GetContext must return a copy")
}

func TestUnwrapAndIs(t *testing.T) {
	t.Parallel()

	ee := New(os.ErrNotExist).Category(CategoryFileIO).Build()
	wrapped := fmt.Errorf("loading: %w", ee)

	assert.True(t, Is(wrapped, os.ErrNotExist))
	assert.True(t, Is(wrapped, &EnhancedError{Category: CategoryFileIO}))
	assert.False(t, Is(wrapped, &EnhancedError{Category: CategoryInference}))

	var target *EnhancedError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, CategoryFileIO, target.Category)
}

func TestBasicScrub(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		missing []string
	}{
		{"url query", "fetch https://example.com/a?api_key=secret failed", []string{"secret"}},
		{"home path", "open /home/alice/photos/me.jpg: permission denied", []string{"alice", "me.jpg"}},
		{"windows path", `open C:\Users\bob\Pictures\x.png`, []string{"bob"}},
		{"hex key", "token 0123456789abcdef0123456789abcdef rejected", []string{"0123456789abcdef0123456789abcdef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := basicScrub(tt.input)
			for _, s := range tt.missing {
				assert.NotContains(t, got, s)
			}
			assert.True(t, strings.Contains(got, "REDACTED"), got)
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).
		Component("detector").
		Category(CategoryInference).
		Context("operation", "run_inference").
		Build()

	assert.Equal(t, "Detector Inference Error Run Inference", generateErrorTitle(ee))
}
