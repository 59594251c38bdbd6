package detector

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/observability/metrics"
)

// fakeModel is an in-memory Model returning a fixed output
type fakeModel struct {
	inputShape  []int
	outputShape []int
	output      []float32
	err         error
	panicWith   any

	calls     int
	lastInput []float32
	closed    bool
}

func newFakeModel(output ...float32) *fakeModel {
	return &fakeModel{
		inputShape:  []int{1, 128, 128, 3},
		outputShape: []int{1, len(output)},
		output:      output,
	}
}

func (m *fakeModel) Backend() string    { return "fake" }
func (m *fakeModel) InputShape() []int  { return m.inputShape }
func (m *fakeModel) OutputShape() []int { return m.outputShape }

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

func (m *fakeModel) Predict(input []float32) (Tensor, error) {
	m.calls++
	m.lastInput = input
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return Tensor{}, m.err
	}
	if err := checkInputLen(input, m.inputShape); err != nil {
		return Tensor{}, err
	}
	return cloneTensor(m.outputShape, m.output), nil
}

func testImageFs(t *testing.T) afero.Fs {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := range 48 {
		for x := range 64 {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "face.png", buf.Bytes(), 0o644))
	require.NoError(t, afero.WriteFile(fs, "broken.jpg", []byte("not an image"), 0o644))
	return fs
}

func newTestDetector(t *testing.T, model Model, opts ...Option) (*Detector, *bytes.Buffer) {
	t.Helper()

	diag := &bytes.Buffer{}
	base := []Option{WithFs(testImageFs(t)), WithDiagWriter(diag)}
	d, err := New(model, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, diag
}

func TestPredictSigmoid(t *testing.T) {
	t.Parallel()

	model := newFakeModel(0.82)
	d, diag := newTestDetector(t, model)

	result := d.Predict("face.png")
	require.True(t, result.OK(), result.ErrorMessage())
	assert.True(t, result.Verdict.IsFake)
	assert.InDelta(t, 0.82, result.Verdict.Confidence, 1e-6)

	assert.Equal(t, "RAW_OUTPUT: [[0.82]]\n", diag.String())
	assert.Len(t, model.lastInput, 128*128*3)
	for _, v := range model.lastInput {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestPredictSoftmax(t *testing.T) {
	t.Parallel()

	d, diag := newTestDetector(t, newFakeModel(0.3, 0.7))

	result := d.Predict("face.png")
	require.True(t, result.OK(), result.ErrorMessage())
	assert.True(t, result.Verdict.IsFake)
	assert.InDelta(t, 0.7, result.Verdict.Confidence, 1e-6)
	assert.Equal(t, "RAW_OUTPUT: [[0.3 0.7]]\n", diag.String())
}

func TestPredictRealImage(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, newFakeModel(0.5))

	result := d.Predict("face.png")
	require.True(t, result.OK())
	assert.False(t, result.Verdict.IsFake)
	assert.InDelta(t, 0.5, result.Verdict.Confidence, 1e-6)
}

func TestPredictFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		model        *fakeModel
		path         string
		wantCategory errors.ErrorCategory
		wantMsg      string
		wantRaw      bool
		wantCalls    int
	}{
		{
			name:         "missing image",
			model:        newFakeModel(0.9),
			path:         "missing.png",
			wantCategory: errors.CategoryFileIO,
			wantMsg:      "missing.png",
		},
		{
			name:         "corrupt image",
			model:        newFakeModel(0.9),
			path:         "broken.jpg",
			wantCategory: errors.CategoryImageDecode,
			wantMsg:      "cannot identify image file",
		},
		{
			name: "runtime failure",
			model: func() *fakeModel {
				m := newFakeModel(0.9)
				m.err = errors.Newf("invoke failed").Category(errors.CategoryInference).Build()
				return m
			}(),
			path:         "face.png",
			wantCategory: errors.CategoryInference,
			wantMsg:      "invoke failed",
			wantCalls:    1,
		},
		{
			name: "panic in runtime",
			model: func() *fakeModel {
				m := newFakeModel(0.9)
				m.panicWith = "tensor index out of range"
				return m
			}(),
			path:         "face.png",
			wantCategory: errors.CategoryInference,
			wantMsg:      "tensor index out of range",
			wantCalls:    1,
		},
		{
			name: "unusable output shape",
			model: func() *fakeModel {
				m := newFakeModel(0.9)
				m.outputShape = []int{1}
				return m
			}(),
			path:         "face.png",
			wantCategory: errors.CategoryValidation,
			wantMsg:      "unexpected model output shape",
			wantRaw:      true,
			wantCalls:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, diag := newTestDetector(t, tt.model)

			result := d.Predict(tt.path)
			require.False(t, result.OK())
			require.Error(t, result.Err)
			assert.Contains(t, result.ErrorMessage(), tt.wantMsg)
			assert.True(t, errors.IsCategory(result.Err, tt.wantCategory), "got %v", result.Err)
			assert.Equal(t, tt.wantCalls, tt.model.calls)

			if tt.wantRaw {
				assert.Contains(t, diag.String(), RawOutputTag)
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	t.Parallel()

	model := newFakeModel(0.3, 0.7)
	d, _ := newTestDetector(t, model)

	first := d.Predict("face.png")
	firstInput := model.lastInput
	second := d.Predict("face.png")

	require.True(t, first.OK())
	assert.Equal(t, *first.Verdict, *second.Verdict)
	assert.Equal(t, firstInput, model.lastInput)
}

func TestPredictChannelsFirstModel(t *testing.T) {
	t.Parallel()

	model := newFakeModel(0.1)
	model.inputShape = []int{1, 3, 64, 96}
	d, _ := newTestDetector(t, model)

	result := d.Predict("face.png")
	require.True(t, result.OK(), result.ErrorMessage())
	assert.Len(t, model.lastInput, 3*64*96)

	info := d.Info()
	assert.Equal(t, "NCHW", info.Layout)
	assert.Equal(t, 96, info.ImageWidth)
	assert.Equal(t, 64, info.ImageHeight)
}

func TestPredictDynamicInputUsesImageSize(t *testing.T) {
	t.Parallel()

	model := newFakeModel(0.1)
	model.inputShape = []int{-1, -1, -1, 3}
	d, _ := newTestDetector(t, model, WithImageSize(32, 16))

	info := d.Info()
	assert.Equal(t, "NHWC", info.Layout)
	assert.Equal(t, 32, info.ImageWidth)
	assert.Equal(t, 16, info.ImageHeight)
	assert.Equal(t, "fake", info.Backend)
	assert.Equal(t, []int{1, 1}, info.OutputShape)
}

func TestPredictRecordsMetrics(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewDetectorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	d, _ := newTestDetector(t, newFakeModel(0.82), WithMetrics(m))

	d.Predict("face.png")
	d.Predict("missing.png")

	assert.InDelta(t, 1, testutil.ToFloat64(m.PredictionTotal.WithLabelValues("fake", metrics.StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PredictionTotal.WithLabelValues("fake", metrics.StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PredictionErrors.WithLabelValues("fake", string(errors.CategoryFileIO))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LastIsFake), 0)
	assert.InDelta(t, 0.82, testutil.ToFloat64(m.LastConfidence), 1e-6)
}

func TestNewRejectsBadModels(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelInit))

	model := newFakeModel(0.5)
	model.inputShape = []int{1, 128, 128}
	_, err = New(model)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelInit))
	assert.Contains(t, err.Error(), "unexpected model input rank")
}

func TestCloseReleasesModel(t *testing.T) {
	t.Parallel()

	model := newFakeModel(0.5)
	d, err := New(model)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.True(t, model.closed)
	require.NoError(t, d.Close())
}

func testSettings(modelPath string) *conf.Settings {
	return &conf.Settings{
		Model: conf.ModelSettings{Path: modelPath, Backend: conf.BackendAuto},
		Image: conf.ImageSettings{Width: 128, Height: 128, Interpolation: "nearest"},
	}
}

func TestLoadMissingModel(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewDetectorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fake_image_detector_model.tflite")
	_, err = Load(testSettings(path), WithMetrics(m))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))
	assert.InDelta(t, 1, testutil.ToFloat64(m.ModelLoadTotal.WithLabelValues(conf.BackendTFLite, metrics.StatusError)), 0)
}

func TestLoadInvalidInterpolation(t *testing.T) {
	t.Parallel()

	settings := testSettings("model.tflite")
	settings.Image.Interpolation = "sinc"

	_, err := Load(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestOpenModelErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(file, []byte("weights"), 0o600))

	tests := []struct {
		name     string
		opts     ModelOptions
		category errors.ErrorCategory
	}{
		{"missing file", ModelOptions{Path: filepath.Join(dir, "nope.tflite"), Backend: conf.BackendTFLite}, errors.CategoryModelLoad},
		{"directory", ModelOptions{Path: dir, Backend: conf.BackendTFLite}, errors.CategoryModelLoad},
		{"unknown backend", ModelOptions{Path: file, Backend: "caffe"}, errors.CategoryConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model, err := OpenModel(tt.opts)
			require.Error(t, err)
			assert.Nil(t, model)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestCheckInputLen(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkInputLen(make([]float32, 12), []int{1, 2, 2, 3}))

	err := checkInputLen(make([]float32, 10), []int{1, 2, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input size mismatch")
}
