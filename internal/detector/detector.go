// Package detector loads a binary real/fake image classifier and turns one
// image into a verdict.
package detector

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/cpuspec"
	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/imageproc"
	"github.com/deepscan/fakedetect/internal/logger"
	"github.com/deepscan/fakedetect/internal/observability/metrics"
)

// RawOutputTag prefixes the raw tensor line on the diagnostic writer
const RawOutputTag = "RAW_OUTPUT:"

// Detector owns a loaded model and the image pipeline feeding it.
// It is not safe for concurrent use.
type Detector struct {
	model    Model
	loader   *imageproc.Loader
	spec     imageproc.Spec
	diag     io.Writer
	log      logger.Logger
	recorder metrics.Recorder

	fs         afero.Fs
	filter     imaging.ResampleFilter
	autoOrient bool
	width      int
	height     int
}

// Option configures a Detector
type Option func(*Detector)

// WithDiagWriter sets where the raw output line is written, stderr by default
func WithDiagWriter(w io.Writer) Option {
	return func(d *Detector) {
		if w != nil {
			d.diag = w
		}
	}
}

// WithFs sets the filesystem images are read from
func WithFs(fs afero.Fs) Option {
	return func(d *Detector) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithLogger overrides the package logger
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithImageSize sets the image size used when the model input has dynamic spatial dimensions
func WithImageSize(width, height int) Option {
	return func(d *Detector) {
		d.width = width
		d.height = height
	}
}

// WithFilter sets the resampling filter
func WithFilter(filter imaging.ResampleFilter) Option {
	return func(d *Detector) {
		d.filter = filter
	}
}

// WithAutoOrient enables EXIF orientation handling
func WithAutoOrient(enabled bool) Option {
	return func(d *Detector) {
		d.autoOrient = enabled
	}
}

func newDetector(opts ...Option) *Detector {
	d := &Detector{
		diag:     os.Stderr,
		log:      GetLogger(),
		recorder: metrics.NoOpRecorder{},
		filter:   imaging.NearestNeighbor,
		width:    128,
		height:   128,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load opens the configured model and returns a ready Detector. Any error is
// fatal for the caller: the model is required for every prediction.
func Load(settings *conf.Settings, opts ...Option) (*Detector, error) {
	filter, err := imageproc.ParseInterpolation(settings.Image.Interpolation)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithImageSize(settings.Image.Width, settings.Image.Height),
		WithFilter(filter),
		WithAutoOrient(settings.Image.AutoOrient),
	}
	d := newDetector(append(base, opts...)...)

	modelOpts := ModelOptions{
		Path:        settings.Model.Path,
		Backend:     settings.Model.ResolvedBackend(),
		Threads:     cpuspec.ThreadCount(settings.Model.Threads),
		UseXNNPACK:  settings.Model.UseXNNPACK,
		ONNXLibrary: settings.Model.ONNXLibrary,
		ImageWidth:  d.width,
		ImageHeight: d.height,
	}

	start := time.Now()
	model, err := OpenModel(modelOpts)
	d.recorder.RecordModelLoad(modelOpts.Backend, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	d.log.Info("model loaded",
		logger.String("path", modelOpts.Path),
		logger.String("backend", modelOpts.Backend),
		logger.Int("threads", modelOpts.Threads),
		logger.Duration("elapsed", time.Since(start)))

	if err := d.attach(model); err != nil {
		_ = model.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an already opened model. The Detector takes ownership of it.
func New(model Model, opts ...Option) (*Detector, error) {
	d := newDetector(opts...)
	if err := d.attach(model); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) attach(model Model) error {
	if model == nil {
		return errors.Newf("detector requires a model").
			Category(errors.CategoryModelInit).
			Build()
	}

	spec, err := imageproc.SpecFromShape(model.InputShape(), d.width, d.height)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryModelInit).
			Context("backend", model.Backend()).
			Context("input_shape", fmt.Sprint(model.InputShape())).
			Build()
	}

	d.model = model
	d.spec = spec
	d.loader = imageproc.NewLoader(d.fs,
		imageproc.WithFilter(d.filter),
		imageproc.WithAutoOrient(d.autoOrient),
		imageproc.WithLogger(d.log.Module("image")))
	return nil
}

// Predict classifies the image at imagePath. Failures never escape as
// errors or panics; they are returned as the error variant of Result.
func (d *Detector) Predict(imagePath string) (result Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = Failure(errors.Newf("prediction failed: %v", r).
				Category(errors.CategoryInference).
				Context("image_path", imagePath).
				Build())
		}
		d.record(result, time.Since(start))
	}()

	verdict, err := d.predict(imagePath)
	if err != nil {
		return Failure(err)
	}
	return Success(verdict)
}

func (d *Detector) predict(imagePath string) (Verdict, error) {
	input, err := d.loader.Load(imagePath, d.spec)
	if err != nil {
		return Verdict{}, err
	}

	out, err := d.model.Predict(input)
	if err != nil {
		return Verdict{}, err
	}

	_, _ = fmt.Fprintln(d.diag, RawOutputTag, FormatRawOutput(out))

	head, err := InterpretOutput(out)
	if err != nil {
		return Verdict{}, err
	}

	verdict := head.Verdict()
	d.log.Debug("prediction complete",
		logger.String("image_path", imagePath),
		logger.Any("head", fmt.Sprintf("%T", head)),
		logger.Bool("is_fake", verdict.IsFake),
		logger.Float32("confidence", verdict.Confidence))
	return verdict, nil
}

func (d *Detector) record(result Result, elapsed time.Duration) {
	backend := d.model.Backend()
	d.recorder.RecordPrediction(backend, elapsed.Seconds(), result.Err)
	if result.OK() {
		d.recorder.RecordVerdict(result.Verdict.IsFake, float64(result.Verdict.Confidence))
		return
	}
	d.log.Warn("prediction failed",
		logger.String("backend", backend),
		logger.Error(result.Err))
}

// ModelInfo describes the loaded model for operators
type ModelInfo struct {
	Backend     string `yaml:"backend" json:"backend"`
	InputShape  []int  `yaml:"input_shape" json:"input_shape"`
	OutputShape []int  `yaml:"output_shape" json:"output_shape"`
	Layout      string `yaml:"layout" json:"layout"`
	ImageWidth  int    `yaml:"image_width" json:"image_width"`
	ImageHeight int    `yaml:"image_height" json:"image_height"`
}

// Info returns the model's backend, tensor shapes and the image size it is fed
func (d *Detector) Info() ModelInfo {
	return ModelInfo{
		Backend:     d.model.Backend(),
		InputShape:  d.model.InputShape(),
		OutputShape: d.model.OutputShape(),
		Layout:      d.spec.Layout.String(),
		ImageWidth:  d.spec.Width,
		ImageHeight: d.spec.Height,
	}
}

// Close releases the model
func (d *Detector) Close() error {
	if d.model == nil {
		return nil
	}
	err := d.model.Close()
	d.model = nil
	return err
}
