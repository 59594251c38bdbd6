// Package imageproc turns an image file into the normalized float32 input
// tensor of an image classifier.
package imageproc

import (
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp" // registers the WebP decoder with image.Decode

	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/logger"
)

// Channels is the number of color channels fed to the model
const Channels = 3

// Layout is the memory order of the input tensor
type Layout int

const (
	// NHWC is the channels-last layout used by TFLite models
	NHWC Layout = iota
	// NCHW is the channels-first layout common in ONNX exports
	NCHW
)

func (l Layout) String() string {
	if l == NCHW {
		return "NCHW"
	}
	return "NHWC"
}

// Spec describes the input tensor a model expects
type Spec struct {
	Width  int
	Height int
	Layout Layout
}

// Len returns the number of float32 elements in a batch of one
func (s Spec) Len() int {
	return s.Width * s.Height * Channels
}

// Shape returns the tensor shape including the batch axis of 1
func (s Spec) Shape() []int {
	if s.Layout == NCHW {
		return []int{1, Channels, s.Height, s.Width}
	}
	return []int{1, s.Height, s.Width, Channels}
}

// SpecFromShape derives the input Spec from a model input shape. Only rank 4
// shapes with 3 channels are accepted. Dynamic dimensions (<= 0) take the
// fallback width and height.
func SpecFromShape(shape []int, fallbackWidth, fallbackHeight int) (Spec, error) {
	if len(shape) != 4 {
		return Spec{}, errors.Newf("unexpected model input rank %d, want 4 (shape %v)", len(shape), shape).
			Category(errors.CategoryValidation).
			Build()
	}

	dim := func(v, fallback int) int {
		if v <= 0 {
			return fallback
		}
		return v
	}

	switch {
	case shape[3] == Channels:
		return Spec{Height: dim(shape[1], fallbackHeight), Width: dim(shape[2], fallbackWidth), Layout: NHWC}, nil
	case shape[1] == Channels:
		return Spec{Height: dim(shape[2], fallbackHeight), Width: dim(shape[3], fallbackWidth), Layout: NCHW}, nil
	default:
		return Spec{}, errors.Newf("unexpected model input shape %v, want 3 channels", shape).
			Category(errors.CategoryValidation).
			Build()
	}
}

var interpolations = map[string]imaging.ResampleFilter{
	"nearest":  imaging.NearestNeighbor,
	"bilinear": imaging.Linear,
	"bicubic":  imaging.CatmullRom,
	"lanczos":  imaging.Lanczos,
	"box":      imaging.Box,
}

// ParseInterpolation maps an interpolation name to an imaging filter
func ParseInterpolation(name string) (imaging.ResampleFilter, error) {
	filter, ok := interpolations[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, errors.Newf("invalid interpolation %q", name).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return filter, nil
}

// Loader reads, decodes and preprocesses images
type Loader struct {
	fs         afero.Fs
	filter     imaging.ResampleFilter
	autoOrient bool
	log        logger.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithFilter sets the resampling filter. Defaults to nearest neighbour.
func WithFilter(filter imaging.ResampleFilter) Option {
	return func(l *Loader) {
		l.filter = filter
	}
}

// WithAutoOrient applies EXIF orientation before resizing
func WithAutoOrient(enabled bool) Option {
	return func(l *Loader) {
		l.autoOrient = enabled
	}
}

// WithLogger sets the logger. Defaults to the package logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader creates a Loader reading from fs. A nil fs means the OS filesystem.
func NewLoader(fs afero.Fs, opts ...Option) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	l := &Loader{
		fs:     fs,
		filter: imaging.NearestNeighbor,
		log:    GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the image at path and returns its tensor for spec, batch axis
// included, values scaled to [0,1].
func (l *Loader) Load(path string, spec Spec) ([]float32, error) {
	start := time.Now()

	f, err := l.fs.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "open_image").
			Build()
	}
	defer f.Close()

	var size int64
	if info, statErr := f.Stat(); statErr == nil {
		size = info.Size()
	}

	img, err := l.decode(f)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot identify image file %q: %w", path, err)).
			Category(errors.CategoryImageDecode).
			FileContext(path, size).
			Context("operation", "decode_image").
			Build()
	}

	bounds := img.Bounds()
	tensor := Tensor(img, spec, l.filter)

	l.log.Debug("image preprocessed",
		logger.Int("source_width", bounds.Dx()),
		logger.Int("source_height", bounds.Dy()),
		logger.Ints("input_shape", spec.Shape()),
		logger.String("layout", spec.Layout.String()),
		logger.Duration("elapsed", time.Since(start)))

	return tensor, nil
}

func (l *Loader) decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(l.autoOrient))
}

// Tensor resizes img to the spec size and converts it to a float32 tensor.
// Alpha is dropped, not composited, and channel values are divided by 255.
func Tensor(img image.Image, spec Spec, filter imaging.ResampleFilter) []float32 {
	resized := imaging.Resize(img, spec.Width, spec.Height, filter)

	out := make([]float32, spec.Len())
	plane := spec.Width * spec.Height

	for y := range spec.Height {
		row := resized.Pix[y*resized.Stride:]
		for x := range spec.Width {
			px := row[x*4 : x*4+3]
			if spec.Layout == NCHW {
				i := y*spec.Width + x
				out[i] = float32(px[0]) / 255.0
				out[plane+i] = float32(px[1]) / 255.0
				out[2*plane+i] = float32(px[2]) / 255.0
				continue
			}
			base := (y*spec.Width + x) * Channels
			out[base+0] = float32(px[0]) / 255.0
			out[base+1] = float32(px[1]) / 255.0
			out[base+2] = float32(px[2]) / 255.0
		}
	}

	return out
}
