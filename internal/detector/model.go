package detector

import (
	"os"
	"slices"

	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/errors"
)

// Tensor is a model output: a shape and its row-major data.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Model is a loaded classifier. Implementations are not safe for concurrent use.
type Model interface {
	// Backend names the runtime, "tflite" or "onnx"
	Backend() string
	// InputShape is the shape of the first input, batch axis included
	InputShape() []int
	// OutputShape is the shape of the first output, batch axis included
	OutputShape() []int
	// Predict runs one forward pass. The returned Tensor is owned by the caller.
	Predict(input []float32) (Tensor, error)
	// Close releases the runtime resources
	Close() error
}

// ModelOptions selects and tunes a model runtime
type ModelOptions struct {
	Path        string
	Backend     string // resolved backend, tflite or onnx
	Threads     int    // resolved thread count, > 0
	UseXNNPACK  bool
	ONNXLibrary string

	// ImageWidth and ImageHeight replace dynamic spatial input dimensions
	ImageWidth  int
	ImageHeight int
}

// OpenModel loads the model at opts.Path with the requested backend.
func OpenModel(opts ModelOptions) (Model, error) {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryModelLoad).
			ModelContext(opts.Path, opts.Backend).
			Context("operation", "stat_model").
			Build()
	}
	if info.IsDir() {
		return nil, errors.Newf("model path %s is a directory", opts.Path).
			Category(errors.CategoryModelLoad).
			ModelContext(opts.Path, opts.Backend).
			Build()
	}

	switch opts.Backend {
	case conf.BackendTFLite:
		m, err := openTFLite(opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	case conf.BackendONNX:
		m, err := openONNX(opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Newf("unsupported model backend %q", opts.Backend).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// checkInputLen validates the flat input length against a shape
func checkInputLen(input []float32, shape []int) error {
	want := numElements(shape)
	if len(input) != want {
		return errors.Newf("input size mismatch: got %d values, model expects %d (shape %v)", len(input), want, shape).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func cloneTensor(shape []int, data []float32) Tensor {
	return Tensor{Shape: slices.Clone(shape), Data: slices.Clone(data)}
}
