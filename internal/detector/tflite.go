package detector

import (
	"fmt"
	"time"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/logger"
)

// tfliteModel runs a TensorFlow Lite classifier
type tfliteModel struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	delegate    interface{ Delete() }
	inputShape  []int
	outputShape []int
}

func openTFLite(opts ModelOptions) (*tfliteModel, error) {
	start := time.Now()
	log := GetLogger().Module("tflite")

	model := tflite.NewModelFromFile(opts.Path)
	if model == nil {
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model %s", opts.Path)).
			Category(errors.CategoryModelLoad).
			ModelContext(opts.Path, conf.BackendTFLite).
			Timing("model_load", time.Since(start)).
			Build()
	}

	m := &tfliteModel{model: model}

	m.options = tflite.NewInterpreterOptions()
	threads := max(1, opts.Threads)
	if opts.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(threads)}) //nolint:gosec // G115: thread count bounded by CPU count
		if delegate == nil {
			log.Warn("failed to create XNNPACK delegate, falling back to default CPU kernels")
			m.options.SetNumThread(threads)
		} else {
			m.delegate = delegate
			m.options.AddDelegate(delegate)
			m.options.SetNumThread(1)
		}
	} else {
		m.options.SetNumThread(threads)
	}

	// The runtime is chatty; keep its messages out of the default error level
	m.options.SetErrorReporter(func(msg string, _ any) {
		log.Debug("TFLite message", logger.String("message", msg))
	}, nil)

	m.interpreter = tflite.NewInterpreter(model, m.options)
	if m.interpreter == nil {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("cannot create model interpreter")).
			Category(errors.CategoryModelInit).
			ModelContext(opts.Path, conf.BackendTFLite).
			Context("use_xnnpack", opts.UseXNNPACK).
			Build()
	}

	if status := m.interpreter.AllocateTensors(); status != tflite.OK {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("model tensor allocation failed: %v", status)).
			Category(errors.CategoryModelInit).
			ModelContext(opts.Path, conf.BackendTFLite).
			Build()
	}

	input := m.interpreter.GetInputTensor(0)
	output := m.interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("model has no input or output tensor")).
			Category(errors.CategoryModelInit).
			ModelContext(opts.Path, conf.BackendTFLite).
			Build()
	}
	if input.Type() != tflite.Float32 {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("unexpected model input type %v, want float32", input.Type())).
			Category(errors.CategoryValidation).
			ModelContext(opts.Path, conf.BackendTFLite).
			Build()
	}

	m.inputShape = tensorShape(input)
	m.outputShape = tensorShape(output)

	log.Debug("interpreter ready",
		logger.Int("threads", threads),
		logger.Bool("xnnpack", m.delegate != nil),
		logger.Ints("input_shape", m.inputShape),
		logger.Ints("output_shape", m.outputShape),
		logger.Duration("elapsed", time.Since(start)))

	return m, nil
}

func tensorShape(t *tflite.Tensor) []int {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return shape
}

// Backend implements Model
func (m *tfliteModel) Backend() string { return conf.BackendTFLite }

// InputShape implements Model
func (m *tfliteModel) InputShape() []int { return m.inputShape }

// OutputShape implements Model
func (m *tfliteModel) OutputShape() []int { return m.outputShape }

// Predict implements Model
func (m *tfliteModel) Predict(input []float32) (Tensor, error) {
	if err := checkInputLen(input, m.inputShape); err != nil {
		return Tensor{}, err
	}

	copy(m.interpreter.GetInputTensor(0).Float32s(), input)

	start := time.Now()
	if status := m.interpreter.Invoke(); status != tflite.OK {
		return Tensor{}, errors.New(fmt.Errorf("invoke failed: %v", status)).
			Category(errors.CategoryInference).
			Context("backend", conf.BackendTFLite).
			Timing("invoke", time.Since(start)).
			Build()
	}

	output := m.interpreter.GetOutputTensor(0)
	// the output shape may only be final after Invoke for dynamic models
	return cloneTensor(tensorShape(output), output.Float32s()), nil
}

// Close implements Model
func (m *tfliteModel) Close() error {
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.delegate != nil {
		m.delegate.Delete()
		m.delegate = nil
	}
	if m.options != nil {
		m.options.Delete()
		m.options = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	return nil
}
