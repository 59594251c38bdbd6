package detector

import (
	"fmt"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/imageproc"
	"github.com/deepscan/fakedetect/internal/logger"
)

// onnxModel runs an ONNX classifier through onnxruntime
type onnxModel struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputShape   []int
	outputShape  []int
}

func openONNX(opts ModelOptions) (*onnxModel, error) {
	start := time.Now()
	log := GetLogger().Module("onnx")

	if opts.ONNXLibrary != "" {
		ort.SetSharedLibraryPath(opts.ONNXLibrary)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.New(fmt.Errorf("failed to initialize ONNX environment: %w", err)).
				Category(errors.CategoryModelInit).
				ModelContext(opts.Path, conf.BackendONNX).
				Build()
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.Path)
	if err != nil {
		destroyONNXEnvironment()
		return nil, errors.New(fmt.Errorf("failed to read ONNX model %s: %w", opts.Path, err)).
			Category(errors.CategoryModelLoad).
			ModelContext(opts.Path, conf.BackendONNX).
			Build()
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		destroyONNXEnvironment()
		return nil, errors.New(fmt.Errorf("model has no input or output tensor")).
			Category(errors.CategoryModelInit).
			ModelContext(opts.Path, conf.BackendONNX).
			Build()
	}
	if inputs[0].DataType != ort.TensorElementDataTypeFloat {
		destroyONNXEnvironment()
		return nil, errors.New(fmt.Errorf("unexpected model input type %v, want float32", inputs[0].DataType)).
			Category(errors.CategoryValidation).
			ModelContext(opts.Path, conf.BackendONNX).
			Build()
	}

	inputShape, err := concreteInputShape(inputs[0].Dimensions, opts.ImageWidth, opts.ImageHeight)
	if err != nil {
		destroyONNXEnvironment()
		return nil, err
	}
	outputShape := concreteShape(outputs[0].Dimensions)

	m := &onnxModel{inputShape: inputShape, outputShape: outputShape}

	m.inputTensor, err = ort.NewEmptyTensor[float32](toORTShape(inputShape))
	if err != nil {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("failed to create input tensor: %w", err)).
			Category(errors.CategoryModelInit).
			Build()
	}

	m.outputTensor, err = ort.NewEmptyTensor[float32](toORTShape(outputShape))
	if err != nil {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("failed to create output tensor: %w", err)).
			Category(errors.CategoryModelInit).
			Build()
	}

	threads := max(1, opts.Threads)
	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("failed to create session options: %w", err)).
			Category(errors.CategoryModelInit).
			Build()
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(threads); err != nil {
		log.Warn("failed to set intra-op threads", logger.Error(err))
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		log.Warn("failed to set inter-op threads", logger.Error(err))
	}

	m.session, err = ort.NewAdvancedSession(opts.Path,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{m.inputTensor}, []ort.ArbitraryTensor{m.outputTensor},
		options)
	if err != nil {
		_ = m.Close()
		return nil, errors.New(fmt.Errorf("failed to create ONNX session: %w", err)).
			Category(errors.CategoryModelInit).
			ModelContext(opts.Path, conf.BackendONNX).
			Build()
	}

	log.Debug("session ready",
		logger.Int("threads", threads),
		logger.String("input_name", inputs[0].Name),
		logger.String("output_name", outputs[0].Name),
		logger.Ints("input_shape", inputShape),
		logger.Ints("output_shape", outputShape),
		logger.Duration("elapsed", time.Since(start)))

	return m, nil
}

// concreteInputShape resolves dynamic input dimensions: the batch axis
// becomes 1 and spatial axes take the configured image size.
func concreteInputShape(dims ort.Shape, width, height int) ([]int, error) {
	raw := make([]int, len(dims))
	for i, d := range dims {
		raw[i] = int(d)
	}
	spec, err := imageproc.SpecFromShape(raw, width, height)
	if err != nil {
		return nil, err
	}
	return spec.Shape(), nil
}

// concreteShape replaces dynamic dimensions with 1
func concreteShape(dims ort.Shape) []int {
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = max(1, int(d))
	}
	return shape
}

func toORTShape(shape []int) ort.Shape {
	dims := make([]int64, len(shape))
	for i, d := range shape {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...)
}

func destroyONNXEnvironment() {
	if ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}

// Backend implements Model
func (m *onnxModel) Backend() string { return conf.BackendONNX }

// InputShape implements Model
func (m *onnxModel) InputShape() []int { return m.inputShape }

// OutputShape implements Model
func (m *onnxModel) OutputShape() []int { return m.outputShape }

// Predict implements Model
func (m *onnxModel) Predict(input []float32) (Tensor, error) {
	if err := checkInputLen(input, m.inputShape); err != nil {
		return Tensor{}, err
	}

	copy(m.inputTensor.GetData(), input)

	start := time.Now()
	if err := m.session.Run(); err != nil {
		return Tensor{}, errors.New(fmt.Errorf("inference failed: %w", err)).
			Category(errors.CategoryInference).
			Context("backend", conf.BackendONNX).
			Timing("session_run", time.Since(start)).
			Build()
	}

	return cloneTensor(m.outputShape, m.outputTensor.GetData()), nil
}

// Close implements Model
func (m *onnxModel) Close() error {
	var errs []error
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			errs = append(errs, err)
		}
		m.session = nil
	}
	if m.inputTensor != nil {
		if err := m.inputTensor.Destroy(); err != nil {
			errs = append(errs, err)
		}
		m.inputTensor = nil
	}
	if m.outputTensor != nil {
		if err := m.outputTensor.Destroy(); err != nil {
			errs = append(errs, err)
		}
		m.outputTensor = nil
	}
	destroyONNXEnvironment()
	return errors.Join(errs...)
}
