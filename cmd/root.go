// Package cmd implements the fakedetect command line interface
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepscan/fakedetect/cmd/config"
	"github.com/deepscan/fakedetect/cmd/info"
	"github.com/deepscan/fakedetect/internal/buildinfo"
	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/detector"
	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/logger"
	"github.com/deepscan/fakedetect/internal/observability"
	"github.com/deepscan/fakedetect/internal/observability/metrics"
	"github.com/deepscan/fakedetect/internal/output"
	"github.com/deepscan/fakedetect/internal/telemetry"
)

// Process exit statuses
const (
	ExitOK      = 0
	ExitFailure = 1
)

// openDetector loads the model; tests replace it with an in-memory model
var openDetector = detector.Load

// exitError carries an exit status through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Context holds the state shared by the root command and its subcommands
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Stdout   io.Writer
	Stderr   io.Writer

	configFile string
	central    *logger.CentralLogger
	log        logger.Logger
}

// Execute runs the CLI with the process arguments and returns the exit status
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx := &Context{
		Build:  buildinfo.Current(uuid.NewString()),
		Stdout: stdout,
		Stderr: stderr,
	}
	defer ctx.shutdown()

	rootCmd := RootCommand(ctx)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			_, _ = fmt.Fprintln(stderr, "Error:", exitErr.err)
		}
		return exitErr.code
	}

	_, _ = fmt.Fprintln(stderr, "Error:", err)
	return ExitFailure
}

// RootCommand creates the root command: fakedetect <image_path>
func RootCommand(ctx *Context) *cobra.Command {
	// flag bindings live in the global viper instance
	viper.Reset()

	rootCmd := &cobra.Command{
		Use:   "fakedetect <image_path>",
		Short: "Classify an image as real or fake",
		Long: `Classify one image with a pre-trained real/fake classifier and print the
verdict as a single JSON line on standard output:

  {"isFake": true, "confidence": 0.82}

Diagnostics, including the raw model output, go to standard error.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return predict(ctx, args)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := setupFlags(rootCmd, ctx); err != nil {
		logger.Global().Module("cli").Error("failed to bind flags", logger.Error(err))
	}

	rootCmd.AddCommand(
		info.Command(ctx.infoDeps()),
		config.Command(ctx.configDeps()),
	)

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, ctx *Context) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.configFile, "config", "", "Path to a fakedetect.yaml config file")
	flags.BoolP("debug", "d", false, "Enable debug logging on standard error")
	flags.StringP("model", "m", conf.DefaultModelPath, "Path to the model file")
	flags.String("backend", conf.BackendAuto, "Model runtime: auto, tflite or onnx")
	flags.IntP("threads", "t", 0, "Inference threads, 0 derives the count from the CPU")
	flags.Bool("xnnpack", false, "Use the XNNPACK delegate (TFLite only)")

	bindings := map[string]string{
		"debug":            "debug",
		"model.path":       "model",
		"model.backend":    "backend",
		"model.threads":    "threads",
		"model.usexnnpack": "xnnpack",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// initialize loads settings and sets up logging and telemetry. It runs
// before every command.
func (ctx *Context) initialize() error {
	settings, err := conf.Load(ctx.configFile)
	if err != nil {
		return &exitError{code: ExitFailure, err: err}
	}
	ctx.Settings = settings

	if err := ctx.setupLogging(); err != nil {
		return &exitError{code: ExitFailure, err: err}
	}

	// Quiet TensorFlow's C++ logging unless the operator asked for it
	if _, ok := os.LookupEnv("TF_CPP_MIN_LOG_LEVEL"); !ok {
		_ = os.Setenv("TF_CPP_MIN_LOG_LEVEL", "3")
	}

	if err := telemetry.InitSentry(settings, ctx.Build); err != nil {
		ctx.log.Warn("telemetry disabled", logger.Error(err))
	}

	ctx.log.Debug("settings loaded",
		logger.String("config_file", conf.ConfigFileUsed()),
		logger.String("model", settings.Model.Path),
		logger.String("backend", settings.Model.ResolvedBackend()),
		logger.String("version", ctx.Build.GetVersion()))
	return nil
}

func (ctx *Context) setupLogging() error {
	level := ctx.Settings.EffectiveLogLevel()
	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     ctx.Settings.Logging.Timezone,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level},
		FileOutput: &logger.FileOutput{
			Enabled: ctx.Settings.Logging.File != "",
			Path:    ctx.Settings.Logging.File,
			Level:   level,
		},
	}

	central, err := logger.NewCentralLogger(cfg, logger.WithConsoleWriter(ctx.Stderr))
	if err != nil {
		return err
	}
	logger.SetGlobal(central)
	ctx.central = central
	ctx.log = central.Module("cli").With(logger.String("run_id", ctx.Build.GetRunID()))
	return nil
}

func (ctx *Context) shutdown() {
	telemetry.Shutdown(telemetry.DefaultFlushTimeout)
	if ctx.central != nil {
		_ = ctx.central.Close()
	}
}

// predict runs the classifier on one image and writes the JSON result line
func predict(ctx *Context, args []string) error {
	if len(args) < 1 {
		if err := output.WriteError(ctx.Stdout, output.NoImagePathMessage); err != nil {
			return &exitError{code: ExitFailure, err: err}
		}
		return &exitError{code: ExitFailure}
	}
	imagePath := args[0]
	settings := ctx.Settings

	out, restore := ctx.guardStdout()
	defer restore()

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	if settings.Metrics.Textfile != "" {
		m, err := observability.NewMetrics()
		if err != nil {
			ctx.log.Warn("metrics disabled", logger.Error(err))
		} else {
			recorder = m.Detector
			defer ctx.writeMetrics(m)
		}
	}

	start := time.Now()
	det, err := openDetector(settings,
		detector.WithDiagWriter(ctx.Stderr),
		detector.WithMetrics(recorder),
		detector.WithLogger(logger.Global().Module("detector")))
	if err != nil {
		ctx.log.Error("failed to load model",
			logger.String("path", settings.Model.Path),
			logger.Error(err))
		return &exitError{code: ExitFailure, err: err}
	}
	defer func() { _ = det.Close() }()

	result := det.Predict(imagePath)

	ctx.log.Debug("prediction finished",
		logger.Bool("ok", result.OK()),
		logger.Duration("elapsed", time.Since(start)))

	if err := output.WriteResult(out, result); err != nil {
		return &exitError{code: ExitFailure, err: err}
	}
	return nil
}

// guardStdout redirects file descriptor 1 to stderr while native code runs
// when the command writes to the process's standard output.
func (ctx *Context) guardStdout() (io.Writer, func()) {
	f, ok := ctx.Stdout.(*os.File)
	if !ok || f != os.Stdout || !ctx.Settings.Output.Guard {
		return ctx.Stdout, func() {}
	}

	guarded, restore, err := output.GuardStdout()
	if err != nil {
		ctx.log.Warn("stdout guard unavailable", logger.Error(err))
		return ctx.Stdout, func() {}
	}
	return guarded, restore
}

func (ctx *Context) writeMetrics(m *observability.Metrics) {
	path := ctx.Settings.Metrics.Textfile
	if err := m.WriteTextfile(path); err != nil {
		ctx.log.Warn("failed to write metrics textfile",
			logger.String("path", path),
			logger.Error(err))
	}
}

func (ctx *Context) infoDeps() info.Deps {
	return info.Deps{
		Settings: func() *conf.Settings { return ctx.Settings },
		Open: func(settings *conf.Settings) (info.Model, error) {
			return openDetector(settings, detector.WithDiagWriter(ctx.Stderr))
		},
		Stdout: ctx.Stdout,
	}
}

func (ctx *Context) configDeps() config.Deps {
	return config.Deps{
		Settings:   func() *conf.Settings { return ctx.Settings },
		ConfigFile: conf.ConfigFileUsed,
		Stdout:     ctx.Stdout,
	}
}
