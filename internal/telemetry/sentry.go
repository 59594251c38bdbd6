// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/deepscan/fakedetect/internal/buildinfo"
	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/cpuspec"
	"github.com/deepscan/fakedetect/internal/errors"
	"github.com/deepscan/fakedetect/internal/logger"
	"github.com/deepscan/fakedetect/internal/privacy"
)

// DefaultFlushTimeout bounds how long the process waits for queued events at exit
const DefaultFlushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// PlatformInfo holds privacy-safe platform information for telemetry
type PlatformInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	GoVersion    string `json:"go_version"`
	AVX2         bool   `json:"avx2"`
	NEON         bool   `json:"neon"`
	MemoryGB     int    `json:"memory_gb"`
}

// collectPlatformInfo gathers privacy-safe platform information for telemetry.
// The CPU brand string is left out.
func collectPlatformInfo() PlatformInfo {
	spec := cpuspec.GetCPUSpec()
	return PlatformInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		AVX2:         spec.AVX2,
		NEON:         spec.NEON,
		MemoryGB:     totalMemoryGB(),
	}
}

// totalMemoryGB returns the installed memory rounded to whole GiB, or 0 when
// it cannot be read.
func totalMemoryGB() int {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	const gib = 1 << 30
	return int((vm.Total + gib/2) / gib)
}

// InitSentry initializes the Sentry SDK and routes built errors to it.
// Nothing is initialized unless the user enabled Sentry.
func InitSentry(settings *conf.Settings, info *buildinfo.Context) error {
	return initSentry(settings, info, nil)
}

func initSentry(settings *conf.Settings, info *buildinfo.Context, transport sentry.Transport) error {
	log := GetLogger()

	if !settings.Sentry.Enabled {
		log.Debug("Sentry telemetry is disabled (opt-in required)")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,
		Debug:      settings.Sentry.Debug,

		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "", // prevents hostname leakage
		Release:          info.Release(),
		BeforeSend:       applyPrivacyFilters,
		Transport:        transport,
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	configureSentryScope(info)

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	log.Info("Sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", info.Release()))
	return nil
}

func configureSentryScope(info *buildinfo.Context) {
	platform := collectPlatformInfo()
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", info.GetRunID())
		scope.SetTag("os", platform.OS)
		scope.SetTag("arch", platform.Architecture)
		scope.SetContext("application", map[string]any{
			"name":       "fakedetect",
			"version":    info.GetVersion(),
			"build_date": info.GetBuildDate(),
		})
		scope.SetContext("platform", map[string]any{
			"os":         platform.OS,
			"arch":       platform.Architecture,
			"num_cpu":    platform.NumCPU,
			"go_version": platform.GoVersion,
			"avx2":       platform.AVX2,
			"neon":       platform.NEON,
			"memory_gb":  platform.MemoryGB,
		})
	})
}

// applyPrivacyFilters strips host identity from an event and scrubs its messages
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	return event
}

// IsSentryEnabled reports whether InitSentry set up a client
func IsSentryEnabled() bool {
	return sentryInitialized.Load()
}

// Flush waits up to timeout for queued events to be sent
func Flush(timeout time.Duration) bool {
	if !sentryInitialized.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// Shutdown flushes pending events and detaches the error reporter
func Shutdown(timeout time.Duration) {
	if !sentryInitialized.Load() {
		return
	}
	if !sentry.Flush(timeout) {
		GetLogger().Warn("timed out flushing telemetry events", logger.Duration("timeout", timeout))
	}
	errors.SetTelemetryReporter(nil)
	sentryInitialized.Store(false)
}
