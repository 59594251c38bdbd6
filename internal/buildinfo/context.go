// Package buildinfo contains build-time metadata kept out of user configuration
package buildinfo

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// Set with -ldflags "-X github.com/deepscan/fakedetect/internal/buildinfo.version=v1.2.3"
var (
	version   string
	buildDate string
)

// BuildInfo provides access to build-time metadata
type BuildInfo interface {
	// GetVersion returns the build version string
	GetVersion() string
	// GetBuildDate returns the build date string
	GetBuildDate() string
	// GetRunID returns the identifier of this invocation
	GetRunID() string
}

// Context contains build-time metadata and the identifier of the current run
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// RunID identifies one invocation in logs and telemetry
	RunID string
}

// NewContext creates a Context from explicit values
func NewContext(version, buildDate, runID string) *Context {
	return &Context{Version: version, BuildDate: buildDate, RunID: runID}
}

// Current returns the Context of the running binary
func Current(runID string) *Context {
	return NewContext(version, buildDate, runID)
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetRunID implements BuildInfo.GetRunID
func (c *Context) GetRunID() string {
	if c == nil || c.RunID == "" {
		return UnknownValue
	}
	return c.RunID
}

// Release returns the telemetry release name, e.g. fakedetect@v1.2.3
func (c *Context) Release() string {
	return "fakedetect@" + c.GetVersion()
}
