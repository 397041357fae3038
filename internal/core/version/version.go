// Package version reports build metadata stamped at link time
package version

import "runtime"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Service string `json:"service" example:"nexus-api"`
	Version string `json:"version" example:"v0.3.0"`
	Commit  string `json:"commit" example:"4f1c2e9"`
	Date    string `json:"date" example:"2025-09-02"`
	Go      string `json:"go" example:"go1.25.0"`
}

// Service is the default service name; binaries override it with WithService
const Service = "nexus-api"

// Info returns the build information for the default service.
// Set with -ldflags "-X nexuscalc/internal/core/version.version=v0.3.0 -X nexuscalc/internal/core/version.commit=abcd"
func Info() BuildInfo { return WithService(Service) }

// WithService returns the build information tagged with name
func WithService(name string) BuildInfo {
	return BuildInfo{
		Service: name,
		Version: version,
		Commit:  commit,
		Date:    date,
		Go:      runtime.Version(),
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
