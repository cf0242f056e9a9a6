// Package constants provides shared constants used throughout the kata-landlock
// codebase. This includes timeouts, file permissions, and the resource floors
// enforced before kernel builds.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests (upstream
	// config fetch, GitHub release API)
	DefaultHTTPTimeout = 30 * time.Second

	// DownloadTimeout is the timeout for release asset downloads
	DownloadTimeout = 5 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// BuildTimeout is the timeout for a full kernel image build
	BuildTimeout = 60 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Builder resource floors. Kernel builds below these limits are painfully slow
// or fail outright inside the build VM.
const (
	// MinBuilderCPUs is the minimum number of CPUs the container builder needs
	MinBuilderCPUs = 8

	// MinBuilderMemoryBytes is the minimum builder memory (8 GiB)
	MinBuilderMemoryBytes = 8 * 1024 * 1024 * 1024
)
