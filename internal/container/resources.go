package container

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bolinfest/kata-landlock/pkg/constants"
)

// Resources is a CPU and memory allocation.
type Resources struct {
	CPUs        int
	MemoryBytes int64
}

const (
	gib = int64(1024 * 1024 * 1024)
	mib = int64(1024 * 1024)
	kib = int64(1024)
)

// HostLimits returns the host's CPU count and physical memory via sysctl.
func (c *Client) HostLimits(ctx context.Context) (Resources, error) {
	cpus, err := c.sysctlInt(ctx, "hw.ncpu")
	if err != nil {
		return Resources{}, err
	}
	mem, err := c.sysctlInt(ctx, "hw.memsize")
	if err != nil {
		return Resources{}, err
	}
	return Resources{CPUs: int(cpus), MemoryBytes: mem}, nil
}

func (c *Client) sysctlInt(ctx context.Context, key string) (int64, error) {
	out, err := c.runner.Output(ctx, "sysctl", "-n", key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(string(bytes.TrimSpace(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing sysctl %s output: %w", key, err)
	}
	return value, nil
}

// CheckResources validates the builder allocation against the build floors.
// On violation it returns an error whose message lists the shortfalls and
// the `container builder start` invocation that would fix them, clamped to
// what the host can actually provide.
func CheckResources(have, host Resources) error {
	var issues []string

	if have.CPUs < constants.MinBuilderCPUs {
		issues = append(issues, fmt.Sprintf(
			"- Allocated CPUs: %d (minimum required: %d)", have.CPUs, constants.MinBuilderCPUs))
	}
	if have.MemoryBytes < constants.MinBuilderMemoryBytes {
		issues = append(issues, fmt.Sprintf(
			"- Allocated memory: %s (minimum required: %s)",
			FormatGiB(have.MemoryBytes), FormatGiB(constants.MinBuilderMemoryBytes)))
	}
	if len(issues) == 0 {
		return nil
	}

	recommendedCPUs := min(max(constants.MinBuilderCPUs, have.CPUs), host.CPUs)
	recommendedMemory := min(max(int64(constants.MinBuilderMemoryBytes), have.MemoryBytes), host.MemoryBytes)

	var b strings.Builder
	b.WriteString("Container builder resources are below the recommended minimum:\n")
	b.WriteString(strings.Join(issues, "\n"))
	b.WriteString("\n\nRecommended commands:\n")
	b.WriteString("  container builder stop\n")
	fmt.Fprintf(&b, "  container builder start --cpus %d --memory %s\n",
		recommendedCPUs, FormatMemoryFlag(recommendedMemory))
	fmt.Fprintf(&b, "\nHost limits: CPUs=%d, Memory=%s\n", host.CPUs, FormatGiB(host.MemoryBytes))
	b.WriteString("\nRerun with --ignore-resource-check to bypass this validation.")

	return fmt.Errorf("%s", b.String())
}

// FormatGiB renders a byte count as GiB with one decimal place.
func FormatGiB(bytes int64) string {
	return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(gib))
}

// FormatMemoryFlag renders a byte count in the unit form the container CLI
// accepts, using the largest unit that divides it evenly.
func FormatMemoryFlag(bytes int64) string {
	switch {
	case bytes%gib == 0:
		return fmt.Sprintf("%dG", bytes/gib)
	case bytes%mib == 0:
		return fmt.Sprintf("%dM", bytes/mib)
	case bytes%kib == 0:
		return fmt.Sprintf("%dK", bytes/kib)
	default:
		return strconv.FormatInt(bytes, 10)
	}
}
