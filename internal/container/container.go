// Package container shells out to the Tahoe `container` CLI for the kernel
// image build and for installing binaries into running containers. It has no
// state machine of its own; every operation is one CLI invocation plus error
// mapping.
package container

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bolinfest/kata-landlock/pkg/errors"
	"github.com/bolinfest/kata-landlock/pkg/logging"
)

// DefaultBinary is the Tahoe container CLI executable name.
const DefaultBinary = "container"

// Client wraps the container CLI.
type Client struct {
	bin    string
	runner Runner
}

// Option customizes a Client.
type Option func(*Client)

// WithBinary overrides the CLI executable name.
func WithBinary(bin string) Option {
	return func(c *Client) {
		c.bin = bin
	}
}

// WithRunner substitutes the command runner, used by tests.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// New creates a container CLI client.
func New(opts ...Option) *Client {
	c := &Client{
		bin:    DefaultBinary,
		runner: ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SystemStart ensures the container services are running. Start failures are
// ignored: the services are usually already up, and any real problem
// surfaces on the next command.
func (c *Client) SystemStart(ctx context.Context) {
	if _, err := c.runner.Output(ctx, c.bin, "system", "start"); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("container system start failed; continuing")
	}
}

// statusDoc is the shape of `container system status --json` we care about.
type statusDoc struct {
	Configuration struct {
		Resources struct {
			CPUs          *int   `json:"cpus"`
			MemoryInBytes *int64 `json:"memoryInBytes"`
		} `json:"resources"`
	} `json:"configuration"`
}

// BuilderResources returns the CPU and memory allocation of the container
// builder. It prefers `container system status --json` and falls back to
// `container builder status --json` for older CLI versions.
func (c *Client) BuilderResources(ctx context.Context) (Resources, error) {
	log := logging.Ctx(ctx)
	commands := [][]string{
		{"system", "status", "--json"},
		{"builder", "status", "--json"},
	}

	var lastErr error
	for i, args := range commands {
		out, err := c.runner.Output(ctx, c.bin, args...)
		if err != nil {
			lastErr = err
			continue
		}
		var doc statusDoc
		if err := json.Unmarshal(out, &doc); err != nil {
			lastErr = errors.WrapParse("json", strings.Join(args, " "), err)
			continue
		}
		res := doc.Configuration.Resources
		if res.CPUs == nil || res.MemoryInBytes == nil {
			continue
		}
		if i == 1 {
			log.Info().Msg("Falling back to 'container builder status --json' for resource info")
		}
		return Resources{CPUs: *res.CPUs, MemoryBytes: *res.MemoryInBytes}, nil
	}

	if lastErr != nil {
		return Resources{}, fmt.Errorf("unable to determine builder resources: %w", lastErr)
	}
	return Resources{}, errors.New("unable to determine builder resources: status output carried no resource fields")
}

// BuildOptions configure the kernel image build.
type BuildOptions struct {
	KernelBranch string
	ImageTag     string
	Target       string
}

// Build runs `container build` against the current directory with the
// kernel branch passed as a build argument.
func (c *Client) Build(ctx context.Context, opts BuildOptions) error {
	return c.runner.Run(ctx, c.bin,
		"build",
		"--build-arg", "KERNEL_BRANCH="+opts.KernelBranch,
		"--target", opts.Target,
		"-t", opts.ImageTag,
		".",
	)
}

// Export runs the export image with hostDir bind-mounted at /out so the
// image's entrypoint can copy the built artifacts onto the host. The
// container's stdout is discarded so it does not interleave with the
// artifact listing that follows.
func (c *Client) Export(ctx context.Context, imageTag, hostDir string) error {
	return c.runner.RunQuiet(ctx, c.bin,
		"run", "--rm",
		"-v", hostDir+":/out",
		imageTag,
	)
}

// Exec runs a command inside the container and returns its stdout.
func (c *Client) Exec(ctx context.Context, containerID string, args ...string) ([]byte, error) {
	cliArgs := append([]string{"exec", containerID}, args...)
	return c.runner.Output(ctx, c.bin, cliArgs...)
}

// List prints the available containers, passing output straight through.
func (c *Client) List(ctx context.Context) error {
	return c.runner.Run(ctx, c.bin, "ls")
}

// InstallBinary streams src into destPath inside the container and marks it
// executable.
func (c *Client) InstallBinary(ctx context.Context, containerID, destPath string, src io.Reader) error {
	quoted := shellQuote(destPath)
	return c.runner.RunWithStdin(ctx, src, c.bin,
		"exec", "-i", containerID,
		"sh", "-c", fmt.Sprintf("cat > %s && chmod +x %s", quoted, quoted),
	)
}

// shellQuote single-quotes a string for POSIX sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
