package container

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/bolinfest/kata-landlock/pkg/errors"
)

// Runner executes external commands. It exists so tests can substitute a
// fake for the real CLI.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Run runs the command with stdout and stderr inherited from the
	// process, for long-running commands whose output the operator should
	// see live (builds).
	Run(ctx context.Context, name string, args ...string) error

	// RunQuiet runs the command with stdout discarded and stderr
	// inherited, for commands whose stdout is noise (the export
	// container's entrypoint).
	RunQuiet(ctx context.Context, name string, args ...string) error

	// RunWithStdin runs the command with the given reader as stdin.
	RunWithStdin(ctx context.Context, stdin io.Reader, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output implements the Runner interface.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, processError(name, args, stderr.String(), err)
	}
	return out, nil
}

// Run implements the Runner interface.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return processError(name, args, "", err)
	}
	return nil
}

// RunQuiet implements the Runner interface. Leaving Stdout nil connects it
// to /dev/null.
func (ExecRunner) RunQuiet(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return processError(name, args, "", err)
	}
	return nil
}

// RunWithStdin implements the Runner interface.
func (ExecRunner) RunWithStdin(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return processError(name, args, stderr.String(), err)
	}
	return nil
}

func processError(name string, args []string, output string, err error) error {
	command := name
	if len(args) > 0 {
		command += " " + strings.Join(args, " ")
	}
	pe := errors.NewProcessError("exec", command, strings.TrimSpace(output), err)
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		pe.ExitCode = exitErr.ExitCode()
	}
	return pe
}
