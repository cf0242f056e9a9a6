package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bolinfest/kata-landlock/internal/container"
	"github.com/bolinfest/kata-landlock/pkg/constants"
	"github.com/bolinfest/kata-landlock/pkg/logging"
)

// Build defaults.
const (
	// DefaultKernelBranch is the kernel tag built when none is given.
	DefaultKernelBranch = "v6.14.9"

	// DefaultOutputDir receives the exported kernel artifacts.
	DefaultOutputDir = "kernel-out"

	// buildImageTag names the intermediate builder image.
	buildImageTag = "aarch64-fast-kernel"
)

var (
	buildKernelBranch        string
	buildOutputDir           string
	buildIgnoreResourceCheck bool
)

// buildCmd builds and exports the arm64 kernel image.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and export the arm64 kernel image",
	Long: `Build compiles the Landlock-enabled arm64 kernel inside the Tahoe
container runtime and exports the resulting artifacts to the output
directory via a bind mount.

Before building, the allocated builder resources are checked against the
recommended minimum (8 CPUs, 8 GiB); use --ignore-resource-check to build
anyway on a constrained host.`,
	Example: `  kata-landlock build
  kata-landlock build --kernel-branch v6.14.9 --output-dir kernel-out
  kata-landlock build --ignore-resource-check`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildKernelBranch, "kernel-branch", DefaultKernelBranch,
		"Kernel branch or tag to build")
	buildCmd.Flags().StringVar(&buildOutputDir, "output-dir", DefaultOutputDir,
		"Directory where exported kernel artifacts should be written")
	buildCmd.Flags().BoolVar(&buildIgnoreResourceCheck, "ignore-resource-check", false,
		"Skip validation of container builder CPU and memory limits")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := logging.WithLogger(cmd.Context(), logging.Default())
	log := logging.Ctx(ctx)
	client := container.New()

	client.SystemStart(ctx)

	if !buildIgnoreResourceCheck {
		have, err := client.BuilderResources(ctx)
		if err != nil {
			return fmt.Errorf("failed to inspect container resources: %w", err)
		}
		host, err := client.HostLimits(ctx)
		if err != nil {
			return fmt.Errorf("failed to inspect host limits: %w", err)
		}
		if err := container.CheckResources(have, host); err != nil {
			fmt.Fprintln(os.Stderr, err)
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return err
		}
	}

	outDir, err := filepath.Abs(buildOutputDir)
	if err != nil {
		return err
	}

	log.Info().Str("kernel", buildKernelBranch).Msg("Building kernel image")
	buildCtx, cancelBuild := context.WithTimeout(ctx, constants.BuildTimeout)
	defer cancelBuild()
	if err := client.Build(buildCtx, container.BuildOptions{
		KernelBranch: buildKernelBranch,
		ImageTag:     buildImageTag + ":export",
		Target:       "export",
	}); err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, constants.DirPermissions); err != nil {
		return err
	}

	log.Info().Str("dir", outDir).Msg("Exporting artifacts via bind mount")
	exportCtx, cancelExport := context.WithTimeout(ctx, constants.CommandTimeout)
	defer cancelExport()
	if err := client.Export(exportCtx, buildImageTag+":export", outDir); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "==> Done. Artifacts:")
	return listArtifacts(cmd, outDir)
}

// listArtifacts prints the exported files with their sizes.
func listArtifacts(cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %d bytes\n", entry.Name(), info.Size())
	}
	return nil
}
