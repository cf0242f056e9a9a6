package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bolinfest/kata-landlock/internal/codex"
	"github.com/bolinfest/kata-landlock/internal/container"
	"github.com/bolinfest/kata-landlock/pkg/logging"
)

var (
	codexAssetName      string
	codexDestPath       string
	codexListContainers bool
)

// codexCmd groups Codex CLI subcommands.
var codexCmd = &cobra.Command{
	Use:   "codex",
	Short: "Manage the Codex CLI inside containers",
}

// codexInstallCmd downloads the latest Codex CLI release and copies it into
// a running container.
var codexInstallCmd = &cobra.Command{
	Use:   "install [container-id]",
	Short: "Download the latest Codex CLI release and copy it into a running container",
	Long: `Install resolves the latest openai/codex release, downloads the
aarch64 musl asset, extracts the binary, and streams it into the given
container at /usr/local/bin/codex.

Anonymous GitHub API access works but rate-limits quickly; set GH_TOKEN to
authenticate.`,
	Example: `  kata-landlock codex install dev-box
  kata-landlock codex install dev-box --asset-name codex-x86_64-unknown-linux-musl.tar.gz
  kata-landlock codex install --list-containers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCodexInstall,
}

func init() {
	rootCmd.AddCommand(codexCmd)
	codexCmd.AddCommand(codexInstallCmd)

	codexInstallCmd.Flags().StringVar(&codexAssetName, "asset-name", codex.DefaultAsset,
		"Release asset name to download from the latest codex release")
	codexInstallCmd.Flags().StringVar(&codexDestPath, "dest-path", codex.DefaultDestPath,
		"Destination path inside the container for the Codex binary")
	codexInstallCmd.Flags().BoolVar(&codexListContainers, "list-containers", false,
		"List available containers (via 'container ls')")
}

func runCodexInstall(cmd *cobra.Command, args []string) error {
	ctx := logging.WithLogger(cmd.Context(), logging.Default())
	containers := container.New()

	if codexListContainers {
		fmt.Fprintln(os.Stderr, "Available containers:")
		if err := containers.List(ctx); err != nil {
			return err
		}
		if len(args) == 0 {
			return nil
		}
	}

	if len(args) == 0 {
		// Help the operator pick a target before failing.
		fmt.Fprintln(os.Stderr, "Available containers:")
		_ = containers.List(ctx)
		return fmt.Errorf("container-id is required")
	}

	installer := &codex.Installer{
		GitHub:     codex.NewGitHub(""),
		Containers: containers,
		Asset:      codexAssetName,
		Out:        cmd.OutOrStdout(),
	}
	if err := installer.Install(ctx, args[0], codexDestPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return err
	}
	return nil
}
