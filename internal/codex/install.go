package codex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bolinfest/kata-landlock/internal/container"
	"github.com/bolinfest/kata-landlock/pkg/logging"
)

// Installer wires the GitHub client to the container runtime.
type Installer struct {
	GitHub     *GitHub
	Containers *container.Client

	// Repo and Asset default to the Codex CLI release when empty.
	Repo  string
	Asset string

	// Out receives status messages; defaults to stdout.
	Out io.Writer
}

// Install downloads the release asset, extracts the binary, streams it
// into the container at destPath, and confirms the installed binary runs
// by asking it for its version.
func (i *Installer) Install(ctx context.Context, containerID, destPath string) error {
	log := logging.Ctx(ctx)
	repo := i.Repo
	if repo == "" {
		repo = Repo
	}
	assetName := i.Asset
	if assetName == "" {
		assetName = DefaultAsset
	}
	if destPath == "" {
		destPath = DefaultDestPath
	}
	out := i.Out
	if out == nil {
		out = os.Stdout
	}

	release, err := i.GitHub.LatestRelease(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to inspect latest release for %s: %w", repo, err)
	}
	asset, err := release.Asset(assetName)
	if err != nil {
		return err
	}

	log.Info().
		Str("release", release.TagName).
		Str("asset", assetName).
		Msg("Downloading release asset")
	raw, err := i.GitHub.DownloadAsset(ctx, repo, asset.ID)
	if err != nil {
		return fmt.Errorf("failed to download %s from release %s: %w", assetName, release.TagName, err)
	}

	binary, err := ExtractBinary(raw, assetName)
	if err != nil {
		return err
	}
	if len(binary) == 0 {
		return fmt.Errorf("prepared binary from %s is empty", assetName)
	}

	log.Info().
		Str("container", containerID).
		Str("dest", destPath).
		Msg("Copying binary into container")
	if err := i.Containers.InstallBinary(ctx, containerID, destPath, bytes.NewReader(binary)); err != nil {
		return fmt.Errorf("failed to copy codex binary to container %s: %w", containerID, err)
	}

	versionOut, err := i.Containers.Exec(ctx, containerID, destPath, "--version")
	if err != nil {
		return fmt.Errorf("installed binary at %s does not run in container %s: %w", destPath, containerID, err)
	}

	fmt.Fprintf(out, "Installed Codex CLI at %s in container %s\n", destPath, containerID)
	if version := strings.TrimSpace(string(versionOut)); version != "" {
		fmt.Fprintln(out, version)
	}
	return nil
}
