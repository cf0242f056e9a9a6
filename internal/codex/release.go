// Package codex downloads the latest Codex CLI release from GitHub and
// installs the binary into a running container.
package codex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/bolinfest/kata-landlock/internal/transport"
	"github.com/bolinfest/kata-landlock/pkg/constants"
	"github.com/bolinfest/kata-landlock/pkg/errors"
)

// Defaults for the Codex CLI install.
const (
	// Repo is the GitHub repository the release comes from.
	Repo = "openai/codex"

	// DefaultAsset is the musl aarch64 build that runs in the guest.
	DefaultAsset = "codex-aarch64-unknown-linux-musl.tar.gz"

	// DefaultDestPath is where the binary lands inside the container.
	DefaultDestPath = "/usr/local/bin/codex"

	// DefaultAPIBase is the GitHub REST API root.
	DefaultAPIBase = "https://api.github.com"
)

// Release is the subset of the GitHub release payload we consume.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Asset returns the named asset, or an error listing what is available.
func (r *Release) Asset(name string) (*Asset, error) {
	names := make([]string, 0, len(r.Assets))
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i], nil
		}
		names = append(names, r.Assets[i].Name)
	}
	return nil, fmt.Errorf("asset %q not found in release %s (available: %s): %w",
		name, r.TagName, strings.Join(names, ", "), errors.ErrNotFound)
}

// GitHub talks to the GitHub REST API.
type GitHub struct {
	APIBase  string
	client   *transport.Client
	download *transport.Client
}

// NewGitHub creates a client. A GH_TOKEN in the environment is used as a
// bearer token; anonymous access works for public releases but rate-limits
// quickly in CI.
func NewGitHub(apiBase string) *GitHub {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	token := os.Getenv("GH_TOKEN")
	return &GitHub{
		APIBase: apiBase,
		client: transport.New(
			transport.WithAuth(&transport.BearerAuth{}, token),
		),
		download: transport.New(
			transport.WithAuth(&transport.BearerAuth{}, token),
			transport.WithTimeout(constants.DownloadTimeout),
		),
	}
}

// LatestRelease fetches the latest release of repo.
func (g *GitHub) LatestRelease(ctx context.Context, repo string) (*Release, error) {
	url := g.APIBase + "/repos/" + repo + "/releases/latest"
	header := http.Header{"Accept": []string{"application/vnd.github+json"}}
	body, err := g.client.GetBody(ctx, url, header)
	if err != nil {
		return nil, err
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, errors.WrapParse("json", url, err)
	}
	return &release, nil
}

// DownloadAsset fetches the raw bytes of a release asset.
func (g *GitHub) DownloadAsset(ctx context.Context, repo string, assetID int64) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/assets/%d", g.APIBase, repo, assetID)
	header := http.Header{"Accept": []string{"application/octet-stream"}}
	return g.download.GetBody(ctx, url, header)
}
