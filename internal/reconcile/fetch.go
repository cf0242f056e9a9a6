package reconcile

import (
	"context"

	"github.com/bolinfest/kata-landlock/internal/transport"
	"github.com/bolinfest/kata-landlock/pkg/kconfig"
)

// DefaultUpstreamURL is the pinned upstream config the vendored copy is
// derived from. The commit hash pins the exact revision so runs are
// reproducible until the pin is bumped deliberately.
const DefaultUpstreamURL = "https://raw.githubusercontent.com/apple/containerization/" +
	"51ef9f81fef574bbd815d4f5560157297b0a4067/kernel/config-arm64"

// Fetcher obtains the baseline config sequence from the upstream source.
type Fetcher interface {
	Fetch(ctx context.Context) (kconfig.Lines, error)
}

// HTTPFetcher fetches the baseline over HTTP from a fixed URL.
type HTTPFetcher struct {
	URL    string
	Client *transport.Client
}

// NewHTTPFetcher creates a fetcher for the given URL, defaulting to the
// pinned upstream when url is empty.
func NewHTTPFetcher(url string) *HTTPFetcher {
	if url == "" {
		url = DefaultUpstreamURL
	}
	return &HTTPFetcher{
		URL:    url,
		Client: transport.New(),
	}
}

// Fetch implements the Fetcher interface.
func (f *HTTPFetcher) Fetch(ctx context.Context) (kconfig.Lines, error) {
	body, err := f.Client.GetBody(ctx, f.URL, nil)
	if err != nil {
		return nil, err
	}
	return kconfig.Split(string(body)), nil
}
