package reconcile_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolinfest/kata-landlock/internal/reconcile"
	"github.com/bolinfest/kata-landlock/pkg/errors"
	"github.com/bolinfest/kata-landlock/pkg/kconfig"
)

type stubFetcher struct {
	lines kconfig.Lines
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context) (kconfig.Lines, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.lines.Clone(), nil
}

var testRules = kconfig.RuleSet{
	Overrides: []kconfig.Override{
		{Key: "CONFIG_SECURITY", Value: "y"},
		{Key: "CONFIG_SECURITY_LANDLOCK", Value: "y", InsertAfter: "CONFIG_SECURITY"},
	},
	Expect: []kconfig.Expectation{
		{Key: "CONFIG_SECURITY_LANDLOCK", Value: "y"},
	},
}

func newReconciler(t *testing.T, baseline kconfig.Lines, write bool) (*reconcile.Reconciler, *bytes.Buffer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config-arm64")
	out := &bytes.Buffer{}
	r := &reconcile.Reconciler{
		Fetcher:      &stubFetcher{lines: baseline},
		Rules:        testRules,
		VendoredPath: path,
		Write:        write,
		Out:          out,
	}
	return r, out, path
}

func TestRunInitializesVendoredCopyInWriteMode(t *testing.T) {
	baseline := kconfig.Lines{"# CONFIG_SECURITY is not set\n", "CONFIG_OTHER=y\n"}
	r, out, path := newReconciler(t, baseline, true)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Wrote)
	assert.False(t, result.InSync)

	written, err := kconfig.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, kconfig.Lines{
		"CONFIG_SECURITY=y\n",
		"CONFIG_SECURITY_LANDLOCK=y\n",
		"CONFIG_OTHER=y\n",
	}, written)

	assert.Contains(t, out.String(), "==> Diff against upstream:")
	assert.Contains(t, out.String(), "Wrote derived configuration to "+path)
}

func TestRunMissingVendoredCopyInCheckMode(t *testing.T) {
	baseline := kconfig.Lines{"CONFIG_SECURITY=y\n"}
	r, _, path := newReconciler(t, baseline, false)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsVendoredMissing(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "check mode must not create the file")
}

func TestRunAlreadyInSync(t *testing.T) {
	baseline := kconfig.Lines{"CONFIG_SECURITY=y\n", "CONFIG_OTHER=m\n"}
	derived, _ := kconfig.Apply(baseline, testRules.Overrides)

	r, out, path := newReconciler(t, baseline, false)
	require.NoError(t, derived.WriteFile(path))

	before, err := os.Stat(path)
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.InSync)
	assert.False(t, result.Wrote)
	assert.Empty(t, result.VendoredDiff)
	assert.Contains(t, out.String(), "Vendored config matches derived output at "+path)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "no write may occur when in sync")
}

func TestRunDriftInCheckMode(t *testing.T) {
	baseline := kconfig.Lines{"CONFIG_SECURITY=y\n"}
	r, out, path := newReconciler(t, baseline, false)

	stale := kconfig.Lines{"CONFIG_SECURITY=n\n"}
	require.NoError(t, stale.WriteFile(path))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDrift(err))
	assert.Contains(t, err.Error(), "--write")

	// Diff is printed before the run fails.
	assert.Contains(t, out.String(), "==> Vendored config differs from derived output:")
	assert.Contains(t, out.String(), "-CONFIG_SECURITY=n")
	assert.Contains(t, out.String(), "+CONFIG_SECURITY=y")

	// The stale copy is left untouched.
	got, readErr := kconfig.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, stale, got)
}

func TestRunDriftInWriteMode(t *testing.T) {
	baseline := kconfig.Lines{"CONFIG_SECURITY=y\n"}
	r, out, path := newReconciler(t, baseline, true)

	stale := kconfig.Lines{"CONFIG_SECURITY=n\n"}
	require.NoError(t, stale.WriteFile(path))

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Wrote)
	assert.NotEmpty(t, result.VendoredDiff)
	assert.Contains(t, out.String(), "Updated "+path+" to match derived configuration")

	got, err := kconfig.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, result.Derived, got)
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config-arm64")
	r := &reconcile.Reconciler{
		Fetcher:      &stubFetcher{err: errors.NewFetchError("https://example.com", 503, nil)},
		Rules:        testRules,
		VendoredPath: path,
		Out:          &bytes.Buffer{},
	}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFetch(err))
}

func TestRunInvariantViolationBlocksEverything(t *testing.T) {
	baseline := kconfig.Lines{"CONFIG_OTHER=y\n"}
	rules := kconfig.RuleSet{
		Overrides: []kconfig.Override{{Key: "CONFIG_SECURITY", Value: "y"}},
		Expect:    []kconfig.Expectation{{Key: "CONFIG_LSM", Value: "landlock"}},
	}

	path := filepath.Join(t.TempDir(), "config-arm64")
	out := &bytes.Buffer{}
	r := &reconcile.Reconciler{
		Fetcher:      &stubFetcher{lines: baseline},
		Rules:        rules,
		VendoredPath: path,
		Write:        true,
		Out:          out,
	}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))

	// No diff was reported and nothing was written.
	assert.Empty(t, out.String())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunReportsNoUpstreamDifferences(t *testing.T) {
	// Overrides that restate what upstream already has produce no diff.
	baseline := kconfig.Lines{"CONFIG_SECURITY=y\n", "CONFIG_SECURITY_LANDLOCK=y\n"}
	r, out, path := newReconciler(t, baseline, false)
	require.NoError(t, baseline.WriteFile(path))

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.UpstreamDiff)
	assert.True(t, result.InSync)
	assert.Contains(t, out.String(), "Derived configuration matches upstream with no differences.")
}

func TestHTTPFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("CONFIG_A=y\n# CONFIG_B is not set\n"))
	}))
	defer srv.Close()

	f := reconcile.NewHTTPFetcher(srv.URL)
	lines, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, kconfig.Lines{"CONFIG_A=y\n", "# CONFIG_B is not set\n"}, lines)
}

func TestHTTPFetcherDefaults(t *testing.T) {
	f := reconcile.NewHTTPFetcher("")
	assert.Equal(t, reconcile.DefaultUpstreamURL, f.URL)
	assert.NotNil(t, f.Client)

	f = reconcile.NewHTTPFetcher("https://example.com/config")
	assert.Equal(t, "https://example.com/config", f.URL)
}
