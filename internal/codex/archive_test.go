package codex_test

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolinfest/kata-landlock/internal/codex"
)

// tarGz builds an in-memory gzipped tarball from name -> content pairs,
// preserving insertion order.
func tarGz(t *testing.T, entries [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, entry := range entries {
		name, content := entry[0], entry[1]
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestExtractBinary(t *testing.T) {
	t.Run("finds codex member by name", func(t *testing.T) {
		archive := tarGz(t, [][2]string{
			{"README.md", "docs"},
			{"dist/codex", "ELFDATA"},
		})
		binary, err := codex.ExtractBinary(archive, "codex-aarch64-unknown-linux-musl.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, "ELFDATA", string(binary))
	})

	t.Run("matches codex- prefixed member", func(t *testing.T) {
		archive := tarGz(t, [][2]string{
			{"codex-aarch64-unknown-linux-musl", "ELFDATA"},
		})
		binary, err := codex.ExtractBinary(archive, "release.tgz")
		require.NoError(t, err)
		assert.Equal(t, "ELFDATA", string(binary))
	})

	t.Run("falls back to first file", func(t *testing.T) {
		archive := tarGz(t, [][2]string{
			{"bin/tool", "FIRST"},
			{"bin/other", "SECOND"},
		})
		binary, err := codex.ExtractBinary(archive, "release.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, "FIRST", string(binary))
	})

	t.Run("empty archive is an error", func(t *testing.T) {
		archive := tarGz(t, nil)
		_, err := codex.ExtractBinary(archive, "release.tar.gz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not contain any files")
	})

	t.Run("corrupt gzip is an error", func(t *testing.T) {
		_, err := codex.ExtractBinary([]byte("not gzip"), "release.tar.gz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to extract")
	})

	t.Run("zst assets are rejected", func(t *testing.T) {
		_, err := codex.ExtractBinary([]byte("zstdata"), "codex.tar.zst")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "use the .tar.gz asset")
	})

	t.Run("plain binary passes through", func(t *testing.T) {
		binary, err := codex.ExtractBinary([]byte("ELFDATA"), "codex")
		require.NoError(t, err)
		assert.Equal(t, "ELFDATA", string(binary))
	})
}
