package kconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolinfest/kata-landlock/pkg/kconfig"
)

func TestDiff(t *testing.T) {
	t.Run("identical sequences produce empty diff", func(t *testing.T) {
		lines := kconfig.Lines{"A=1\n", "B=2\n"}
		diff, err := kconfig.Diff(lines, lines.Clone(), "a", "b")
		require.NoError(t, err)
		assert.Empty(t, diff)
	})

	t.Run("labels appear in diff header", func(t *testing.T) {
		from := kconfig.Lines{"A=1\n"}
		to := kconfig.Lines{"A=2\n"}
		diff, err := kconfig.Diff(from, to, "upstream/config-arm64", "derived/config-arm64")
		require.NoError(t, err)
		assert.Contains(t, diff, "--- upstream/config-arm64")
		assert.Contains(t, diff, "+++ derived/config-arm64")
	})

	t.Run("shows insertions and deletions", func(t *testing.T) {
		from := kconfig.Lines{"A=1\n", "B=2\n"}
		to := kconfig.Lines{"A=1\n", "B=3\n", "C=4\n"}
		diff, err := kconfig.Diff(from, to, "a", "b")
		require.NoError(t, err)
		assert.Contains(t, diff, "-B=2")
		assert.Contains(t, diff, "+B=3")
		assert.Contains(t, diff, "+C=4")
	})

	t.Run("deterministic", func(t *testing.T) {
		from := kconfig.Lines{"A=1\n", "B=2\n", "C=3\n"}
		to := kconfig.Lines{"A=1\n", "C=3\n", "D=4\n"}
		first, err := kconfig.Diff(from, to, "a", "b")
		require.NoError(t, err)
		second, err := kconfig.Diff(from, to, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
