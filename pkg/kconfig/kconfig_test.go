package kconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolinfest/kata-landlock/pkg/errors"
	"github.com/bolinfest/kata-landlock/pkg/kconfig"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want kconfig.Lines
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "terminated lines keep newlines",
			text: "A=1\nB=2\n",
			want: kconfig.Lines{"A=1\n", "B=2\n"},
		},
		{
			name: "unterminated final line",
			text: "A=1\nB=2",
			want: kconfig.Lines{"A=1\n", "B=2"},
		},
		{
			name: "blank lines preserved",
			text: "\n\nA=1\n",
			want: kconfig.Lines{"\n", "\n", "A=1\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kconfig.Split(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestApply(t *testing.T) {
	t.Run("insert after explicit anchor", func(t *testing.T) {
		baseline := kconfig.Lines{"A=1\n", "B=2\n"}
		derived, changes := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "C", Value: "3", InsertAfter: "B"},
		})

		assert.Equal(t, kconfig.Lines{"A=1\n", "B=2\n", "C=3\n"}, derived)
		require.Len(t, changes, 1)
		assert.Equal(t, kconfig.Inserted, changes[0].Action)
		assert.Equal(t, 2, changes[0].Index)
	})

	t.Run("disabled form is replaced in place", func(t *testing.T) {
		baseline := kconfig.Lines{"# D is not set\n"}
		derived, changes := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "D", Value: "y"},
		})

		assert.Equal(t, kconfig.Lines{"D=y\n"}, derived)
		require.Len(t, changes, 1)
		assert.Equal(t, kconfig.Replaced, changes[0].Action)
		assert.Equal(t, 0, changes[0].Index)
	})

	t.Run("apply is idempotent", func(t *testing.T) {
		baseline := kconfig.Lines{"X=old\n"}
		overrides := []kconfig.Override{{Key: "X", Value: "new"}}

		once, changes := kconfig.Apply(baseline, overrides)
		assert.Equal(t, kconfig.Lines{"X=new\n"}, once)
		assert.Equal(t, kconfig.Replaced, changes[0].Action)

		twice, changes := kconfig.Apply(once, overrides)
		assert.Equal(t, once, twice)
		assert.Equal(t, kconfig.Replaced, changes[0].Action)
	})

	t.Run("baseline is never mutated", func(t *testing.T) {
		baseline := kconfig.Lines{"A=1\n", "# B is not set\n"}
		snapshot := baseline.Clone()

		derived, _ := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "B", Value: "y"},
			{Key: "C", Value: "m", InsertAfter: "A"},
		})

		assert.Equal(t, snapshot, baseline)
		assert.NotEqual(t, baseline, derived)
	})

	t.Run("present key is never duplicated", func(t *testing.T) {
		baseline := kconfig.Lines{"A=1\n", "B=old\n", "C=3\n"}
		derived, _ := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "B", Value: "new", InsertAfter: "C"},
		})

		count := 0
		for _, line := range derived {
			if line == "B=new\n" || line == "B=old\n" {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Len(t, derived, len(baseline))
	})

	t.Run("missing anchor appends at end", func(t *testing.T) {
		baseline := kconfig.Lines{"A=1\n"}
		derived, changes := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "Z", Value: "9", InsertAfter: "NO_SUCH_KEY"},
		})

		assert.Len(t, derived, len(baseline)+1)
		assert.Equal(t, "Z=9\n", derived[len(derived)-1])
		assert.Equal(t, kconfig.Appended, changes[0].Action)
	})

	t.Run("later override anchors on earlier insertion", func(t *testing.T) {
		baseline := kconfig.Lines{"CONFIG_OTHER=y\n"}
		derived, changes := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "CONFIG_SECURITY", Value: "y"},
			{Key: "CONFIG_SECURITY_LANDLOCK", Value: "y", InsertAfter: "CONFIG_SECURITY"},
		})

		assert.Equal(t, kconfig.Lines{
			"CONFIG_OTHER=y\n",
			"CONFIG_SECURITY=y\n",
			"CONFIG_SECURITY_LANDLOCK=y\n",
		}, derived)
		assert.Equal(t, kconfig.Appended, changes[0].Action)
		assert.Equal(t, kconfig.Inserted, changes[1].Action)
		assert.Equal(t, changes[0].Index+1, changes[1].Index)
	})

	t.Run("insert into empty baseline", func(t *testing.T) {
		derived, changes := kconfig.Apply(nil, []kconfig.Override{
			{Key: "A", Value: "1"},
		})
		assert.Equal(t, kconfig.Lines{"A=1\n"}, derived)
		assert.Equal(t, kconfig.Appended, changes[0].Action)
	})

	t.Run("only first duplicate is rewritten", func(t *testing.T) {
		baseline := kconfig.Lines{"K=1\n", "K=2\n"}
		derived, _ := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "K", Value: "3"},
		})
		assert.Equal(t, kconfig.Lines{"K=3\n", "K=2\n"}, derived)
	})

	t.Run("anchor prefix matches unrelated longer key", func(t *testing.T) {
		// Known sharp edge: the anchor is a bare prefix match, so
		// CONFIG_NET anchors on CONFIG_NETFILTER when it comes first.
		baseline := kconfig.Lines{"CONFIG_NETFILTER=y\n", "CONFIG_NET=y\n"}
		derived, _ := kconfig.Apply(baseline, []kconfig.Override{
			{Key: "CONFIG_NEW", Value: "y", InsertAfter: "CONFIG_NET"},
		})
		assert.Equal(t, kconfig.Lines{
			"CONFIG_NETFILTER=y\n",
			"CONFIG_NEW=y\n",
			"CONFIG_NET=y\n",
		}, derived)
	})
}

func TestExpectValue(t *testing.T) {
	tests := []struct {
		name    string
		lines   kconfig.Lines
		key     string
		want    string
		wantErr bool
	}{
		{
			name:  "quoted value matches",
			lines: kconfig.Lines{`CONFIG_LSM="landlock,yama"` + "\n"},
			key:   "CONFIG_LSM",
			want:  "landlock,yama",
		},
		{
			name:  "unquoted value matches",
			lines: kconfig.Lines{"CONFIG_SECURITY=y\n"},
			key:   "CONFIG_SECURITY",
			want:  "y",
		},
		{
			name:  "unterminated final line",
			lines: kconfig.Lines{"CONFIG_SECURITY=y"},
			key:   "CONFIG_SECURITY",
			want:  "y",
		},
		{
			name:    "wrong value",
			lines:   kconfig.Lines{`CONFIG_LSM="yama"` + "\n"},
			key:     "CONFIG_LSM",
			want:    "landlock,yama",
			wantErr: true,
		},
		{
			name:    "missing key",
			lines:   kconfig.Lines{"CONFIG_SECURITY=y\n"},
			key:     "CONFIG_LSM",
			want:    "landlock",
			wantErr: true,
		},
		{
			name:    "disabled form does not satisfy",
			lines:   kconfig.Lines{"# CONFIG_LSM is not set\n"},
			key:     "CONFIG_LSM",
			want:    "landlock",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := kconfig.ExpectValue(tt.lines, tt.key, tt.want)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvariant(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("violation reports the offending line", func(t *testing.T) {
		err := kconfig.ExpectValue(kconfig.Lines{`CONFIG_LSM="yama"` + "\n"}, "CONFIG_LSM", "landlock")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `CONFIG_LSM="yama"`)
	})
}

func TestLinesFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config-arm64")

	lines := kconfig.Lines{"CONFIG_A=1\n", "# CONFIG_B is not set\n"}
	require.NoError(t, lines.WriteFile(path))

	got, err := kconfig.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
	assert.True(t, lines.Equal(got))
}

func TestReadFileMissing(t *testing.T) {
	_, err := kconfig.ReadFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	var ioErr *errors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Operation)
	assert.True(t, os.IsNotExist(ioErr.Err))
}
