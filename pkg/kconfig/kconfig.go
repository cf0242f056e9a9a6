// Package kconfig manipulates kernel build configuration files as ordered
// sequences of opaque text lines. It applies declarative key overrides with
// replace-or-insert semantics, verifies expected values, and renders unified
// diffs between config versions.
//
// Lines are never parsed into structured key/value pairs; every match is a
// plain prefix test against the kconfig dialect (`KEY=value` for active
// settings, `# KEY is not set` for disabled ones).
package kconfig

import (
	"os"
	"strings"

	"github.com/bolinfest/kata-landlock/pkg/constants"
	"github.com/bolinfest/kata-landlock/pkg/errors"
)

// Lines is an ordered sequence of configuration lines. Each line keeps its
// trailing newline. Order is significant: insertion anchors resolve to the
// first prefix match, and duplicate keys are allowed (only the first match
// is ever rewritten).
type Lines []string

// Split splits text into Lines, preserving line terminators.
func Split(text string) Lines {
	var lines Lines
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

// ReadFile reads a config file into Lines.
func ReadFile(path string) (Lines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Split(string(data)), nil
}

// WriteFile persists the sequence to path.
func (l Lines) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(l.String()), constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// String joins the sequence back into file content.
func (l Lines) String() string {
	var b strings.Builder
	for _, line := range l {
		b.WriteString(line)
	}
	return b.String()
}

// Clone returns an independent copy of the sequence.
func (l Lines) Clone() Lines {
	out := make(Lines, len(l))
	copy(out, l)
	return out
}

// Equal reports whether two sequences are element-for-element identical.
func (l Lines) Equal(other Lines) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Override rewrites one configuration key to a fixed value. If the key is
// absent from the sequence (neither active nor disabled), the new line is
// inserted after the first line starting with InsertAfter, or after the
// first occurrence of Key itself when InsertAfter is empty, or appended at
// the end when no anchor matches.
type Override struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	InsertAfter string `yaml:"insert_after,omitempty"`
}

// Line renders the desired config line for this override.
func (o Override) Line() string {
	return o.Key + "=" + o.Value + "\n"
}

// Action describes how a single override landed in the sequence.
type Action int

// Override outcomes.
const (
	// Replaced means an existing line for the key (active or disabled form)
	// was rewritten in place.
	Replaced Action = iota
	// Inserted means the line was placed immediately after an anchor line.
	Inserted
	// Appended means no anchor matched and the line went to the end.
	Appended
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Replaced:
		return "replaced"
	case Inserted:
		return "inserted"
	case Appended:
		return "appended"
	default:
		return "unknown"
	}
}

// Change records the outcome of applying one override.
type Change struct {
	Override Override
	Action   Action
	// Index is the position of the desired line in the resulting sequence.
	Index int
}

// Apply applies overrides to baseline in order and returns the derived
// sequence together with one Change per override. The baseline is never
// mutated; callers diff it against the result afterward.
//
// Each override re-scans the current working sequence, not the baseline, so
// a later override may anchor on a line materialized by an earlier one.
func Apply(baseline Lines, overrides []Override) (Lines, []Change) {
	lines := baseline.Clone()
	changes := make([]Change, 0, len(overrides))

	for _, o := range overrides {
		desired := o.Line()

		if i := indexOfKey(lines, o.Key); i >= 0 {
			lines[i] = desired
			changes = append(changes, Change{Override: o, Action: Replaced, Index: i})
			continue
		}

		anchor := o.InsertAfter
		if anchor == "" {
			anchor = o.Key
		}
		if i := indexOfPrefix(lines, anchor); i >= 0 {
			lines = insertAt(lines, i+1, desired)
			changes = append(changes, Change{Override: o, Action: Inserted, Index: i + 1})
			continue
		}

		lines = append(lines, desired)
		changes = append(changes, Change{Override: o, Action: Appended, Index: len(lines) - 1})
	}

	return lines, changes
}

// ExpectValue verifies that key is present with the expected value. The
// value is everything after `=` with trailing whitespace and surrounding
// double quotes stripped. A missing key and an unexpected value are both
// invariant violations.
func ExpectValue(lines Lines, key, want string) error {
	prefix := key + "="
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		got := strings.Trim(strings.TrimRight(line[len(prefix):], " \t\r\n"), `"`)
		if got != want {
			return errors.NewInvariantError(key, want, strings.TrimSpace(line))
		}
		return nil
	}
	return errors.NewInvariantError(key, want, "")
}

// indexOfKey returns the index of the first line that sets or disables key.
func indexOfKey(lines Lines, key string) int {
	active := key + "="
	disabled := "# " + key + " is not set"
	for i, line := range lines {
		if strings.HasPrefix(line, active) || strings.HasPrefix(line, disabled) {
			return i
		}
	}
	return -1
}

// indexOfPrefix returns the index of the first line starting with prefix.
// Note this is a bare prefix match: an anchor that is itself a prefix of an
// unrelated key (CONFIG_NET vs CONFIG_NETFILTER) matches the earlier of the
// two. Callers pick anchors accordingly.
func indexOfPrefix(lines Lines, prefix string) int {
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return i
		}
	}
	return -1
}

func insertAt(lines Lines, i int, line string) Lines {
	lines = append(lines, "")
	copy(lines[i+1:], lines[i:])
	lines[i] = line
	return lines
}
