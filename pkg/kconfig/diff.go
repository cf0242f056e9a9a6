package kconfig

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between two sequences, labeled with the given
// source and target names. Identical sequences produce an empty string.
func Diff(from, to Lines, fromLabel, toLabel string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        from,
		B:        to,
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
}
