// Package reconcile derives the vendored kernel config from upstream and
// keeps the local copy in sync with it.
//
// A run is strictly sequential: fetch the baseline, apply the override rule
// set, verify the post-conditions, report the upstream diff, then compare
// the vendored copy against the derived output. In write mode drift is
// corrected on disk; in check mode it is a fatal condition, which makes the
// check suitable for CI gating.
package reconcile

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bolinfest/kata-landlock/pkg/errors"
	"github.com/bolinfest/kata-landlock/pkg/kconfig"
	"github.com/bolinfest/kata-landlock/pkg/logging"
)

// Reconciler runs the derive-and-compare workflow for one vendored config.
type Reconciler struct {
	// Fetcher obtains the upstream baseline.
	Fetcher Fetcher

	// Rules is the override rule set, including post-condition expectations.
	Rules kconfig.RuleSet

	// VendoredPath is the local config file treated as the source of truth
	// until reconciled.
	VendoredPath string

	// Write persists the derived sequence instead of failing on drift.
	Write bool

	// Out receives diffs and status lines. Defaults to os.Stdout.
	Out io.Writer
}

// Result summarizes a completed reconcile run.
type Result struct {
	// Derived is the sequence produced by applying the rule set.
	Derived kconfig.Lines

	// Changes records how each override landed.
	Changes []kconfig.Change

	// UpstreamDiff is the baseline-vs-derived diff (informational).
	UpstreamDiff string

	// VendoredDiff is the vendored-vs-derived diff (authoritative). Empty
	// when the vendored copy was missing or already in sync.
	VendoredDiff string

	// InSync is true when the vendored copy already matched the derived
	// output and nothing was written.
	InSync bool

	// Wrote is true when the vendored copy was created or updated.
	Wrote bool
}

// Run executes the workflow. Any returned error is fatal: a fetch failure,
// an invariant violation, or (in check mode) a missing or drifted vendored
// copy. A validation failure always precedes any diff output or write.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	log := logging.Ctx(ctx)
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	name := filepath.Base(r.VendoredPath)

	log.Debug().Str("path", r.VendoredPath).Bool("write", r.Write).Msg("Reconciling vendored config")

	baseline, err := r.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("lines", len(baseline)).Msg("Fetched upstream baseline")

	derived, changes := kconfig.Apply(baseline, r.Rules.Overrides)
	for _, c := range changes {
		log.Debug().
			Str("key", c.Override.Key).
			Stringer("action", c.Action).
			Int("index", c.Index).
			Msg("Applied override")
	}

	if err := r.Rules.Verify(derived); err != nil {
		return nil, err
	}

	result := &Result{Derived: derived, Changes: changes}

	result.UpstreamDiff, err = kconfig.Diff(baseline, derived,
		"upstream/"+name, "derived/"+name)
	if err != nil {
		return nil, err
	}
	if result.UpstreamDiff != "" {
		fmt.Fprintln(out, "==> Diff against upstream:")
		fmt.Fprint(out, result.UpstreamDiff)
	} else {
		fmt.Fprintln(out, "Derived configuration matches upstream with no differences.")
	}

	vendored, err := kconfig.ReadFile(r.VendoredPath)
	if err != nil {
		if !os.IsNotExist(unwrapIO(err)) {
			return nil, err
		}
		log.Warn().Str("path", r.VendoredPath).Msg("Vendored config missing")
		if !r.Write {
			return nil, &errors.MissingVendoredError{Path: r.VendoredPath}
		}
		if err := derived.WriteFile(r.VendoredPath); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Wrote derived configuration to %s\n", r.VendoredPath)
		result.Wrote = true
		return result, nil
	}

	if vendored.Equal(derived) {
		fmt.Fprintf(out, "Vendored config matches derived output at %s\n", r.VendoredPath)
		result.InSync = true
		return result, nil
	}

	result.VendoredDiff, err = kconfig.Diff(vendored, derived,
		"repo/"+name, "derived/"+name)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, "==> Vendored config differs from derived output:")
	fmt.Fprint(out, result.VendoredDiff)

	if !r.Write {
		return nil, &errors.DriftError{Path: r.VendoredPath}
	}
	if err := derived.WriteFile(r.VendoredPath); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Updated %s to match derived configuration\n", r.VendoredPath)
	result.Wrote = true
	return result, nil
}

// unwrapIO digs the underlying os error out of an IOError so os.IsNotExist
// can distinguish "missing vendored copy" from real read failures.
func unwrapIO(err error) error {
	var ioErr *errors.IOError
	if stderrors.As(err, &ioErr) {
		return ioErr.Err
	}
	return err
}
