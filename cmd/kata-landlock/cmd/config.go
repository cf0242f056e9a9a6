package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bolinfest/kata-landlock/internal/reconcile"
	"github.com/bolinfest/kata-landlock/pkg/kconfig"
	"github.com/bolinfest/kata-landlock/pkg/logging"
)

// DefaultVendoredPath is the vendored kernel config at the repository root.
const DefaultVendoredPath = "config-arm64"

var (
	syncWrite     bool
	syncUpstream  string
	syncPath      string
	syncOverrides string
)

// configCmd groups the vendored-config subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the vendored kernel config",
}

// configSyncCmd derives the config from upstream and reconciles the
// vendored copy.
var configSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Derive the vendored config from upstream and check it for drift",
	Long: `Sync fetches the pinned upstream kernel config, applies the Landlock
overrides, verifies the resulting CONFIG_LSM stack, and compares the result
against the vendored copy.

Without --write the command only reports: it prints the upstream diff, then
the drift diff if the vendored copy disagrees, and exits non-zero on drift or
when the vendored copy is missing. With --write the derived config is
persisted, creating or updating the vendored file.`,
	Example: `  kata-landlock config sync
  kata-landlock config sync --write
  kata-landlock config sync --overrides custom-overrides.yaml
  kata-landlock config sync --upstream-url https://example.com/config-arm64 --write`,
	RunE: runConfigSync,
}

// configShowOverridesCmd prints the effective rule set.
var configShowOverridesCmd = &cobra.Command{
	Use:   "show-overrides",
	Short: "Print the effective override rule set as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rules, err := loadRules()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(rules)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSyncCmd)
	configCmd.AddCommand(configShowOverridesCmd)

	configSyncCmd.Flags().BoolVar(&syncWrite, "write", false,
		"Update the vendored config with the derived configuration instead of just checking")
	configSyncCmd.Flags().StringVar(&syncUpstream, "upstream-url", "",
		"Upstream config URL (default: the pinned containerization revision)")
	configSyncCmd.Flags().StringVar(&syncPath, "path", DefaultVendoredPath,
		"Path of the vendored config file")
	configSyncCmd.Flags().StringVar(&syncOverrides, "overrides", "",
		"YAML override manifest (default: built-in Landlock rule set)")

	configShowOverridesCmd.Flags().StringVar(&syncOverrides, "overrides", "",
		"YAML override manifest (default: built-in Landlock rule set)")
}

func runConfigSync(cmd *cobra.Command, _ []string) error {
	rules, err := loadRules()
	if err != nil {
		return err
	}

	upstream := syncUpstream
	if upstream == "" {
		upstream = viper.GetString("upstream-url")
	}
	path := syncPath
	if !cmd.Flags().Changed("path") {
		if v := viper.GetString("vendored-path"); v != "" {
			path = v
		}
	}

	r := &reconcile.Reconciler{
		Fetcher:      reconcile.NewHTTPFetcher(upstream),
		Rules:        rules,
		VendoredPath: path,
		Write:        syncWrite,
		Out:          cmd.OutOrStdout(),
	}

	ctx := logging.WithLogger(cmd.Context(), logging.Default())
	if _, err := r.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		// The message already carries remediation text; keep cobra from
		// printing usage help on top of it.
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return err
	}
	return nil
}

// loadRules returns the manifest rule set when --overrides is given, the
// built-in Landlock set otherwise.
func loadRules() (kconfig.RuleSet, error) {
	if syncOverrides != "" {
		return kconfig.LoadRuleSet(syncOverrides)
	}
	return kconfig.DefaultRuleSet(), nil
}
