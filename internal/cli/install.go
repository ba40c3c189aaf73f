package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/config"
	"github.com/devforge-labs/devforge/internal/executor"
	"github.com/devforge-labs/devforge/internal/manifest"
	"github.com/devforge-labs/devforge/internal/resolver"
	"github.com/devforge-labs/devforge/internal/validator"
)

var (
	installYes      bool
	installParallel bool
	installFailFast bool
	installTimeout  int
	installProfile  string
)

var installCmd = &cobra.Command{
	Use:   "install <name>...",
	Short: "Install extensions and their dependencies",
	Long: `Install one or more extensions from the catalog. Dependencies are
resolved and installed first, in a deterministic order. Use --profile to
install a named extension set instead of listing names.`,
	Args: cobra.ArbitraryArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	installCmd.Flags().BoolVar(&installParallel, "parallel", false, "Install independent extensions concurrently")
	installCmd.Flags().BoolVar(&installFailFast, "fail-fast", true, "Stop scheduling new installs after the first failure")
	installCmd.Flags().IntVar(&installTimeout, "timeout", 0, "Per-extension timeout in seconds (0 uses the configured default)")
	installCmd.Flags().StringVar(&installProfile, "profile", "", "Install a named profile's extension set")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cat, err := loadCatalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	names := args
	if installProfile != "" {
		profiles, err := catalog.LoadProfiles(config.ProfilesPath())
		if err != nil {
			return fmt.Errorf("loading profiles: %w", err)
		}
		expanded, err := profiles.Expand(installProfile)
		if err != nil {
			return err
		}
		names = append(names, expanded...)
	}
	if len(names) == 0 {
		return fmt.Errorf("nothing to install: name at least one extension or pass --profile")
	}

	policy := installPolicy(cmd)
	store := manifest.Open(config.ManifestPath(), manifest.WithFailFast(policy.FailFast))

	// Entries whose dependencies went missing or inactive are folded into
	// the request so resolving reinstalls what they need.
	snap, err := store.Snapshot()
	if err != nil {
		return err
	}
	if bad := snap.Inconsistent(); len(bad) > 0 {
		fmt.Fprintf(out, "Repairing inconsistent entries: %s\n", strings.Join(bad, ", "))
		names = mergeNames(names, bad)
	}

	order, err := resolver.New(cat).Resolve(names)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Install plan:")
	for _, name := range order {
		ext, _ := cat.Get(name)
		fmt.Fprintf(out, "  %s %s\n", name, ext.Metadata.Version)
	}

	if !installYes && !confirm(out, "Proceed with installation?") {
		fmt.Fprintln(out, "Installation cancelled.")
		return nil
	}

	backend := executor.NewProcessBackend(cmd.OutOrStdout(), cmd.ErrOrStderr())

	results, installErr := executor.New(cat, store, backend, policy).Install(cmd.Context(), order)

	var installed []string
	skipped, failed := 0, 0
	for _, res := range results {
		switch res.Status {
		case executor.ResultInstalled:
			fmt.Fprintf(out, "  ✓ %s\n", res.Name)
			installed = append(installed, res.Name)
		case executor.ResultSkipped:
			fmt.Fprintf(out, "  - %s (%s)\n", res.Name, res.Reason)
			skipped++
		case executor.ResultFailed:
			fmt.Fprintf(out, "  ✗ %s: %v\n", res.Name, res.Err)
			failed++
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "    ⚠ %s\n", w)
		}
	}

	if err := store.SetConfig(effectiveConfig(policy)); err != nil {
		fmt.Fprintf(out, "  ⚠ persist config: %v\n", err)
	}

	mergeErr := applyProjectContext(cmd, cat, installed)
	valErr := validateInstalled(cmd, cat, store, installed)

	fmt.Fprintln(out)
	p := message.NewPrinter(language.English)
	p.Fprintf(out, "Installed %d extensions, skipped %d, failed %d.\n", len(installed), skipped, failed)

	if installErr != nil {
		return installErr
	}
	if valErr != nil {
		return valErr
	}
	return mergeErr
}

// mergeNames appends extras not already in names, keeping order.
func mergeNames(names, extras []string) []string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range extras {
		if !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	return names
}

// effectiveConfig captures the policy this run used, persisted so later
// commands validate against the same settings.
func effectiveConfig(policy executor.Policy) *manifest.Config {
	return &manifest.Config{
		Execution: &manifest.ExecutionConfig{
			Parallel: policy.Parallel,
			FailFast: policy.FailFast,
			Timeout:  int(policy.Timeout / time.Second),
		},
		Validation: &manifest.ValidationConfig{
			SchemaValidation: config.GetBool(config.KeySchemaValidation),
			DNSCheck:         config.GetBool(config.KeyDNSCheck),
			DependencyCheck:  config.GetBool(config.KeyDependencyCheck),
		},
	}
}

// installPolicy builds the execution policy from config, with flags
// overriding when explicitly set.
func installPolicy(cmd *cobra.Command) executor.Policy {
	policy := executor.Policy{
		Parallel: config.GetBool(config.KeyExecutionParallel),
		FailFast: config.GetBool(config.KeyExecutionFailFast),
		Timeout:  time.Duration(config.GetInt(config.KeyExecutionTimeout)) * time.Second,
	}
	if cmd.Flags().Changed("parallel") {
		policy.Parallel = installParallel
	}
	if cmd.Flags().Changed("fail-fast") {
		policy.FailFast = installFailFast
	}
	if cmd.Flags().Changed("timeout") {
		policy.Timeout = time.Duration(installTimeout) * time.Second
	}
	return policy
}

// validateInstalled runs each freshly installed extension's checks.
// Failures mark the manifest entry failed; the install itself is not
// rolled back.
func validateInstalled(cmd *cobra.Command, cat *catalog.Catalog, store *manifest.Store, names []string) error {
	out := cmd.OutOrStdout()
	v := validator.New()

	var firstErr error
	for _, name := range names {
		ext, ok := cat.Get(name)
		if !ok || ext.Validate == nil {
			continue
		}
		_, err := v.Validate(cmd.Context(), ext, cat.ExtensionDir(name))
		if err == nil {
			fmt.Fprintf(out, "  ✓ %s validated\n", name)
			continue
		}
		fmt.Fprintf(out, "  ✗ %s validation: %v\n", name, err)
		if markErr := markFailed(store, name); markErr != nil {
			fmt.Fprintf(out, "    ⚠ %v\n", markErr)
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func markFailed(store *manifest.Store, name string) error {
	entry, ok, err := store.Get(name)
	if err != nil || !ok {
		return err
	}
	entry.Active = false
	entry.Status = manifest.StatusFailed
	return store.Upsert(entry)
}
