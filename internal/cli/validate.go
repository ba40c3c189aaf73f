package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/config"
	"github.com/devforge-labs/devforge/internal/manifest"
	"github.com/devforge-labs/devforge/internal/validator"
)

var validateAll bool

var validateCmd = &cobra.Command{
	Use:   "validate [name]",
	Short: "Validate installed extensions",
	Long: `Run an extension's declared validation checks against the installed
tools. A failing extension keeps its files but is marked failed in the
manifest. Use --all to validate every active extension.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "Validate every active extension")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if validateAll == (len(args) == 1) {
		return fmt.Errorf("name exactly one extension or pass --all")
	}

	cat, err := loadCatalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	store := manifest.Open(config.ManifestPath())

	var names []string
	if validateAll {
		entries, err := store.ListActive()
		if err != nil {
			return err
		}
		for _, e := range entries {
			names = append(names, e.Name)
		}
		if len(names) == 0 {
			fmt.Fprintln(out, "No extensions installed yet.")
			return nil
		}
	} else {
		names = args
	}

	snap, err := store.Snapshot()
	if err != nil {
		return err
	}
	vcfg := validationConfig(snap)

	v := validator.New()
	var firstErr error
	for _, name := range names {
		ext, ok := cat.Get(name)
		if !ok {
			return fmt.Errorf("extension %q not found in catalog", name)
		}
		results, err := v.Validate(cmd.Context(), ext, cat.ExtensionDir(name))
		if vcfg.DNSCheck {
			results = append(results, v.Hosts(cmd.Context(), ext)...)
		}
		if vcfg.DependencyCheck {
			results = append(results, dependencyChecks(snap, name)...)
		}
		if err == nil {
			err = extraFailures(name, results)
		}
		for _, r := range results {
			mark := "✓"
			if !r.OK {
				mark = "✗"
			}
			fmt.Fprintf(out, "  %s %s: %s\n", mark, r.Name, r.Detail)
		}
		if err == nil {
			fmt.Fprintf(out, "✓ %s is valid.\n", name)
			continue
		}
		fmt.Fprintf(out, "✗ %s: %v\n", name, err)
		if markErr := markFailed(store, name); markErr != nil {
			fmt.Fprintf(out, "  ⚠ %v\n", markErr)
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// validationConfig prefers the policy persisted in the manifest; a
// manifest without one falls back to the live configuration.
func validationConfig(m *manifest.Manifest) manifest.ValidationConfig {
	if m.Config != nil && m.Config.Validation != nil {
		return *m.Config.Validation
	}
	return manifest.ValidationConfig{
		SchemaValidation: config.GetBool(config.KeySchemaValidation),
		DNSCheck:         config.GetBool(config.KeyDNSCheck),
		DependencyCheck:  config.GetBool(config.KeyDependencyCheck),
	}
}

// dependencyChecks reports manifest dependencies of name that are not
// installed and active.
func dependencyChecks(m *manifest.Manifest, name string) []validator.CheckResult {
	var out []validator.CheckResult
	for _, dep := range m.MissingDependencies(name) {
		out = append(out, validator.CheckResult{Name: "dependency " + dep, Detail: "not installed and active"})
	}
	return out
}

// extraFailures folds failing results into a FailedError.
func extraFailures(name string, results []validator.CheckResult) error {
	var failures []string
	for _, r := range results {
		if !r.OK {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &validator.FailedError{Name: name, Failures: failures}
}
