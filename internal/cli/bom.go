package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/bom"
	"github.com/devforge-labs/devforge/internal/branding"
	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/config"
	"github.com/devforge-labs/devforge/internal/manifest"
)

var (
	bomFormat string
	bomOutput string
)

var bomCmd = &cobra.Command{
	Use:   "bom [name]",
	Short: "Generate a bill of materials",
	Long: `Generate a bill of materials for one extension, or an aggregate
across every active extension when no name is given. Dynamic versions are
resolved by probing the installed tools.

Formats: yaml, json, csv, cyclonedx, spdx.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBOM,
}

var bomRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rewrite the stored BOM files",
	Long:  `Regenerate per-extension and aggregate BOM files under ~/.devforge/bom/.`,
	Args:  cobra.NoArgs,
	RunE:  runBOMRegenerate,
}

func init() {
	bomCmd.Flags().StringVarP(&bomFormat, "format", "f", string(bom.FormatYAML), "Output format (yaml, json, csv, cyclonedx, spdx)")
	bomCmd.Flags().StringVarP(&bomOutput, "output", "o", "", "Write output to a file instead of stdout")
	bomCmd.AddCommand(bomRegenerateCmd)
	rootCmd.AddCommand(bomCmd)
}

func runBOM(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	var names []string
	if len(args) == 1 {
		if _, ok := cat.Get(args[0]); !ok {
			return fmt.Errorf("extension %q not found in catalog", args[0])
		}
		names = args
	} else {
		entries, err := manifest.Open(config.ManifestPath()).ListActive()
		if err != nil {
			return err
		}
		for _, e := range entries {
			names = append(names, e.Name)
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No extensions installed yet.")
			return nil
		}
	}

	report := buildReport(cmd, cat, names)

	var w io.Writer = cmd.OutOrStdout()
	if bomOutput != "" {
		f, err := os.Create(bomOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", bomOutput, err)
		}
		defer f.Close()
		w = f
	}
	if err := bom.Write(w, bom.Format(bomFormat), report); err != nil {
		return err
	}
	if bomOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote BOM to %s\n", bomOutput)
	}
	return nil
}

func runBOMRegenerate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cat, err := loadCatalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	entries, err := manifest.Open(config.ManifestPath()).ListActive()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No extensions installed yet.")
		return nil
	}

	dir := config.BOMDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating BOM dir: %w", err)
	}

	var boms []bom.ExtensionBOM
	for _, entry := range entries {
		ext, ok := cat.Get(entry.Name)
		if !ok {
			fmt.Fprintf(out, "  ⚠ %s: not in catalog, skipped\n", entry.Name)
			continue
		}
		b, warnings := bom.Derive(ext, cat.ExtensionDir(entry.Name))
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		boms = append(boms, b)

		path := filepath.Join(dir, entry.Name+".bom.yaml")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := bom.WriteExtension(f, &b); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "  ✓ %s\n", path)
	}

	report := bom.Aggregate(branding.CLIName(), boms)
	bom.ResolveDynamic(cmd.Context(), report, nil)

	path := filepath.Join(dir, "bom.yaml")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := bom.Write(f, bom.FormatYAML, report); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Wrote aggregate BOM to %s\n", path)
	return nil
}

// buildReport derives, aggregates, and resolves BOMs for the named
// extensions, reporting derivation warnings on stderr.
func buildReport(cmd *cobra.Command, cat *catalog.Catalog, names []string) *bom.Report {
	var boms []bom.ExtensionBOM
	for _, name := range names {
		ext, ok := cat.Get(name)
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: not in catalog, skipped\n", name)
			continue
		}
		b, warnings := bom.Derive(ext, cat.ExtensionDir(name))
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		boms = append(boms, b)
	}
	report := bom.Aggregate(branding.CLIName(), boms)
	bom.ResolveDynamic(cmd.Context(), report, nil)
	return report
}
