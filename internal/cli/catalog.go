package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/config"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the extension catalog",
}

// loadCatalog loads the catalog honoring the schema-validation toggle.
func loadCatalog() (*catalog.Catalog, error) {
	var opts []catalog.LoadOption
	if !config.GetBool(config.KeySchemaValidation) {
		opts = append(opts, catalog.WithoutSchemaValidation())
	}
	return catalog.Load(config.CatalogDir(), opts...)
}

// catalogIndex loads index.yaml when present; otherwise it scans the
// full catalog and builds the index fresh.
func catalogIndex() (*catalog.Index, error) {
	if idx, err := catalog.ReadIndex(filepath.Join(config.CatalogDir(), "index.yaml")); err == nil {
		return idx, nil
	}
	cat, err := loadCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return catalog.BuildIndex(cat), nil
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available extensions",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := catalogIndex()
		if err != nil {
			return err
		}
		if len(idx.Entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tDEPENDENCIES")
		for _, e := range idx.Entries {
			deps := ""
			for i, d := range e.Dependencies {
				if i > 0 {
					deps += ", "
				}
				deps += d
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Category, deps)
		}
		return w.Flush()
	},
}

var catalogIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Regenerate the catalog index file",
	Long:  `Rebuild index.yaml in the catalog directory from the extension definitions on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		path := filepath.Join(config.CatalogDir(), "index.yaml")
		if err := catalog.WriteIndex(catalog.BuildIndex(cat), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s (%d extensions).\n", path, cat.Len())
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogIndexCmd)
	rootCmd.AddCommand(catalogCmd)
}
