package cli

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/config"
	"github.com/devforge-labs/devforge/internal/manifest"
)

var (
	removeYes       bool
	removeKeepEntry bool
	removeKeepFiles bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed extension",
	Long: `Remove an extension from the manifest and delete the paths its
definition declares. Protected extensions and extensions that active
extensions depend on are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Skip confirmation prompt")
	removeCmd.Flags().BoolVar(&removeKeepEntry, "deactivate", false, "Keep the manifest record, only mark it inactive")
	removeCmd.Flags().BoolVar(&removeKeepFiles, "keep-files", false, "Do not delete the extension's declared paths")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	store := manifest.Open(config.ManifestPath())
	if _, found, err := store.Get(name); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("extension %q is not installed", name)
	}

	cat, err := loadCatalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	ext, inCatalog := cat.Get(name)
	needsConfirm := true
	if inCatalog {
		needsConfirm = ext.Remove.NeedsConfirmation()
	}
	if needsConfirm && !removeYes && !confirm(out, fmt.Sprintf("Remove %s?", name)) {
		fmt.Fprintln(out, "Removal cancelled.")
		return nil
	}

	if removeKeepEntry {
		if err := store.Deactivate(name); err != nil {
			return err
		}
	} else {
		if err := store.Remove(name); err != nil {
			return err
		}
	}

	if !removeKeepFiles && inCatalog && ext.Remove != nil {
		for _, pattern := range ext.Remove.Paths {
			removed, err := removePaths(expandPath(pattern))
			if err != nil {
				fmt.Fprintf(out, "  ⚠ %s: %v\n", pattern, err)
				continue
			}
			for _, path := range removed {
				fmt.Fprintf(out, "  removed %s\n", path)
			}
		}
	}

	fmt.Fprintf(out, "✓ Removed %s.\n", name)
	return nil
}

// removePaths deletes everything matching the glob pattern. A pattern
// without meta characters is treated as a literal path.
func removePaths(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern: %w", err)
	}
	var removed []string
	for _, match := range matches {
		if err := os.RemoveAll(match); err != nil {
			return removed, err
		}
		removed = append(removed, match)
	}
	return removed, nil
}
