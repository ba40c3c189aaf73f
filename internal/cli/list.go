package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/config"
	"github.com/devforge-labs/devforge/internal/manifest"
)

var (
	listCategory string
	listJSON     bool
	listAll      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed extensions",
	Long:  `List extensions recorded in the manifest. Active entries only by default.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include inactive and failed entries")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	store := manifest.Open(config.ManifestPath())

	var entries []manifest.Entry
	if listAll {
		m, err := store.Snapshot()
		if err != nil {
			return err
		}
		entries = m.Extensions
	} else {
		var err error
		entries, err = store.ListActive()
		if err != nil {
			return err
		}
	}

	if listCategory != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if string(e.Category) == listCategory {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No extensions installed yet.")
		return nil
	}

	if listJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling entries: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tSTATUS")
	for _, e := range entries {
		status := string(e.Status)
		if e.Protected {
			status += " (protected)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Category, status)
	}
	return w.Flush()
}
