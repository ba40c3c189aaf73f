package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect extension profiles",
	Long:  `Profiles are named extension sets defined in the catalog, installed together via 'install --profile'.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := catalog.LoadProfiles(config.ProfilesPath())
		if err != nil {
			return fmt.Errorf("loading profiles: %w", err)
		}
		names := profiles.Names()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles defined in the catalog.")
			return nil
		}
		for _, name := range names {
			p := profiles.Profiles[name]
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, p.Description)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's extension set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := catalog.LoadProfiles(config.ProfilesPath())
		if err != nil {
			return fmt.Errorf("loading profiles: %w", err)
		}
		names, err := profiles.Expand(args[0])
		if err != nil {
			return err
		}
		p := profiles.Profiles[args[0]]
		if p.Description != "" {
			fmt.Fprintln(cmd.OutOrStdout(), p.Description)
		}
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
		}
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}
