package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/config"
	"github.com/devforge-labs/devforge/internal/conflict"
)

// applyProjectContext merges the project-context contributions of the
// named extensions into their target files, one target at a time.
// Unparseable merges fall back to backups and are reported as warnings;
// only I/O failures abort.
func applyProjectContext(cmd *cobra.Command, cat *catalog.Catalog, names []string) error {
	out := cmd.OutOrStdout()

	byTarget := make(map[string][]conflict.Contribution)
	for _, name := range names {
		ext, ok := cat.Get(name)
		if !ok || ext.Capabilities == nil {
			continue
		}
		pc := ext.Capabilities.ProjectContext
		if pc == nil || !pc.Enabled || pc.MergeFile == nil {
			continue
		}

		source := pc.MergeFile.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(cat.ExtensionDir(name), source)
		}
		payload, err := os.ReadFile(source)
		if err != nil {
			fmt.Fprintf(out, "  ⚠ %s: context file: %v\n", name, err)
			continue
		}

		target := expandPath(pc.MergeFile.Target)
		byTarget[target] = append(byTarget[target], conflict.Contribution{
			Extension: name,
			Priority:  pc.EffectivePriority(),
			Payload:   payload,
			Strategy:  conflict.Strategy(pc.MergeFile.Strategy),
			Separator: pc.MergeFile.Separator,
		})
	}
	if len(byTarget) == 0 {
		return nil
	}

	opts := conflict.Options{
		Override: conflict.Strategy(config.Get(config.KeyConflictStrategy)),
		NoPrompt: config.GetBool(config.KeyConflictNoPrompt),
		Prompt:   promptStrategy(cmd.ErrOrStderr()),
	}

	targets := make([]string, 0, len(byTarget))
	for target := range byTarget {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		outcome, err := conflict.Resolve(target, byTarget[target], opts)
		if err != nil {
			return err
		}
		if outcome.Changed {
			fmt.Fprintf(out, "  ✓ merged %d contributions into %s\n", len(outcome.Applied), target)
		}
		for _, backup := range outcome.Backups {
			fmt.Fprintf(out, "    backed up to %s\n", backup)
		}
		for _, rerr := range outcome.Errors {
			fmt.Fprintf(out, "    ⚠ %v\n", rerr)
		}
	}
	return nil
}

// expandPath resolves a leading ~ to the user's home directory and
// leaves other relative paths anchored to the working directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
