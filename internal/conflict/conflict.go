// Package conflict merges competing contributions to a single target
// file. Contributions are applied in ascending priority order with the
// strategy each contributor declares, so the final file content is the
// same regardless of the order extensions were discovered.
package conflict

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Strategy names a way to combine a contribution with existing content.
type Strategy string

const (
	StrategyAppend    Strategy = "append"
	StrategyPrepend   Strategy = "prepend"
	StrategyOverwrite Strategy = "overwrite"
	StrategyMergeJSON Strategy = "merge-json"
	StrategyMergeYAML Strategy = "merge-yaml"
	StrategyBackup    Strategy = "backup"
	StrategySkip      Strategy = "skip"
)

// Strategies lists every valid strategy.
var Strategies = []Strategy{
	StrategyAppend, StrategyPrepend, StrategyOverwrite,
	StrategyMergeJSON, StrategyMergeYAML, StrategyBackup, StrategySkip,
}

// DefaultSeparator joins appended and prepended content blocks.
const DefaultSeparator = "\n\n"

// Contribution is one extension's content for a target file.
type Contribution struct {
	Extension string
	Priority  int
	Payload   []byte
	Strategy  Strategy
	Separator string // for append/prepend; DefaultSeparator when empty
}

// ResolutionError records a contribution whose declared strategy could
// not be applied as-is. The resolver falls back and continues; the
// error is reported, not fatal.
type ResolutionError struct {
	Target    string
	Extension string
	Strategy  Strategy
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s for %s (%s): %v", e.Target, e.Extension, e.Strategy, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PromptFunc asks the user to choose a strategy for a contribution
// that declared none. Returning StrategySkip leaves the file alone.
type PromptFunc func(target, ext string) (Strategy, error)

// Options adjust a resolution run.
type Options struct {
	Override Strategy   // replaces every contributor's strategy when set
	NoPrompt bool       // undeclared strategies default to skip
	Prompt   PromptFunc // consulted for undeclared strategies unless NoPrompt
	Now      func() time.Time
}

// Applied records one contribution's effect on the target.
type Applied struct {
	Extension string
	Strategy  Strategy
}

// Outcome summarizes a resolution run for one target.
type Outcome struct {
	Target  string
	Applied []Applied
	Backups []string
	Errors  []*ResolutionError
	Changed bool
}

// Resolve applies the contributions to the target path in ascending
// priority order, ties broken by extension name. The returned error
// covers I/O failures only; strategy fallbacks are reported through
// Outcome.Errors.
func Resolve(target string, contribs []Contribution, opts Options) (*Outcome, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ordered := append([]Contribution(nil), contribs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].Extension < ordered[j].Extension
	})

	current, exists, err := readTarget(target)
	if err != nil {
		return nil, err
	}
	original := append([]byte(nil), current...)

	out := &Outcome{Target: target}
	for _, c := range ordered {
		strategy := c.Strategy
		if opts.Override != "" {
			strategy = opts.Override
		}
		if strategy == "" {
			strategy, err = chooseStrategy(target, c, opts)
			if err != nil {
				return nil, err
			}
		}

		next, backup, rerr := apply(target, strategy, current, exists, c, now)
		if rerr != nil {
			out.Errors = append(out.Errors, rerr)
			// The fallback only took effect when a backup was written;
			// otherwise the contribution changed nothing.
			if backup == "" {
				continue
			}
			strategy = StrategyBackup
		}
		if backup != "" {
			out.Backups = append(out.Backups, backup)
		}
		if strategy != StrategySkip {
			out.Applied = append(out.Applied, Applied{Extension: c.Extension, Strategy: strategy})
		}
		current = next
		exists = exists || strategy != StrategySkip
	}

	if exists && xxhash.Sum64(original) != xxhash.Sum64(current) {
		if err := writeTarget(target, current); err != nil {
			return nil, err
		}
		out.Changed = true
	}
	return out, nil
}

func chooseStrategy(target string, c Contribution, opts Options) (Strategy, error) {
	if opts.NoPrompt || opts.Prompt == nil {
		return StrategySkip, nil
	}
	s, err := opts.Prompt(target, c.Extension)
	if err != nil {
		return "", fmt.Errorf("prompt for %s: %w", target, err)
	}
	if s == "" {
		s = StrategySkip
	}
	return s, nil
}

func readTarget(target string) ([]byte, bool, error) {
	data, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", target, err)
	}
	return data, true, nil
}

func writeTarget(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", target, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
