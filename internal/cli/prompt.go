package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devforge-labs/devforge/internal/conflict"
)

// confirm asks a yes/no question on stdout and reads the answer from
// stdin. An empty answer counts as yes.
func confirm(out io.Writer, question string) bool {
	fmt.Fprintf(out, "? %s (Y/n) ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

// promptStrategy asks the user to pick a conflict strategy for a
// contribution that declared none.
func promptStrategy(out io.Writer) conflict.PromptFunc {
	return func(target, ext string) (conflict.Strategy, error) {
		fmt.Fprintf(out, "Extension %s wants to modify %s.\n", ext, target)
		for i, s := range conflict.Strategies {
			fmt.Fprintf(out, "  %d) %s\n", i+1, s)
		}
		fmt.Fprint(out, "? Choose a strategy (default skip): ")

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return conflict.StrategySkip, nil
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			return conflict.StrategySkip, nil
		}
		var choice int
		if _, err := fmt.Sscanf(answer, "%d", &choice); err == nil &&
			choice >= 1 && choice <= len(conflict.Strategies) {
			return conflict.Strategies[choice-1], nil
		}
		for _, s := range conflict.Strategies {
			if string(s) == answer {
				return s, nil
			}
		}
		return conflict.StrategySkip, nil
	}
}
