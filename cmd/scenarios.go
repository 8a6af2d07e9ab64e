// File: cmd/scenarios.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fenlock-io/pagecheck/internal/scenario"
)

// newScenariosCmd creates the `scenarios` command.
func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the builtin verification scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.OutOrStdout())
		},
	}
}

func runScenarios(out io.Writer) error {
	for i, sc := range scenario.Builtins() {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s: %s\n", sc.Name, sc.Description)
		for n, step := range sc.Steps {
			fmt.Fprintf(out, "  %d. %s\n", n+1, step.Label())
		}
	}
	return nil
}
