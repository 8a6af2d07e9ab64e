// File: cmd/preflight.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fenlock-io/pagecheck/internal/scenario"
)

// newPreflightCmd creates the `preflight` command.
func newPreflightCmd() *cobra.Command {
	preflightCmd := &cobra.Command{
		Use:   "preflight",
		Short: "Statically check a page against a scenario without a browser",
		Long: `Parses the target page and checks that the ids, select options and
headings the scenario touches actually exist. Faster than a live run,
but only id selectors can be resolved this way.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreflight(
				viper.GetString("target"),
				viper.GetString("scenario"),
				viper.GetString("scenario-file"),
				cmd.OutOrStdout(),
			)
		},
	}

	preflightCmd.Flags().StringP("target", "t", "", "Path or file:// URL of the page to check (required).")
	preflightCmd.Flags().StringP("scenario", "s", "simulation", "Builtin scenario to check against.")
	preflightCmd.Flags().String("scenario-file", "", "YAML scenario file. Overrides --scenario.")

	return preflightCmd
}

// runPreflight contains the core, testable logic behind `preflight`.
// Findings print as diagnostics and exit zero, like verification failures;
// only an unreadable page is an error.
func runPreflight(target, scenarioName, scenarioFile string, out io.Writer) error {
	sc, err := resolveScenario(scenarioName, scenarioFile)
	if err != nil {
		return err
	}
	_, pagePath, err := resolveTarget(target)
	if err != nil {
		return err
	}

	issues, err := scenario.Preflight(sc, pagePath)
	if err != nil {
		return fmt.Errorf("preflight could not read the page: %w", err)
	}

	if len(issues) == 0 {
		fmt.Fprintf(out, "Preflight passed: %s provides everything scenario %q touches.\n", pagePath, sc.Name)
		return nil
	}
	fmt.Fprintf(out, "Preflight found %d issue(s) with %s:\n", len(issues), pagePath)
	for _, issue := range issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	return nil
}
