// File: cmd/watch.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/internal/artifacts"
	"github.com/fenlock-io/pagecheck/internal/config"
	"github.com/fenlock-io/pagecheck/internal/harness"
	"github.com/fenlock-io/pagecheck/internal/observability"
	"github.com/fenlock-io/pagecheck/internal/reporting"
	"github.com/fenlock-io/pagecheck/internal/watch"
)

// newWatchCmd creates and configures the `watch` command.
func newWatchCmd(browsers browserProvider) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run a scenario whenever the page changes",
		Long: `Verifies the target immediately, then watches its directory and
re-verifies after every save. Runs until interrupted. Verification
failures keep the watch alive; only environment failures end it.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("watch.all", cmd.Flags().Lookup("all")); err != nil {
				return err
			}
			if err := viper.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			return runWatch(
				ctx, logger, cfg,
				viper.GetString("target"),
				viper.GetString("scenario"),
				viper.GetString("scenario-file"),
				cmd.OutOrStdout(),
				browsers,
			)
		},
	}

	watchCmd.Flags().StringP("target", "t", "", "Path of the page to verify on change (required).")
	watchCmd.Flags().StringP("scenario", "s", "simulation", "Builtin scenario to run.")
	watchCmd.Flags().String("scenario-file", "", "YAML scenario file. Overrides --scenario.")
	watchCmd.Flags().Bool("all", false, "Re-run when any .html, .js or .css file in the directory changes.")
	watchCmd.Flags().Duration("debounce", 400*time.Millisecond, "How long to wait after the last change before re-running.")

	return watchCmd
}

// runWatch contains the core, testable logic behind `watch`.
func runWatch(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	target, scenarioName, scenarioFile string,
	out io.Writer,
	browsers browserProvider,
) error {
	sc, err := resolveScenario(scenarioName, scenarioFile)
	if err != nil {
		return err
	}
	targetURL, pagePath, err := resolveTarget(target)
	if err != nil {
		return err
	}

	provider, err := browsers.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown reported an error.", zap.Error(err))
		}
	}()

	writer := artifacts.NewWriter(cfg.Artifacts.Dir, logger)
	runner := harness.NewRunner(provider, writer, cfg, logger)

	run := func(ctx context.Context) error {
		result, err := runner.Run(ctx, sc, targetURL)
		if err != nil {
			return err
		}
		result.GitRevision = reporting.Revision(pagePath)
		_, err = io.WriteString(out, reporting.ConsoleText(result))
		return err
	}

	w, err := watch.New(pagePath, cfg, run, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
