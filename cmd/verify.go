// File: cmd/verify.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/artifacts"
	"github.com/fenlock-io/pagecheck/internal/browser"
	"github.com/fenlock-io/pagecheck/internal/config"
	"github.com/fenlock-io/pagecheck/internal/harness"
	"github.com/fenlock-io/pagecheck/internal/observability"
	"github.com/fenlock-io/pagecheck/internal/reporting"
	"github.com/fenlock-io/pagecheck/internal/scenario"
)

// browserProvider abstracts how a verification gets its browser sessions,
// so tests can substitute a fake for the Chrome-backed manager.
type browserProvider interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.SessionProvider, error)
}

type defaultBrowserProvider struct{}

func (defaultBrowserProvider) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.SessionProvider, error) {
	return browser.NewManager(ctx, cfg, logger)
}

// verifyOptions carries the flag values RunE resolves for the core logic.
type verifyOptions struct {
	Target       string
	Scenario     string
	ScenarioFile string
	Strict       bool
}

// newVerifyCmd creates and configures the `verify` command.
func newVerifyCmd(browsers browserProvider, stores storeProvider) *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a verification scenario against a page",
		Long: `Loads the target page in headless Chrome and executes the scenario's
steps in order. The console report always prints; verification failures
exit zero because the diagnostics are the product. Use --strict to make
a failed verification exit non-zero for CI gates.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags onto their viper keys so they override the config
			// file and environment with the right precedence.
			if err := viper.BindPFlag("artifacts.dir", cmd.Flags().Lookup("artifacts-dir")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.format", cmd.Flags().Lookup("report")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.path", cmd.Flags().Lookup("report-path")); err != nil {
				return err
			}
			if err := viper.BindPFlag("store.enabled", cmd.Flags().Lookup("save")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-unmarshal now that the flags are bound, so overrides apply.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			opts := verifyOptions{
				Target:       viper.GetString("target"),
				Scenario:     viper.GetString("scenario"),
				ScenarioFile: viper.GetString("scenario-file"),
				Strict:       viper.GetBool("strict"),
			}
			return runVerify(ctx, logger, cfg, opts, cmd.OutOrStdout(), browsers, stores)
		},
	}

	verifyCmd.Flags().StringP("target", "t", "", "Path or file:// URL of the page to verify (required).")
	verifyCmd.Flags().StringP("scenario", "s", "simulation", "Builtin scenario to run.")
	verifyCmd.Flags().String("scenario-file", "", "YAML scenario file. Overrides --scenario.")
	verifyCmd.Flags().String("artifacts-dir", "", "Directory for screenshots and other run evidence.")
	verifyCmd.Flags().String("report", "", "Report format: text, json or junit.")
	verifyCmd.Flags().String("report-path", "", "Report file path. JSON and JUnit reports replace stdout output when unset.")
	verifyCmd.Flags().Bool("strict", false, "Exit non-zero when the verification fails.")
	verifyCmd.Flags().Bool("save", false, "Persist the run to the PostgreSQL history store.")

	return verifyCmd
}

// runVerify contains the core, testable logic behind `verify`.
func runVerify(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	opts verifyOptions,
	out io.Writer,
	browsers browserProvider,
	stores storeProvider,
) error {
	sc, err := resolveScenario(opts.Scenario, opts.ScenarioFile)
	if err != nil {
		return err
	}
	targetURL, pagePath, err := resolveTarget(opts.Target)
	if err != nil {
		return err
	}

	logger.Info("Verifying page.",
		zap.String("target", targetURL),
		zap.String("scenario", sc.Name))

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

	result, runErr := runner.Run(ctx, sc, targetURL)
	result.GitRevision = reporting.Revision(pagePath)

	// The report renders whatever happened, environment failures included.
	text := reporting.ConsoleText(result)
	if err := emitReport(result, text, cfg, out, logger); err != nil {
		return err
	}

	if cfg.Store.Enabled {
		if err := persistRun(ctx, cfg, result, text, logger, stores); err != nil {
			return err
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Verification aborted.", zap.String("run_id", result.RunID))
			return runErr
		}
		return fmt.Errorf("verification did not complete: %w", runErr)
	}
	if !result.Passed() && opts.Strict {
		return fmt.Errorf("verification failed: %s", result.FailureDetail)
	}
	return nil
}

// resolveScenario picks the plan to run: an explicit YAML file when given,
// a builtin by name otherwise.
func resolveScenario(name, file string) (*scenario.Scenario, error) {
	if file != "" {
		sc, err := scenario.Load(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario file: %w", err)
		}
		return sc, nil
	}
	sc, ok := scenario.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(scenario.Names(), ", "))
	}
	return sc, nil
}

// resolveTarget turns a local path or file:// URL into the URL the browser
// navigates to, plus the on-disk path behind it.
func resolveTarget(raw string) (targetURL, pagePath string, err error) {
	if raw == "" {
		return "", "", errors.New("a target page is required (--target)")
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid target URL: %w", err)
		}
		if u.Scheme != "file" {
			return "", "", fmt.Errorf("unsupported target scheme %q: pagecheck verifies local pages", u.Scheme)
		}
		if u.Path == "" {
			return "", "", fmt.Errorf("file target %q has no path", raw)
		}
		return u.String(), u.Path, nil
	}

	expanded, err := homedir.Expand(raw)
	if err != nil {
		return "", "", fmt.Errorf("cannot resolve target path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", "", fmt.Errorf("cannot resolve target path: %w", err)
	}
	u := &url.URL{Scheme: "file", Path: abs}
	return u.String(), abs, nil
}

// emitReport prints the console text and, when configured, writes the
// machine readable report. A json or junit report with no path takes the
// console text's place on stdout so the output stays parseable.
func emitReport(result *schemas.RunResult, text string, cfg *config.Config, out io.Writer, logger *zap.Logger) error {
	if cfg.Report.Format == "text" || cfg.Report.Path != "" {
		if _, err := io.WriteString(out, text); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if cfg.Report.Format == "text" {
		return nil
	}

	reporter, err := reporting.New(cfg.Report.Format, cfg.Report.Path, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	if err := reporter.Write(result); err != nil {
		return fmt.Errorf("failed to write %s report: %w", cfg.Report.Format, err)
	}
	if cfg.Report.Path != "" {
		logger.Info("Report written.",
			zap.String("format", cfg.Report.Format),
			zap.String("path", cfg.Report.Path))
	}
	return nil
}

// persistRun saves the finished run through the injected store provider.
func persistRun(
	ctx context.Context,
	cfg *config.Config,
	result *schemas.RunResult,
	reportText string,
	logger *zap.Logger,
	stores storeProvider,
) error {
	st, cleanup, err := stores.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := st.SaveRun(ctx, result, reportText); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("Run saved.", zap.String("run_id", result.RunID))
	return nil
}
