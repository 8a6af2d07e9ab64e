// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/config"
	"github.com/fenlock-io/pagecheck/internal/observability"
	"github.com/fenlock-io/pagecheck/internal/store"
)

// runStore is the slice of the history store the commands use.
type runStore interface {
	SaveRun(ctx context.Context, result *schemas.RunResult, reportText string) error
	RecentRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	ReportText(ctx context.Context, runID string) (string, error)
}

// storeProvider defines an interface for components that can create a run
// store. The abstraction allows tests to inject a mock store instead of a
// live database connection.
type storeProvider interface {
	// Create returns a store, a cleanup function to release resources, and
	// an error if the creation fails.
	Create(ctx context.Context, cfg *config.Config) (runStore, func(), error)
}

// defaultStoreProvider is the production storeProvider. It connects to
// PostgreSQL with the configured DSN.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (runStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Store.DSN == "" {
		return nil, nil, fmt.Errorf("run store is not configured (set PAGECHECK_STORE_DSN)")
	}

	pool, err := pgxpool.New(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to run store: %w", err)
	}

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize run store: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Run store connection pool closed.")
	}
	return st, cleanup, nil
}

// newHistoryCmd creates and configures the `history` command.
func newHistoryCmd(stores storeProvider) *cobra.Command {
	var limit int
	var show string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored verification runs",
		Long: `Lists runs saved with --save, newest first. With --show, prints the
stored console report of one run instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			return runHistory(ctx, logger, cfg, limit, show, cmd.OutOrStdout(), stores)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list.")
	historyCmd.Flags().StringVar(&show, "show", "", "Run ID whose stored report to print.")

	return historyCmd
}

// runHistory contains the core, testable logic behind `history`.
func runHistory(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	limit int,
	show string,
	out io.Writer,
	stores storeProvider,
) error {
	st, cleanup, err := stores.Create(ctx, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if show != "" {
		text, err := st.ReportText(ctx, show)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	}

	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	summaries, err := st.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	logger.Debug("Listing stored runs.", zap.Int("count", len(summaries)))
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "RUN ID\tSCENARIO\tTARGET\tOUTCOME\tSTARTED\tDURATION")
	for _, s := range summaries {
		outcome := string(s.Outcome)
		if s.FailureKind != "" {
			outcome = fmt.Sprintf("%s (%s)", s.Outcome, s.FailureKind)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.RunID, s.Scenario, s.Target, outcome,
			s.StartedAt.Local().Format(time.RFC3339),
			s.Duration.Round(time.Millisecond))
	}
	return writer.Flush()
}
