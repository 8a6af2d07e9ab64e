// Package store persists verification run history in PostgreSQL. It is
// optional; the harness works fully without it.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Diagnostic streams stored in run_console_logs.
const (
	streamConsole   = "console"
	streamPageError = "pageerror"
)

// schema is applied statement by statement; pgx rejects multi-statement
// strings over the extended protocol.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		failure_kind TEXT NOT NULL DEFAULT '',
		failure_detail TEXT NOT NULL DEFAULT '',
		screenshot_path TEXT NOT NULL DEFAULT '',
		git_revision TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL,
		report BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS run_console_logs (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		stream TEXT NOT NULL,
		seq INT NOT NULL,
		level TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		emitted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, stream, seq)
	)`,
}

// RunSummary is one row of the history listing.
type RunSummary struct {
	RunID       string
	Scenario    string
	Target      string
	Outcome     schemas.Outcome
	FailureKind schemas.FailureKind
	StartedAt   time.Time
	Duration    time.Duration
}

// Store provides the PostgreSQL run history.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New verifies the connection and bootstraps the schema.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveRun stores a completed run: the run row with the brotli compressed
// text report, plus one row per captured diagnostic entry.
func (s *Store) SaveRun(ctx context.Context, result *schemas.RunResult, reportText string) error {
	report, err := compressReport(reportText)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit returns ErrTxClosed; that is the normal path.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	insertRun := `
        INSERT INTO runs (run_id, scenario, target, outcome, failure_kind, failure_detail,
            screenshot_path, git_revision, started_at, finished_at, duration_ms, report)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
    `
	_, err = tx.Exec(ctx, insertRun,
		result.RunID, result.Scenario, result.Target,
		string(result.Outcome), string(result.FailureKind), result.FailureDetail,
		result.ScreenshotPath, result.GitRevision,
		result.StartedAt.UTC(), result.FinishedAt.UTC(),
		result.Duration.Milliseconds(), report,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := s.persistDiagnostics(ctx, tx, result); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Run saved.", zap.String("run_id", result.RunID))
	return nil
}

func (s *Store) persistDiagnostics(ctx context.Context, tx pgx.Tx, result *schemas.RunResult) error {
	rows := make([][]interface{}, 0, len(result.ConsoleLogs)+len(result.PageErrors))
	for _, entry := range result.ConsoleLogs {
		rows = append(rows, []interface{}{
			result.RunID, streamConsole, entry.Seq, entry.Level, entry.Text, entry.Timestamp.UTC(),
		})
	}
	for _, entry := range result.PageErrors {
		rows = append(rows, []interface{}{
			result.RunID, streamPageError, entry.Seq, "error", entry.Text, entry.Timestamp.UTC(),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"run_console_logs"},
		[]string{"run_id", "stream", "seq", "level", "message", "emitted_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy diagnostics: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied diagnostics count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// RecentRuns lists stored runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
        SELECT run_id, scenario, target, outcome, failure_kind, started_at, duration_ms
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			summary    RunSummary
			outcome    string
			kind       string
			durationMS int64
		)
		err := rows.Scan(&summary.RunID, &summary.Scenario, &summary.Target,
			&outcome, &kind, &summary.StartedAt, &durationMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		summary.Outcome = schemas.Outcome(outcome)
		summary.FailureKind = schemas.FailureKind(kind)
		summary.Duration = time.Duration(durationMS) * time.Millisecond
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return summaries, nil
}

// ErrRunNotFound is returned when a run id has no stored report.
var ErrRunNotFound = errors.New("run not found")

// ReportText loads and decompresses the stored text report of a run.
func (s *Store) ReportText(ctx context.Context, runID string) (string, error) {
	var blob []byte
	row := s.pool.QueryRow(ctx, `SELECT report FROM runs WHERE run_id = $1;`, runID)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return "", fmt.Errorf("failed to load report: %w", err)
	}

	text, err := io.ReadAll(brotli.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return "", fmt.Errorf("failed to decompress report: %w", err)
	}
	return string(text), nil
}

func compressReport(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to compress report: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress report: %w", err)
	}
	return buf.Bytes(), nil
}
