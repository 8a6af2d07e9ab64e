// internal/harness/runner.go

// Package harness drives verification runs: it walks a scenario against a
// live browser session and turns what happened into a RunResult.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/artifacts"
	"github.com/fenlock-io/pagecheck/internal/config"
	"github.com/fenlock-io/pagecheck/internal/scenario"
)

// Runner executes scenarios. A verification failure is part of the result,
// not an error; Run returns a non-nil error only when the environment broke
// or the run was canceled.
type Runner struct {
	provider schemas.SessionProvider
	writer   *artifacts.Writer
	cfg      *config.Config
	logger   *zap.Logger
}

func NewRunner(provider schemas.SessionProvider, writer *artifacts.Writer, cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		provider: provider,
		writer:   writer,
		cfg:      cfg,
		logger:   logger.Named("harness"),
	}
}

// Run performs one verification run of sc against target. The returned
// result is always usable, even alongside a non-nil error.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario, target string) (result *schemas.RunResult, err error) {
	result = schemas.NewRunResult(uuid.NewString(), sc.Name, target)
	r.logger.Info("Starting verification run.",
		zap.String("run_id", result.RunID),
		zap.String("scenario", sc.Name),
		zap.String("target", target),
	)

	session, acquireErr := r.provider.Acquire(ctx, target)
	if acquireErr != nil {
		envErr := &EnvironmentError{Op: "session acquisition", Err: acquireErr}
		result.RecordFailure(schemas.FailureEnvironment, envErr.Error())
		result.Finish()
		return result, envErr
	}

	// Teardown runs exactly once, whatever happens above it: the session is
	// released, diagnostics are harvested, timing is stamped.
	defer func() {
		if rec := recover(); rec != nil {
			panicErr := &EnvironmentError{Op: "verification run", Err: fmt.Errorf("panic: %v", rec)}
			result.RecordFailure(schemas.FailureEnvironment, panicErr.Error())
			err = panicErr
		}
		if closeErr := session.Close(); closeErr != nil {
			r.logger.Warn("Session close failed.", zap.Error(closeErr))
		}
		result.ConsoleLogs = session.ConsoleLogs()
		result.PageErrors = session.PageErrors()
		result.Finish()
		r.logger.Info("Verification run finished.",
			zap.String("run_id", result.RunID),
			zap.String("outcome", string(result.Outcome)),
			zap.Duration("duration", result.Duration),
		)
	}()

	if navErr := r.navigate(ctx, session, result, target); navErr != nil {
		skipRemaining(result, sc.Steps)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, nil
	}

	for i, step := range sc.Steps {
		if !result.Passed() {
			result.AddStep(schemas.StepReport{Name: step.Label(), Status: schemas.StepSkipped})
			continue
		}

		start := time.Now()
		stepErr := r.runStep(ctx, session, result, step)
		elapsed := time.Since(start)

		if stepErr == nil {
			result.AddStep(schemas.StepReport{Name: step.Label(), Status: schemas.StepPassed, Duration: elapsed})
			continue
		}
		result.AddStep(schemas.StepReport{
			Name:     step.Label(),
			Status:   schemas.StepFailed,
			Duration: elapsed,
			Error:    stepErr.Error(),
		})

		if ctx.Err() != nil {
			result.RecordFailure(schemas.FailureEnvironment, "verification run canceled")
			skipRemaining(result, sc.Steps[i+1:])
			return result, ctx.Err()
		}

		kind := Classify(stepErr)
		result.RecordFailure(kind, stepErr.Error())

		var assertErr *AssertionError
		if errors.As(stepErr, &assertErr) {
			result.Expected = assertErr.Expected
			result.Observed = assertErr.Observed
		}

		if kind == schemas.FailureEnvironment {
			skipRemaining(result, sc.Steps[i+1:])
			return result, stepErr
		}
	}
	return result, nil
}

func (r *Runner) navigate(ctx context.Context, session schemas.BrowserSession, result *schemas.RunResult, target string) error {
	start := time.Now()
	err := session.Navigate(ctx, target)
	elapsed := time.Since(start)

	if err == nil {
		result.AddStep(schemas.StepReport{Name: "navigate", Status: schemas.StepPassed, Duration: elapsed})
		return nil
	}

	navErr := &NavigationError{Target: target, Err: err}
	result.AddStep(schemas.StepReport{
		Name:     "navigate",
		Status:   schemas.StepFailed,
		Duration: elapsed,
		Error:    navErr.Error(),
	})
	if ctx.Err() != nil {
		result.RecordFailure(schemas.FailureEnvironment, "verification run canceled")
	} else {
		result.RecordFailure(schemas.FailureNavigation, navErr.Error())
	}
	return navErr
}

func (r *Runner) runStep(ctx context.Context, session schemas.BrowserSession, result *schemas.RunResult, step scenario.Step) error {
	r.logger.Debug("Running step.", zap.String("step", step.Label()))

	switch step.Kind {
	case scenario.KindClick:
		if err := session.Click(ctx, step.Selector); err != nil {
			return classifyOpErr("element "+step.Selector, err)
		}
		return nil

	case scenario.KindSelect:
		if _, err := session.SelectOption(ctx, step.Selector, step.Value); err != nil {
			return classifyOpErr(fmt.Sprintf("option %q of %s", step.Value, step.Selector), err)
		}
		return nil

	case scenario.KindAssertValue:
		observed, err := session.Value(ctx, step.Selector)
		if err != nil {
			return classifyOpErr("element "+step.Selector, err)
		}
		if observed != step.Value {
			return &AssertionError{
				Subject:  "value of " + step.Selector,
				Expected: step.Value,
				Observed: observed,
				Err:      schemas.ErrConditionNotMet,
			}
		}
		return nil

	case scenario.KindAssertHeading:
		if err := session.WaitHeadingVisible(ctx, step.Name, r.waitTimeout(step)); err != nil {
			return classifyOpErr(fmt.Sprintf("heading %q", step.Name), err)
		}
		return nil

	case scenario.KindWaitTextNot:
		observed, err := session.WaitTextChange(ctx, step.Selector, step.Value, r.waitTimeout(step))
		if err != nil {
			if errors.Is(err, schemas.ErrConditionNotMet) {
				return &AssertionError{
					Subject:  "text of " + step.Selector,
					Expected: fmt.Sprintf("any value other than %q", step.Value),
					Observed: observed,
					Err:      err,
				}
			}
			return classifyOpErr("element "+step.Selector, err)
		}
		return nil

	case scenario.KindSleep:
		if err := session.Sleep(ctx, step.Pause.Std()); err != nil {
			return &EnvironmentError{Op: "pause", Err: err}
		}
		return nil

	case scenario.KindScreenshot:
		shot, err := session.Screenshot(ctx)
		if err != nil {
			return &EnvironmentError{Op: "screenshot capture", Err: err}
		}
		path, err := r.writer.WriteScreenshot(step.File, shot)
		if err != nil {
			return &EnvironmentError{Op: "artifact write", Err: err}
		}
		result.ScreenshotPath = path
		r.logger.Info("Screenshot captured.", zap.String("path", path))
		return nil

	default:
		return &EnvironmentError{Op: "step dispatch", Err: fmt.Errorf("unknown step kind %q", step.Kind)}
	}
}

func (r *Runner) waitTimeout(step scenario.Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout.Std()
	}
	return r.cfg.Harness.WaitTimeout
}

func skipRemaining(result *schemas.RunResult, steps []scenario.Step) {
	for _, step := range steps {
		result.AddStep(schemas.StepReport{Name: step.Label(), Status: schemas.StepSkipped})
	}
}

// classifyOpErr wraps a session operation error for the taxonomy. Anything
// that is not a missing element means the browser itself misbehaved.
func classifyOpErr(subject string, err error) error {
	if errors.Is(err, schemas.ErrNoElement) {
		return &ElementNotFoundError{Subject: subject, Err: err}
	}
	return &EnvironmentError{Op: subject, Err: err}
}
