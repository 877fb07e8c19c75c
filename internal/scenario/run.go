package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/logutil"
	"github.com/kuitang/ghflow/internal/obs"
)

const failurePreviewChars = 500

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Passed reports whether the step succeeded.
func (r StepResult) Passed() bool { return r.Err == nil }

// Report summarizes a run. Steps after the first failure are absent.
type Report struct {
	RunID    string
	Driver   string
	Started  time.Time
	Duration time.Duration
	Results  []StepResult
}

// Passed reports whether every step that ran succeeded.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the failing step, if any.
func (r *Report) Failed() (StepResult, bool) {
	for _, res := range r.Results {
		if !res.Passed() {
			return res, true
		}
	}
	return StepResult{}, false
}

// Run executes steps in order and stops at the first failure, which is
// returned wrapped with the step name. The report is never nil.
func Run(ctx context.Context, drv driver.Driver, steps []Step) (*Report, error) {
	ctx = obs.WithDriver(ctx, drv.Name())
	report := &Report{
		RunID:   obs.RunIDFromContext(ctx),
		Driver:  drv.Name(),
		Started: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.Started) }()

	for _, step := range steps {
		stepCtx := obs.WithStep(ctx, step.Name)
		log := obs.From(stepCtx)
		log.Debug("step_start")

		start := time.Now()
		err := step.Run(stepCtx, drv)
		res := StepResult{Name: step.Name, Duration: time.Since(start), Err: err}
		report.Results = append(report.Results, res)

		if err != nil {
			log.Error("step_failed",
				"code", errs.CodeOf(err),
				"error", err.Error(),
				"dur_ms", res.Duration.Milliseconds(),
			)
			logPageState(stepCtx, drv)
			return report, fmt.Errorf("step %s: %w", step.Name, err)
		}
		log.Info("step_passed", "dur_ms", res.Duration.Milliseconds())
	}
	return report, nil
}

// logPageState dumps where the browser was when a step failed.
func logPageState(ctx context.Context, drv driver.Driver) {
	log := obs.From(ctx)
	url, err := drv.URL(ctx)
	if err != nil {
		log.Debug("page_state_unavailable", "error", err.Error())
		return
	}
	content, _ := drv.Content(ctx)
	log.Info("page_state",
		"url", url,
		"content_preview", logutil.TruncateForLog(content, failurePreviewChars),
	)
}
