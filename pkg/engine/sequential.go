package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/renderstack/maestro/pkg/dag"
	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/models"
)

// outcome summarizes one execution pass over a job plan.
type outcome struct {
	executed   int
	failed     int
	skipped    int
	cancelled  bool
	firstError string
}

func (o outcome) status(continueOnError bool) models.WorkflowStatus {
	switch {
	case o.cancelled:
		return models.WorkflowStatusCancelled
	case o.failed > 0 && !continueOnError:
		return models.WorkflowStatusFailed
	default:
		return models.WorkflowStatusCompleted
	}
}

func (o *outcome) record(result *models.WorkflowResult, jobResult *models.JobResult) {
	result.JobResults[jobResult.JobID] = jobResult

	switch jobResult.Status {
	case models.JobStatusCompleted:
		o.executed++
	case models.JobStatusFailed:
		o.executed++
		o.failed++

		if o.firstError == "" {
			o.firstError = fmt.Sprintf("job %s failed: %s", jobResult.JobID, jobResult.Error)
		}
	case models.JobStatusSkipped:
		o.skipped++
	}
}

func (e *Engine) executeJobs(ctx context.Context, manifests []*models.JobManifest, mode models.ExecutionMode, result *models.WorkflowResult, execCtx *execctx.Context, logger *slog.Logger) outcome {
	switch mode {
	case models.ModeParallel:
		return e.executeParallel(ctx, manifests, result, execCtx, logger)
	case models.ModeInteractive:
		return e.executeSequential(ctx, manifests, result, execCtx, true, logger)
	default:
		return e.executeSequential(ctx, manifests, result, execCtx, false, logger)
	}
}

// executeSequential runs the plan one job at a time. The plan is walked in
// topological order, so a dependency can only be unmet when an upstream job
// failed or was skipped, in which case the dependent is skipped too. With
// LegacySkip set the raw generation order is used instead, which can skip a
// job merely because its dependency has not run yet.
func (e *Engine) executeSequential(ctx context.Context, manifests []*models.JobManifest, result *models.WorkflowResult, execCtx *execctx.Context, interactive bool, logger *slog.Logger) outcome {
	var out outcome

	ordered := manifests
	if !e.cfg.LegacySkip {
		// Validate already ran, ordering cannot fail here.
		ordered, _ = dag.Order(manifests)
	}

	for i, m := range ordered {
		if ctx.Err() != nil {
			out.cancelled = true

			for _, rest := range ordered[i:] {
				out.record(result, skippedResult(rest.ID, "workflow cancelled"))
			}

			return out
		}

		if !dag.DependenciesCompleted(m, result.JobResults) {
			logger.Warn("Dependencies not satisfied, skipping job", "job_id", m.ID, "depends_on", m.DependsOn)
			out.record(result, skippedResult(m.ID, "dependencies not satisfied"))

			continue
		}

		if interactive {
			proceed, err := e.confirm(ctx, m)
			if err != nil {
				logger.Warn("Confirmation failed, skipping job", "job_id", m.ID, "error", err)
				out.record(result, skippedResult(m.ID, fmt.Sprintf("confirmation failed: %s", err)))

				continue
			}

			if !proceed {
				logger.Info("Job declined", "job_id", m.ID)
				out.record(result, skippedResult(m.ID, "declined by operator"))

				continue
			}
		}

		logger.Info("Executing job", "job_id", m.ID, "type", m.Type, "position", fmt.Sprintf("%d/%d", i+1, len(ordered)))

		jobResult := e.runJob(ctx, m, execCtx, result.WorkflowID, logger)
		out.record(result, jobResult)

		if jobResult.Status == models.JobStatusFailed && !e.cfg.ContinueOnError {
			reason := "aborted after failure"

			// A failure caused by caller cancellation is a cancelled
			// workflow, not a failed one.
			if ctx.Err() != nil {
				out.cancelled = true
				reason = "workflow cancelled"
			}

			logger.Error("Job failed, aborting workflow", "job_id", m.ID, "error", jobResult.Error)

			for _, rest := range ordered[i+1:] {
				out.record(result, skippedResult(rest.ID, reason))
			}

			return out
		}
	}

	return out
}

func (e *Engine) confirm(ctx context.Context, m *models.JobManifest) (bool, error) {
	if e.confirmer == nil {
		return false, fmt.Errorf("interactive mode requires a confirmer")
	}

	return e.confirmer.Confirm(ctx, m)
}
