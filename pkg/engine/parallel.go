package engine

import (
	"context"
	"log/slog"

	"github.com/renderstack/maestro/pkg/dag"
	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/models"
)

// executeParallel runs the plan as a dependency-aware scheduler. Every job
// whose dependencies have completed is eligible; at most MaxParallelJobs run
// concurrently. A failure stops new scheduling (unless ContinueOnError) but
// in-flight jobs are always drained before returning. Jobs never scheduled
// are reported as skipped.
func (e *Engine) executeParallel(ctx context.Context, manifests []*models.JobManifest, result *models.WorkflowResult, execCtx *execctx.Context, logger *slog.Logger) outcome {
	var out outcome

	doneCh := make(chan *models.JobResult)
	running := make(map[string]bool)
	aborted := false

	cancelCh := ctx.Done()

	for {
		if !aborted {
			for _, m := range dag.Ready(manifests, result.JobResults) {
				if running[m.ID] || len(running) >= e.cfg.MaxParallelJobs {
					continue
				}

				running[m.ID] = true
				logger.Info("Scheduling job", "job_id", m.ID, "type", m.Type, "running", len(running))

				go func(m *models.JobManifest) {
					doneCh <- e.runJob(ctx, m, execCtx, result.WorkflowID, logger)
				}(m)
			}
		}

		if len(running) == 0 {
			break
		}

		select {
		case jobResult := <-doneCh:
			delete(running, jobResult.JobID)
			out.record(result, jobResult)

			if jobResult.Status == models.JobStatusFailed && !e.cfg.ContinueOnError {
				logger.Error("Job failed, draining in-flight jobs", "job_id", jobResult.JobID, "error", jobResult.Error)

				aborted = true
			}
		case <-cancelCh:
			logger.Warn("Cancellation requested, draining in-flight jobs")

			aborted = true
			out.cancelled = true
			// The channel stays closed; nil it out so the drain loop
			// only waits on job completions from here on.
			cancelCh = nil
		}
	}

	if !out.cancelled && ctx.Err() != nil {
		out.cancelled = true
	}

	for _, m := range manifests {
		if _, ok := result.JobResults[m.ID]; ok {
			continue
		}

		reason := "dependencies not satisfied"
		if aborted {
			reason = "aborted after failure"
		}

		if out.cancelled {
			reason = "workflow cancelled"
		}

		out.record(result, skippedResult(m.ID, reason))
	}

	return out
}
