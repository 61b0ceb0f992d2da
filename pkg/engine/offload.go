package engine

import (
	"context"
	"log/slog"

	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/manifest"
	"github.com/renderstack/maestro/pkg/models"
)

// tryOffload attempts remote execution. It returns true when the workflow
// was handled remotely and the caller should finalize; false means local
// execution must proceed (the attempt is recorded as a failed stage).
func (e *Engine) tryOffload(ctx context.Context, spec *models.TaskSpecification, result *models.WorkflowResult, logger *slog.Logger) bool {
	logger.Info("Task matches offload heuristics, delegating to remote kernel")

	artifacts, err := e.offloader.Offload(ctx, spec.Description, result.WorkflowID)
	if err != nil {
		logger.Warn("Offload failed, falling back to local execution", "error", err)
		result.AddStage("offload", "failed", map[string]any{"error": err.Error()})

		return false
	}

	result.Status = models.WorkflowStatusOffloaded
	result.Output = artifacts
	result.AddStage("offload", "completed", map[string]any{"artifacts": len(artifacts)})

	if path, ok := artifacts["preview_path"].(string); ok && path != "" {
		e.renderOffloadPreview(ctx, spec, path, result, logger)
	}

	return true
}

// renderOffloadPreview runs a local low-cost render of the remotely produced
// artifact so the operator has something to look at. Preview failures are
// recorded but never change the offloaded status.
func (e *Engine) renderOffloadPreview(ctx context.Context, spec *models.TaskSpecification, previewPath string, result *models.WorkflowResult, logger *slog.Logger) {
	previewSpec := &models.TaskSpecification{
		Engine:      manifest.EngineBlender,
		Description: spec.Description + " preview",
		Quality:     "standard",
		Resolution:  "1280x720",
		Assets:      []string{previewPath},
	}

	manifests, err := e.manifests.Generate(previewSpec, result.WorkflowID)
	if err != nil {
		logger.Warn("Preview manifest generation failed", "error", err)
		result.AddStage("preview_render", "failed", map[string]any{"error": err.Error()})

		return
	}

	if _, err := e.prepareEnvironment(previewSpec, result.WorkflowID); err != nil {
		logger.Warn("Preview environment preparation failed", "error", err)
		result.AddStage("preview_render", "failed", map[string]any{"error": err.Error()})

		return
	}

	execCtx := execctx.New()
	execCtx.Set(execctx.RunDirKey, manifest.RunDir(e.cfg.OutputDir, previewSpec.Description, result.WorkflowID))

	out := e.executeSequential(ctx, manifests, result, execCtx, false, logger)
	result.JobCount += len(manifests)

	status := "completed"
	if out.failed > 0 || out.cancelled {
		status = "failed"
	}

	result.AddStage("preview_render", status, map[string]any{
		"jobs_executed": out.executed,
		"jobs_failed":   out.failed,
	})
}
