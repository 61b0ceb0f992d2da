// Package dispatch resolves (engine, job type) pairs to backend executor
// capabilities and wraps their outcomes into job results. Unknown pairs fail
// closed; executor errors never propagate past the returned JobResult.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/models"
)

// ErrUnknownCapability is returned when no executor is registered for an
// (engine, job type) pair.
var ErrUnknownCapability = errors.New("no executor registered for capability")

// Capability keys the dispatch table.
type Capability struct {
	Engine  string
	JobType string
}

func (c Capability) String() string {
	return c.Engine + "/" + c.JobType
}

// Executor is the backend executor contract. Implementations take a job's
// parameters and return engine-specific output data; a successful executor
// may write execution-context keys for dependent jobs.
type Executor interface {
	Execute(ctx context.Context, manifest *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, manifest *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error)

func (f ExecutorFunc) Execute(ctx context.Context, manifest *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	return f(ctx, manifest, execCtx, logger)
}

// Table is the static capability table. Adding a backend means registering a
// new entry, not editing a branch chain.
type Table struct {
	executors map[Capability]Executor
}

func NewTable() *Table {
	return &Table{executors: make(map[Capability]Executor)}
}

func (t *Table) Register(capability Capability, executor Executor) {
	t.executors[capability] = executor
}

// Lookup returns the executor for a capability, or ErrUnknownCapability.
func (t *Table) Lookup(capability Capability) (Executor, error) {
	executor, ok := t.executors[capability]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, capability)
	}

	return executor, nil
}

// Capabilities returns all registered capabilities.
func (t *Table) Capabilities() []Capability {
	capabilities := make([]Capability, 0, len(t.executors))
	for capability := range t.executors {
		capabilities = append(capabilities, capability)
	}

	return capabilities
}

// Dispatch runs the manifest through its executor and always returns a
// JobResult. Failures fall into three classes: unregistered capability,
// executor error, and deadline expiry, each carried in the result's error
// detail.
func (t *Table) Dispatch(ctx context.Context, manifest *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) *models.JobResult {
	started := time.Now()

	logger = logger.With("job_id", manifest.ID, "engine", manifest.Engine, "job_type", manifest.Type)

	executor, err := t.Lookup(Capability{Engine: manifest.Engine, JobType: manifest.Type})
	if err != nil {
		logger.Error("Dispatch failed", "error", err)

		return failedResult(manifest.ID, started, err)
	}

	output, err := executor.Execute(ctx, manifest, execCtx, logger)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			err = fmt.Errorf("job timed out: %w", err)
		}

		logger.Error("Job execution failed", "error", err)

		return failedResult(manifest.ID, started, err)
	}

	// Engine wrappers report failure in-band through their status field.
	if status, ok := output["status"].(string); ok && status != "success" && status != "completed" {
		detail, _ := output["error"].(string)
		if detail == "" {
			detail = "backend reported status " + status
		}

		logger.Error("Backend reported failure", "status", status, "detail", detail)

		return failedResult(manifest.ID, started, errors.New(detail))
	}

	logger.Info("Job completed", "duration", time.Since(started))

	return &models.JobResult{
		Status:          models.JobStatusCompleted,
		JobID:           manifest.ID,
		Output:          output,
		DurationSeconds: time.Since(started).Seconds(),
		Timestamp:       time.Now().UTC(),
	}
}

func failedResult(jobID string, started time.Time, err error) *models.JobResult {
	return &models.JobResult{
		Status:          models.JobStatusFailed,
		JobID:           jobID,
		Error:           err.Error(),
		DurationSeconds: time.Since(started).Seconds(),
		Timestamp:       time.Now().UTC(),
	}
}
