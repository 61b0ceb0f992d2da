// Package engine drives workflow execution: it allocates workflow ids,
// prepares the run environment, builds and validates the job plan, decides on
// remote offload, executes jobs under the chosen mode, and persists and
// announces the outcome. ExecuteWorkflow always hands the caller a finalized
// WorkflowResult; pre-flight failures come back as a failed result (pending
// on a dry run) with its error field set, never as a half-formed record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/renderstack/maestro/pkg/dag"
	"github.com/renderstack/maestro/pkg/dispatch"
	"github.com/renderstack/maestro/pkg/eventbus"
	"github.com/renderstack/maestro/pkg/events"
	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/manifest"
	"github.com/renderstack/maestro/pkg/models"
	"github.com/renderstack/maestro/pkg/offload"
	"github.com/renderstack/maestro/pkg/otelhelper"
	"github.com/renderstack/maestro/pkg/report"
)

// ErrEnvironmentPreparation marks fatal pre-flight failures: run directories
// that cannot be created or backends that cannot be located.
var ErrEnvironmentPreparation = errors.New("environment preparation failed")

const (
	defaultMaxParallelJobs = 2
	defaultJobTimeout      = time.Hour
)

// Confirmer is the synchronous yes/no gate of interactive mode. Declining a
// job skips it without counting it as failed.
type Confirmer interface {
	Confirm(ctx context.Context, m *models.JobManifest) (bool, error)
}

// Preflighter is implemented by executors that can verify their backend is
// locatable before any job runs.
type Preflighter interface {
	Preflight() error
}

// Callback receives the finalized workflow result. Callback panics and
// errors are logged, never propagated: a misbehaving subscriber must not
// fail the workflow.
type Callback func(result *models.WorkflowResult)

// Config carries the tunables of one engine instance.
type Config struct {
	OutputDir       string
	TempDir         string
	MaxParallelJobs int
	JobTimeout      time.Duration
	ContinueOnError bool

	// LegacySkip reproduces the historical sequential behavior: manifests
	// run in generation order and a job whose dependency has not completed
	// is skipped rather than deferred. Kept for compatibility testing only.
	LegacySkip bool
}

func (c Config) withDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}

	if c.TempDir == "" {
		c.TempDir = ".temp"
	}

	if c.MaxParallelJobs <= 0 {
		c.MaxParallelJobs = defaultMaxParallelJobs
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	return c
}

// Engine executes workflows. All collaborators are injected at construction;
// the engine owns no ambient state beyond its execution history.
type Engine struct {
	cfg       Config
	manifests *manifest.Registry
	table     *dispatch.Table
	offloader *offload.Client
	history   report.History
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	confirmer Confirmer
	logger    *slog.Logger

	mu           sync.Mutex
	onCompletion []Callback
	onFailure    []Callback
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithOffload enables the remote-offload decision.
func WithOffload(client *offload.Client) Option {
	return func(e *Engine) { e.offloader = client }
}

// WithHistory replaces the default in-memory ring.
func WithHistory(history report.History) Option {
	return func(e *Engine) { e.history = history }
}

// WithEventPublisher publishes lifecycle events to an event bus. Publish
// failures are logged and never fail the workflow.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithTracer records workflow and job spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithConfirmer installs the interactive-mode gate.
func WithConfirmer(confirmer Confirmer) Option {
	return func(e *Engine) { e.confirmer = confirmer }
}

func New(cfg Config, manifests *manifest.Registry, table *dispatch.Table, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg.withDefaults(),
		manifests: manifests,
		table:     table,
		logger:    logger.With("module", "engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.history == nil {
		e.history = report.NewRing(report.DefaultHistorySize)
	}

	return e
}

// History returns the execution history store.
func (e *Engine) History() report.History {
	return e.history
}

// OnCompletion registers a callback fired when a workflow reaches the
// completed or offloaded status.
func (e *Engine) OnCompletion(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onCompletion = append(e.onCompletion, cb)
}

// OnFailure registers a callback fired when a workflow fails or is
// cancelled.
func (e *Engine) OnFailure(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onFailure = append(e.onFailure, cb)
}

// ExecuteWorkflow runs one workflow end to end and returns its finalized
// result. The returned error is reserved for caller mistakes (nil spec);
// every execution failure is reported through the result.
func (e *Engine) ExecuteWorkflow(ctx context.Context, spec *models.TaskSpecification, mode models.ExecutionMode, dryRun bool) (*models.WorkflowResult, error) {
	if spec == nil {
		return nil, errors.New("task specification is required")
	}

	if mode == "" {
		mode = models.ModeSequential
	}

	workflowID := newWorkflowID()
	logger := e.logger.With("workflow_id", workflowID, "engine", spec.Engine)

	result := &models.WorkflowResult{
		WorkflowID: workflowID,
		Status:     models.WorkflowStatusRunning,
		Engine:     spec.Engine,
		Mode:       mode,
		StartTime:  time.Now().UTC(),
		JobResults: make(map[string]*models.JobResult),
		Output:     make(map[string]any),
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, workflowID),
			attribute.String(otelhelper.EngineKey, spec.Engine),
			attribute.String(otelhelper.ModeKey, string(mode)),
		)
		defer span.End()
	}

	logger.Info("Starting workflow execution", "description", truncate(spec.Description, 50), "mode", mode, "dry_run", dryRun)

	if !dryRun {
		e.publish(ctx, logger, events.NewWorkflowStarted(workflowID, spec.Engine, mode))
	}

	// The offload decision comes before the local manifest plan is built.
	// One attempt, never retried; any failure falls back to local execution.
	if !dryRun && e.offloader != nil && e.offloader.ShouldOffload(spec.Description) {
		if done := e.tryOffload(ctx, spec, result, logger); done {
			return e.finalize(ctx, result, logger), nil
		}
	}

	runDir, err := e.prepareEnvironment(spec, workflowID)
	if err != nil {
		logger.Error("Environment preparation failed", "error", err)
		result.AddStage("prepare", "failed", map[string]any{"error": err.Error()})

		return e.fail(ctx, result, err, logger, dryRun), nil
	}

	result.AddStage("prepare", "completed", map[string]any{"run_dir": runDir})

	manifests, err := e.manifests.Generate(spec, workflowID)
	if err != nil {
		logger.Error("Manifest generation failed", "error", err)
		result.AddStage("manifests", "failed", map[string]any{"error": err.Error()})

		return e.fail(ctx, result, err, logger, dryRun), nil
	}

	result.JobCount = len(manifests)
	result.AddStage("manifests", "completed", map[string]any{"job_count": len(manifests)})

	if err := dag.Validate(manifests); err != nil {
		logger.Error("Manifest validation failed", "error", err)
		result.AddStage("validate", "failed", map[string]any{"error": err.Error()})

		return e.fail(ctx, result, err, logger, dryRun), nil
	}

	if err := e.preflight(manifests); err != nil {
		logger.Error("Backend preflight failed", "error", err)
		result.AddStage("prepare", "failed", map[string]any{"error": err.Error()})

		return e.fail(ctx, result, err, logger, dryRun), nil
	}

	if dryRun {
		logger.Info("Dry run, stopping before execution")
		result.Status = models.WorkflowStatusPending
		result.Manifests = manifests

		if err := e.history.Append(ctx, result); err != nil {
			logger.Error("Failed to record dry run in history", "error", err)
		}

		return result, nil
	}

	execCtx := execctx.New()
	execCtx.Set(execctx.RunDirKey, runDir)
	execCtx.Set(execctx.TempDirKey, filepath.Join(e.cfg.TempDir, workflowID))

	logger.Info("Executing jobs", "job_count", len(manifests), "mode", mode)

	outcome := e.executeJobs(ctx, manifests, mode, result, execCtx, logger)

	result.AddStage("execution", string(outcome.status(e.cfg.ContinueOnError)), map[string]any{
		"jobs_executed": outcome.executed,
		"jobs_failed":   outcome.failed,
		"jobs_skipped":  outcome.skipped,
	})

	switch {
	case outcome.cancelled:
		result.Status = models.WorkflowStatusCancelled
		result.Error = "workflow cancelled"
	case outcome.failed > 0 && !e.cfg.ContinueOnError:
		result.Status = models.WorkflowStatusFailed
		result.Error = outcome.firstError
	default:
		result.Status = models.WorkflowStatusCompleted
		aggregateOutput(manifests, result)
		result.AddStage("post_process", "completed", map[string]any{"outputs": len(result.Output)})
	}

	return e.finalize(ctx, result, logger), nil
}

// prepareEnvironment creates the per-run output and temp directories.
func (e *Engine) prepareEnvironment(spec *models.TaskSpecification, workflowID string) (string, error) {
	runDir := manifest.RunDir(e.cfg.OutputDir, spec.Description, workflowID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating run directory: %w", ErrEnvironmentPreparation, err)
	}

	if err := os.MkdirAll(filepath.Join(e.cfg.OutputDir, "logs"), 0o755); err != nil {
		return "", fmt.Errorf("%w: creating log directory: %w", ErrEnvironmentPreparation, err)
	}

	if err := os.MkdirAll(filepath.Join(e.cfg.TempDir, workflowID), 0o755); err != nil {
		return "", fmt.Errorf("%w: creating temp directory: %w", ErrEnvironmentPreparation, err)
	}

	return runDir, nil
}

// preflight verifies that every capability the plan needs is registered and,
// where the executor supports it, that its backend is locatable.
func (e *Engine) preflight(manifests []*models.JobManifest) error {
	checked := make(map[dispatch.Capability]bool)

	for _, m := range manifests {
		capability := dispatch.Capability{Engine: m.Engine, JobType: m.Type}
		if checked[capability] {
			continue
		}

		checked[capability] = true

		executor, err := e.table.Lookup(capability)
		if err != nil {
			return err
		}

		if pf, ok := executor.(Preflighter); ok {
			if err := pf.Preflight(); err != nil {
				return fmt.Errorf("%w: %w", ErrEnvironmentPreparation, err)
			}
		}
	}

	return nil
}

// runJob dispatches one manifest under the per-job timeout and publishes its
// terminal event.
func (e *Engine) runJob(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, workflowID string, logger *slog.Logger) *models.JobResult {
	jobCtx, cancel := context.WithTimeout(ctx, e.cfg.JobTimeout)
	defer cancel()

	if e.tracer != nil {
		var span trace.Span

		jobCtx, span = otelhelper.StartSpan(jobCtx, e.tracer, "job.execute",
			attribute.String(otelhelper.JobIDKey, m.ID),
			attribute.String(otelhelper.JobEngineKey, m.Engine),
			attribute.String(otelhelper.JobTypeKey, m.Type),
		)
		defer span.End()
	}

	jobResult := e.table.Dispatch(jobCtx, m, execCtx, logger)

	if e.tracer != nil && jobResult.Status == models.JobStatusFailed {
		otelhelper.SetError(trace.SpanFromContext(jobCtx), errors.New(jobResult.Error))
	}

	e.publish(ctx, logger, events.NewJobFinished(workflowID, jobResult))

	return jobResult
}

// fail reports a pre-flight failure inside the result. The caller contract
// stays uniform: errors come back inside the result. On a live run the
// result is finalized as failed; a dry run must leave no trace beyond a
// pending history entry, so it records the error on a pending result and
// skips reports, events and callbacks entirely.
func (e *Engine) fail(ctx context.Context, result *models.WorkflowResult, err error, logger *slog.Logger, dryRun bool) *models.WorkflowResult {
	result.Error = err.Error()

	if dryRun {
		result.Status = models.WorkflowStatusPending

		if err := e.history.Append(ctx, result); err != nil {
			logger.Error("Failed to record dry run in history", "error", err)
		}

		return result
	}

	result.Status = models.WorkflowStatusFailed

	return e.finalize(ctx, result, logger)
}

// finalize stamps the end time, persists the report, appends to history and
// notifies subscribers. It runs exactly once per workflow.
func (e *Engine) finalize(ctx context.Context, result *models.WorkflowResult, logger *slog.Logger) *models.WorkflowResult {
	now := time.Now().UTC()
	result.EndTime = &now
	duration := now.Sub(result.StartTime)

	if path, err := report.Write(e.cfg.OutputDir, result); err != nil {
		logger.Error("Failed to save execution report", "error", err)
	} else {
		logger.Info("Execution report saved", "path", path)
	}

	if err := e.history.Append(ctx, result); err != nil {
		logger.Error("Failed to append execution history", "error", err)
	}

	switch result.Status {
	case models.WorkflowStatusCompleted:
		e.publish(ctx, logger, events.NewWorkflowCompleted(result, duration))
	case models.WorkflowStatusOffloaded:
		e.publish(ctx, logger, events.NewWorkflowOffloaded(result.WorkflowID, result.Output))
	case models.WorkflowStatusFailed:
		e.publish(ctx, logger, events.NewWorkflowFailed(result.WorkflowID, result.Error, duration))
	case models.WorkflowStatusCancelled:
		e.publish(ctx, logger, events.NewWorkflowCancelled(result.WorkflowID, duration))
	}

	switch result.Status {
	case models.WorkflowStatusCompleted, models.WorkflowStatusOffloaded:
		e.invokeCallbacks(e.completionCallbacks(), result, logger)
	case models.WorkflowStatusFailed, models.WorkflowStatusCancelled:
		e.invokeCallbacks(e.failureCallbacks(), result, logger)
	}

	logger.Info("Workflow finished", "status", result.Status, "duration", duration)

	return result
}

func (e *Engine) completionCallbacks() []Callback {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]Callback(nil), e.onCompletion...)
}

func (e *Engine) failureCallbacks() []Callback {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]Callback(nil), e.onFailure...)
}

func (e *Engine) invokeCallbacks(callbacks []Callback, result *models.WorkflowResult, logger *slog.Logger) {
	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Callback panicked", "panic", r)
				}
			}()

			cb(result)
		}()
	}
}

// publish sends an event to the bus when one is configured. Failures are
// logged only.
func (e *Engine) publish(ctx context.Context, logger *slog.Logger, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, string(event.GetType()), event); err != nil {
		logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// aggregateOutput collects the well-known artifact paths from completed job
// outputs, preserving plan order so later jobs win.
func aggregateOutput(manifests []*models.JobManifest, result *models.WorkflowResult) {
	for _, m := range manifests {
		jobResult, ok := result.JobResults[m.ID]
		if !ok || !jobResult.Completed() {
			continue
		}

		if v, ok := jobResult.Output["output_path"]; ok {
			result.Output["frames"] = v
		}

		if v, ok := jobResult.Output["project_path"]; ok {
			result.Output["project"] = v
		}

		if v, ok := jobResult.Output["video_path"]; ok {
			result.Output["video"] = v
		}
	}
}

func newWorkflowID() string {
	return uuid.New().String()[:8]
}

// truncate shortens caller-supplied free text for log lines without
// splitting a multi-byte rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}

func skippedResult(jobID, reason string) *models.JobResult {
	return &models.JobResult{
		Status:    models.JobStatusSkipped,
		JobID:     jobID,
		Error:     reason,
		Timestamp: time.Now().UTC(),
	}
}
