package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow execution.
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
	WorkflowStatusOffloaded WorkflowStatus = "offloaded"
)

// Terminal reports whether the status is an exit state of the workflow state
// machine. Pending counts as terminal for dry runs, which never enter Running.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled, WorkflowStatusOffloaded:
		return true
	default:
		return false
	}
}

// JobStatus is the terminal state of one job within a workflow.
type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"

	// JobStatusSkipped marks a job that was never dispatched: an unsatisfied
	// dependency, a declined interactive confirmation, or an aborted
	// schedule. Distinct from failed.
	JobStatusSkipped JobStatus = "skipped"
)

// ExecutionMode selects how the engine drives the job set.
type ExecutionMode string

const (
	ModeSequential  ExecutionMode = "sequential"
	ModeParallel    ExecutionMode = "parallel"
	ModeInteractive ExecutionMode = "interactive"
)

// ParseExecutionMode maps a mode flag value to an ExecutionMode.
func ParseExecutionMode(mode string) (ExecutionMode, bool) {
	switch ExecutionMode(mode) {
	case ModeSequential, ModeParallel, ModeInteractive:
		return ExecutionMode(mode), true
	case "":
		return ModeSequential, true
	default:
		return "", false
	}
}

// JobResult is the immutable outcome of one job, keyed by manifest id within
// a WorkflowResult.
type JobResult struct {
	Status          JobStatus      `json:"status"`
	JobID           string         `json:"job_id"`
	Output          map[string]any `json:"output,omitempty"`
	Error           string         `json:"error,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Completed reports whether the job finished successfully.
func (r *JobResult) Completed() bool {
	return r != nil && r.Status == JobStatusCompleted
}

// StageRecord is one entry of the ordered stage log of a workflow
// (prepare, manifests, offload, execution, report).
type StageRecord struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// WorkflowResult is the full record of one workflow execution. It is created
// at workflow start, mutated only by the execution engine, and finalized and
// persisted exactly once.
type WorkflowResult struct {
	WorkflowID string                `json:"workflow_id"`
	Status     WorkflowStatus        `json:"status"`
	Engine     string                `json:"engine"`
	Mode       ExecutionMode         `json:"mode"`
	StartTime  time.Time             `json:"start_time"`
	EndTime    *time.Time            `json:"end_time,omitempty"`
	Stages     []StageRecord         `json:"stages"`
	JobCount   int                   `json:"job_count"`
	JobResults map[string]*JobResult `json:"job_results"`
	Output     map[string]any        `json:"output"`
	Error      string                `json:"error,omitempty"`

	// Manifests is only populated on dry runs, which stop before execution.
	Manifests []*JobManifest `json:"manifests,omitempty"`
}

// AddStage appends a stage record preserving insertion order.
func (r *WorkflowResult) AddStage(name, status string, details map[string]any) {
	r.Stages = append(r.Stages, StageRecord{Name: name, Status: status, Details: details})
}

// JobStatusOf returns the status of a job, or "" when the job has no result.
func (r *WorkflowResult) JobStatusOf(jobID string) JobStatus {
	if jr, ok := r.JobResults[jobID]; ok {
		return jr.Status
	}

	return ""
}

// FailedJobs returns the ids of jobs with a failed result.
func (r *WorkflowResult) FailedJobs() []string {
	var failed []string

	for id, jr := range r.JobResults {
		if jr.Status == JobStatusFailed {
			failed = append(failed, id)
		}
	}

	return failed
}
