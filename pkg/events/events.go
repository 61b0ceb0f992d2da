// Package events defines event types for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/renderstack/maestro/pkg/models"
)

type EventType string

// Topic carries every workflow lifecycle event.
const Topic = "maestro.workflow.events"

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"
	WorkflowOffloadedEvent EventType = "workflow.offloaded"
	JobFinishedEvent       EventType = "job.finished"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func newBase(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowStarted struct {
	BaseEvent

	Engine string               `json:"engine"`
	Mode   models.ExecutionMode `json:"mode"`
}

func NewWorkflowStarted(workflowID, engine string, mode models.ExecutionMode) WorkflowStarted {
	return WorkflowStarted{BaseEvent: newBase(WorkflowStartedEvent, workflowID), Engine: engine, Mode: mode}
}

func (e WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Output   map[string]any `json:"output,omitempty"`
	JobCount int            `json:"job_count"`
	Duration time.Duration  `json:"duration"`
}

func NewWorkflowCompleted(result *models.WorkflowResult, duration time.Duration) WorkflowCompleted {
	return WorkflowCompleted{
		BaseEvent: newBase(WorkflowCompletedEvent, result.WorkflowID),
		Output:    result.Output,
		JobCount:  result.JobCount,
		Duration:  duration,
	}
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func NewWorkflowFailed(workflowID, errDetail string, duration time.Duration) WorkflowFailed {
	return WorkflowFailed{BaseEvent: newBase(WorkflowFailedEvent, workflowID), Error: errDetail, Duration: duration}
}

func (e WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type WorkflowCancelled struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func NewWorkflowCancelled(workflowID string, duration time.Duration) WorkflowCancelled {
	return WorkflowCancelled{BaseEvent: newBase(WorkflowCancelledEvent, workflowID), Duration: duration}
}

func (e WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}

type WorkflowOffloaded struct {
	BaseEvent

	Artifacts map[string]any `json:"artifacts,omitempty"`
}

func NewWorkflowOffloaded(workflowID string, artifacts map[string]any) WorkflowOffloaded {
	return WorkflowOffloaded{BaseEvent: newBase(WorkflowOffloadedEvent, workflowID), Artifacts: artifacts}
}

func (e WorkflowOffloaded) GetType() EventType {
	return WorkflowOffloadedEvent
}

type JobFinished struct {
	BaseEvent

	JobID    string           `json:"job_id"`
	Status   models.JobStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration"`
}

func NewJobFinished(workflowID string, result *models.JobResult) JobFinished {
	return JobFinished{
		BaseEvent: newBase(JobFinishedEvent, workflowID),
		JobID:     result.JobID,
		Status:    result.Status,
		Error:     result.Error,
		Duration:  time.Duration(result.DurationSeconds * float64(time.Second)),
	}
}

func (e JobFinished) GetType() EventType {
	return JobFinishedEvent
}
