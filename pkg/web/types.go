package web

import (
	"github.com/renderstack/maestro/pkg/models"
)

// SubmitWorkflowRequest is the body of POST /workflows.
type SubmitWorkflowRequest struct {
	Spec   *models.TaskSpecification `json:"spec"   validate:"required"`
	Mode   string                    `json:"mode,omitempty"`
	DryRun bool                      `json:"dry_run,omitempty"`
}

// SubmitTextRequest is the body of POST /workflows/text: a free-text task
// description turned into a specification server-side.
type SubmitTextRequest struct {
	Engine      string `json:"engine"      validate:"required,oneof=blender unreal davinci"`
	Description string `json:"description" validate:"required,min=1"`
	Mode        string `json:"mode,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Workflows []*models.WorkflowResult `json:"workflows"`
	Count     int                      `json:"count"`
}
