// Package web provides the HTTP surface for submitting workflows and
// inspecting execution history.
package web

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/renderstack/maestro/pkg/models"
	"github.com/renderstack/maestro/pkg/report"
	"github.com/renderstack/maestro/pkg/taskspec"
)

const defaultHistoryLimit = 20

// WorkflowRunner is the slice of the engine the handlers need.
type WorkflowRunner interface {
	ExecuteWorkflow(ctx context.Context, spec *models.TaskSpecification, mode models.ExecutionMode, dryRun bool) (*models.WorkflowResult, error)
}

type APIHandlers struct {
	runner    WorkflowRunner
	history   report.History
	validator *validator.Validate
}

func NewAPIHandlers(runner WorkflowRunner, history report.History, validate *validator.Validate) *APIHandlers {
	return &APIHandlers{
		runner:    runner,
		history:   history,
		validator: validate,
	}
}

// SubmitWorkflow runs a task specification and returns its finalized
// result. Dry runs come back with the manifest plan attached and nothing
// executed.
func (h *APIHandlers) SubmitWorkflow(c fiber.Ctx) error {
	var req SubmitWorkflowRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := taskspec.Check(req.Spec); err != nil {
		return badRequest(c, err.Error())
	}

	mode, ok := models.ParseExecutionMode(req.Mode)
	if !ok {
		return badRequest(c, "Unknown execution mode: "+req.Mode)
	}

	result, err := h.runner.ExecuteWorkflow(c.Context(), req.Spec, mode, req.DryRun)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// SubmitText accepts a free-text task description and runs it as a
// specification for the named engine.
func (h *APIHandlers) SubmitText(c fiber.Ctx) error {
	var req SubmitTextRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	mode, ok := models.ParseExecutionMode(req.Mode)
	if !ok {
		return badRequest(c, "Unknown execution mode: "+req.Mode)
	}

	spec := taskspec.FromText(req.Engine, req.Description)

	result, err := h.runner.ExecuteWorkflow(c.Context(), spec, mode, req.DryRun)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetWorkflow looks a past workflow up by id.
func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	result, err := h.history.Find(c.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

// ListHistory returns the most recent workflow results, newest first.
func (h *APIHandlers) ListHistory(c fiber.Ctx) error {
	limit := defaultHistoryLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "Invalid limit: "+limitStr)
		}

		limit = parsed
	}

	results, err := h.history.Recent(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(HistoryResponse{
		Workflows: results,
		Count:     len(results),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}
