package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderstack/maestro/pkg/models"
	"github.com/renderstack/maestro/pkg/report"
)

type stubRunner struct {
	lastSpec   *models.TaskSpecification
	lastMode   models.ExecutionMode
	lastDryRun bool
}

func (s *stubRunner) ExecuteWorkflow(_ context.Context, spec *models.TaskSpecification, mode models.ExecutionMode, dryRun bool) (*models.WorkflowResult, error) {
	s.lastSpec = spec
	s.lastMode = mode
	s.lastDryRun = dryRun

	end := time.Now().UTC()

	return &models.WorkflowResult{
		WorkflowID: "abc12345",
		Status:     models.WorkflowStatusCompleted,
		Engine:     spec.Engine,
		Mode:       mode,
		StartTime:  end.Add(-time.Minute),
		EndTime:    &end,
		JobResults: map[string]*models.JobResult{},
		Output:     map[string]any{},
	}, nil
}

func setupTestApp(runner *stubRunner, history report.History) *fiber.App {
	handlers := NewAPIHandlers(runner, history, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	w := app.Group("/workflows")
	w.Post("/", handlers.SubmitWorkflow)
	w.Post("/text", handlers.SubmitText)
	w.Get("/:id", handlers.GetWorkflow)

	app.Get("/history", handlers.ListHistory)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestSubmitWorkflow(t *testing.T) {
	runner := &stubRunner{}
	app := setupTestApp(runner, report.NewRing(10))

	resp := postJSON(t, app, "/workflows/", `{
		"spec": {"engine": "blender", "description": "Ancient Temple"},
		"mode": "parallel",
		"dry_run": true
	}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.ModeParallel, runner.lastMode)
	assert.True(t, runner.lastDryRun)
	require.NotNil(t, runner.lastSpec)
	assert.Equal(t, "blender", runner.lastSpec.Engine)

	var result models.WorkflowResult

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.Equal(t, "abc12345", result.WorkflowID)
}

func TestSubmitWorkflowRejectsMissingSpec(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp := postJSON(t, app, "/workflows/", `{"mode": "sequential"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitWorkflowRejectsInvalidSpec(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp := postJSON(t, app, "/workflows/", `{"spec": {"engine": "blender"}}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitWorkflowRejectsUnknownMode(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp := postJSON(t, app, "/workflows/", `{
		"spec": {"engine": "blender", "description": "x"},
		"mode": "turbo"
	}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitText(t *testing.T) {
	runner := &stubRunner{}
	app := setupTestApp(runner, report.NewRing(10))

	resp := postJSON(t, app, "/workflows/text", `{
		"engine": "unreal",
		"description": "castle walkthrough"
	}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, runner.lastSpec)
	assert.Equal(t, "unreal", runner.lastSpec.Engine)
	assert.Equal(t, "castle walkthrough", runner.lastSpec.Description)
	assert.Equal(t, models.ModeSequential, runner.lastMode)
}

func TestSubmitTextRejectsUnknownEngine(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp := postJSON(t, app, "/workflows/text", `{"engine": "maya", "description": "x"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow(t *testing.T) {
	history := report.NewRing(10)
	require.NoError(t, history.Append(context.Background(), &models.WorkflowResult{
		WorkflowID: "abc12345",
		Status:     models.WorkflowStatusCompleted,
	}))

	app := setupTestApp(&stubRunner{}, history)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/abc12345", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.WorkflowResult

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.Equal(t, "abc12345", result.WorkflowID)
}

func TestGetWorkflowNotFound(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListHistory(t *testing.T) {
	history := report.NewRing(10)
	for _, id := range []string{"wf-1", "wf-2", "wf-3"} {
		require.NoError(t, history.Append(context.Background(), &models.WorkflowResult{WorkflowID: id}))
	}

	app := setupTestApp(&stubRunner{}, history)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/history?limit=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body HistoryResponse

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &body))

	require.Equal(t, 2, body.Count)
	assert.Equal(t, "wf-3", body.Workflows[0].WorkflowID)
}

func TestListHistoryRejectsBadLimit(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/history?limit=zero", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(&stubRunner{}, report.NewRing(10))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
