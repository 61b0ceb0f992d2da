// Package report persists workflow results and keeps the execution history.
// One JSON report file is written per workflow, exactly once at completion,
// into the logs subdirectory of the run's output root.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/renderstack/maestro/pkg/models"
)

// Write serializes the result to <outputRoot>/logs/workflow_<id>.json and
// returns the report path.
func Write(outputRoot string, result *models.WorkflowResult) (string, error) {
	logDir := filepath.Join(outputRoot, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding workflow result: %w", err)
	}

	path := filepath.Join(logDir, "workflow_"+result.WorkflowID+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("writing workflow report: %w", err)
	}

	return path, nil
}

// Read loads a report file back into a WorkflowResult.
func Read(path string) (*models.WorkflowResult, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow report: %w", err)
	}

	var result models.WorkflowResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding workflow report: %w", err)
	}

	return &result, nil
}

// History is the execution history of an orchestrator instance. The memory
// implementation is a bounded ring; the redis implementation backs
// long-running service deployments.
type History interface {
	Append(ctx context.Context, result *models.WorkflowResult) error
	Recent(ctx context.Context, n int) ([]*models.WorkflowResult, error)
	Find(ctx context.Context, workflowID string) (*models.WorkflowResult, error)
}
