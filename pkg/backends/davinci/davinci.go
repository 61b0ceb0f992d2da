// Package davinci provides the color-grade capability backed by a DaVinci
// Resolve scripting session.
package davinci

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/models"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

type ColorGradeExecutor struct {
	binary string
	run    Runner
}

func NewColorGradeExecutor(binary string, run Runner) *ColorGradeExecutor {
	if binary == "" {
		binary = "resolve"
	}

	return &ColorGradeExecutor{binary: binary, run: run}
}

// Preflight verifies that the Resolve binary is locatable.
func (e *ColorGradeExecutor) Preflight() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("davinci resolve not locatable: %w", err)
	}

	return nil
}

func (e *ColorGradeExecutor) Execute(ctx context.Context, m *models.JobManifest, _ *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	framesDir := m.InputPath()
	if framesDir == "" {
		return nil, fmt.Errorf("color_grade manifest %s has no input frames", m.ID)
	}

	outputPath := m.OutputPath()
	if outputPath == "" {
		return nil, fmt.Errorf("color_grade manifest %s has no output path", m.ID)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	style, _ := m.Parameters["style"].(string)

	logger.Info("Grading sequence", "frames", framesDir, "style", style)

	out, err := e.run(ctx, e.binary, "-nogui", "-grade", "-input", framesDir, "-style", style, "-output", outputPath)
	if err != nil {
		return nil, fmt.Errorf("color grade failed: %w: %s", err, out)
	}

	return map[string]any{
		"status":     "success",
		"video_path": outputPath,
	}, nil
}
