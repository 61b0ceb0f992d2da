// Package blender provides the render capability backed by a headless
// Blender process.
package blender

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/models"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// RenderExecutor renders a frame sequence headlessly.
type RenderExecutor struct {
	binary string
	run    Runner
}

func NewRenderExecutor(binary string, run Runner) *RenderExecutor {
	if binary == "" {
		binary = "blender"
	}

	return &RenderExecutor{binary: binary, run: run}
}

// Preflight verifies that the Blender binary is locatable.
func (e *RenderExecutor) Preflight() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("blender not locatable: %w", err)
	}

	return nil
}

func (e *RenderExecutor) Execute(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	outputPath := m.OutputPath()
	if outputPath == "" {
		return nil, fmt.Errorf("render manifest %s has no output path", m.ID)
	}

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating frames directory: %w", err)
	}

	fps, _ := m.Parameters["fps"].(int)
	if fps <= 0 {
		fps = 24
	}

	duration, _ := m.Parameters["duration"].(int)
	if duration <= 0 {
		duration = 30
	}

	frameEnd := fps * duration

	args := []string{
		"--background",
		"--engine", "CYCLES",
		"--render-output", filepath.Join(outputPath, "frame_#####"),
		"--render-format", "OPEN_EXR",
		"--frame-start", "1",
		"--frame-end", strconv.Itoa(frameEnd),
		"--render-anim",
	}

	logger.Info("Starting Blender render", "frames", frameEnd, "output", outputPath)

	out, err := e.run(ctx, e.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("blender render failed: %w: %s", err, tail(out))
	}

	execCtx.Set(execctx.FramesDirKey, outputPath)

	return map[string]any{
		"status":      "success",
		"output_path": outputPath,
		"frame_count": frameEnd,
	}, nil
}

// tail keeps error payloads readable when a backend dumps a full log.
func tail(out []byte) string {
	const limit = 512

	if len(out) <= limit {
		return string(out)
	}

	return "..." + string(out[len(out)-limit:])
}
