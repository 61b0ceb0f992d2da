// Package ffmpeg provides the stitch capability: joining a rendered frame
// sequence into a video file.
package ffmpeg

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

type StitchExecutor struct {
	binary string
	run    Runner
}

func NewStitchExecutor(binary string, run Runner) *StitchExecutor {
	if binary == "" {
		binary = "ffmpeg"
	}

	return &StitchExecutor{binary: binary, run: run}
}

// Preflight verifies that the ffmpeg binary is locatable.
func (e *StitchExecutor) Preflight() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("ffmpeg not locatable: %w", err)
	}

	return nil
}

func (e *StitchExecutor) Execute(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	framesDir := m.InputPath()
	if framesDir == "" {
		// Fall back to the handoff written by the render job.
		framesDir = execCtx.GetString(execctx.FramesDirKey)
	}

	if framesDir == "" {
		return nil, fmt.Errorf("stitch manifest %s has no input frames", m.ID)
	}

	outputPath := m.OutputPath()
	if outputPath == "" {
		return nil, fmt.Errorf("stitch manifest %s has no output path", m.ID)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	fps, _ := m.Parameters["fps"].(int)
	if fps <= 0 {
		fps = 24
	}

	bitrate, _ := m.Output["bitrate"].(string)
	if bitrate == "" {
		bitrate = "10000k"
	}

	args := []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(framesDir, "frame_%05d.exr"),
		"-c:v", "libx264",
		"-b:v", bitrate,
		"-pix_fmt", "yuv420p",
		outputPath,
	}

	logger.Info("Stitching frames", "frames", framesDir, "output", outputPath)

	out, err := e.run(ctx, e.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stitch failed: %w: %s", err, out)
	}

	return map[string]any{
		"status":     "success",
		"video_path": outputPath,
	}, nil
}
