// Package unreal provides the scene-assembly capabilities backed by a
// headless Unreal editor: project creation, asset ingestion, scene setup and
// sequence rendering. Project creation publishes the project path into the
// execution context; every later job in the chain reads it from there.
package unreal

import (
	"context"
	"errors"
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

type base struct {
	binary string
	run    Runner
}

func newBase(binary string, run Runner) base {
	if binary == "" {
		binary = "UnrealEditor"
	}

	return base{binary: binary, run: run}
}

// Preflight verifies that the Unreal editor binary is locatable.
func (b base) Preflight() error {
	if _, err := exec.LookPath(b.binary); err != nil {
		return fmt.Errorf("unreal editor not locatable: %w", err)
	}

	return nil
}

// activeProject reads the project path written by the project_create job.
func activeProject(execCtx *execctx.Context) (string, error) {
	project := execCtx.GetString(execctx.ActiveProjectKey)
	if project == "" {
		return "", errors.New("no active project in execution context")
	}

	return project, nil
}

// ProjectCreateExecutor creates an empty project from a template.
type ProjectCreateExecutor struct{ base }

func NewProjectCreateExecutor(binary string, run Runner) *ProjectCreateExecutor {
	return &ProjectCreateExecutor{newBase(binary, run)}
}

func (e *ProjectCreateExecutor) Execute(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	projectDir := m.OutputPath()
	if projectDir == "" {
		return nil, fmt.Errorf("project_create manifest %s has no output path", m.ID)
	}

	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	template, _ := m.Parameters["template"].(string)
	projectFile := filepath.Join(projectDir, filepath.Base(projectDir)+".uproject")

	logger.Info("Creating Unreal project", "template", template, "project", projectFile)

	out, err := e.run(ctx, e.binary, projectFile, "-run=CreateProject", "-template="+template, "-unattended", "-nop4")
	if err != nil {
		return nil, fmt.Errorf("project creation failed: %w: %s", err, out)
	}

	// The canonical project path is the handoff for every dependent job.
	execCtx.Set(execctx.ActiveProjectKey, projectFile)

	return map[string]any{
		"status":       "success",
		"project_path": projectFile,
	}, nil
}

// AssetIngestExecutor imports one asset into the active project.
type AssetIngestExecutor struct{ base }

func NewAssetIngestExecutor(binary string, run Runner) *AssetIngestExecutor {
	return &AssetIngestExecutor{newBase(binary, run)}
}

func (e *AssetIngestExecutor) Execute(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	project, err := activeProject(execCtx)
	if err != nil {
		return nil, err
	}

	asset, _ := m.Parameters["asset"].(string)
	if asset == "" {
		return nil, fmt.Errorf("asset_ingest manifest %s names no asset", m.ID)
	}

	logger.Info("Ingesting asset", "asset", asset, "project", project)

	out, err := e.run(ctx, e.binary, project, "-run=ImportAssets", "-source="+asset, "-dest=/Game/Assets", "-unattended", "-nop4")
	if err != nil {
		return nil, fmt.Errorf("asset ingest failed for %s: %w: %s", asset, err, out)
	}

	return map[string]any{
		"status": "success",
		"asset":  asset,
	}, nil
}

// SceneSetupExecutor assembles the level from the ingested assets.
type SceneSetupExecutor struct{ base }

func NewSceneSetupExecutor(binary string, run Runner) *SceneSetupExecutor {
	return &SceneSetupExecutor{newBase(binary, run)}
}

func (e *SceneSetupExecutor) Execute(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	project, err := activeProject(execCtx)
	if err != nil {
		return nil, err
	}

	description, _ := m.Parameters["description"].(string)

	logger.Info("Assembling scene", "project", project)

	out, err := e.run(ctx, e.binary, project, "-run=SceneSetup", "-description="+description, "-unattended", "-nop4")
	if err != nil {
		return nil, fmt.Errorf("scene setup failed: %w: %s", err, out)
	}

	return map[string]any{
		"status":  "success",
		"project": project,
		"level":   "/Game/Maps/Main",
	}, nil
}

// RenderSequenceExecutor renders the level sequence to a frame directory.
type RenderSequenceExecutor struct{ base }

func NewRenderSequenceExecutor(binary string, run Runner) *RenderSequenceExecutor {
	return &RenderSequenceExecutor{newBase(binary, run)}
}

func (e *RenderSequenceExecutor) Execute(ctx context.Context, m *models.JobManifest, execCtx *execctx.Context, logger *slog.Logger) (map[string]any, error) {
	project, err := activeProject(execCtx)
	if err != nil {
		return nil, err
	}

	framesDir := m.OutputPath()
	if framesDir == "" {
		return nil, fmt.Errorf("render_sequence manifest %s has no output path", m.ID)
	}

	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating frames directory: %w", err)
	}

	fps, _ := m.Parameters["fps"].(int)
	if fps <= 0 {
		fps = 24
	}

	logger.Info("Rendering sequence", "project", project, "output", framesDir)

	out, err := e.run(ctx, e.binary, project,
		"-run=MovieRenderPipeline",
		"-output="+framesDir,
		"-fps="+strconv.Itoa(fps),
		"-unattended", "-nop4",
	)
	if err != nil {
		return nil, fmt.Errorf("sequence render failed: %w: %s", err, out)
	}

	execCtx.Set(execctx.FramesDirKey, framesDir)

	return map[string]any{
		"status":      "success",
		"output_path": framesDir,
	}, nil
}
