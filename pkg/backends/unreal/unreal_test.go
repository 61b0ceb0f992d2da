package unreal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderstack/maestro/pkg/execctx"
	"github.com/renderstack/maestro/pkg/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okRunner(captured *[][]string) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		if captured != nil {
			*captured = append(*captured, append([]string{name}, args...))
		}

		return nil, nil
	}
}

func TestProjectCreatePublishesActiveProject(t *testing.T) {
	projectDir := filepath.Join(t.TempDir(), "ue_project")
	execCtx := execctx.New()

	executor := NewProjectCreateExecutor("UnrealEditor-Cmd", okRunner(nil))

	m := &models.JobManifest{
		ID:         "unreal_project_create",
		Parameters: map[string]any{"template": "game_starter"},
		Output:     map[string]any{"path": projectDir},
	}

	output, err := executor.Execute(context.Background(), m, execCtx, quietLogger())
	require.NoError(t, err)

	expected := filepath.Join(projectDir, "ue_project.uproject")
	assert.Equal(t, "success", output["status"])
	assert.Equal(t, expected, output["project_path"])
	assert.Equal(t, expected, execCtx.GetString(execctx.ActiveProjectKey))
}

func TestAssetIngestReadsActiveProject(t *testing.T) {
	var calls [][]string

	execCtx := execctx.New()
	execCtx.Set(execctx.ActiveProjectKey, "/projects/demo.uproject")

	executor := NewAssetIngestExecutor("UnrealEditor-Cmd", okRunner(&calls))

	m := &models.JobManifest{
		ID:         "unreal_asset_ingest_1",
		Parameters: map[string]any{"asset": "castle.fbx"},
	}

	output, err := executor.Execute(context.Background(), m, execCtx, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "castle.fbx", output["asset"])

	require.Len(t, calls, 1)
	assert.Equal(t, "/projects/demo.uproject", calls[0][1])
	assert.Contains(t, calls[0], "-source=castle.fbx")
}

func TestAssetIngestWithoutActiveProjectFails(t *testing.T) {
	executor := NewAssetIngestExecutor("UnrealEditor-Cmd", okRunner(nil))

	m := &models.JobManifest{
		ID:         "unreal_asset_ingest_1",
		Parameters: map[string]any{"asset": "castle.fbx"},
	}

	_, err := executor.Execute(context.Background(), m, execctx.New(), quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active project")
}

func TestSceneSetupWithoutActiveProjectFails(t *testing.T) {
	executor := NewSceneSetupExecutor("UnrealEditor-Cmd", okRunner(nil))

	_, err := executor.Execute(context.Background(), &models.JobManifest{ID: "unreal_scene_setup"}, execctx.New(), quietLogger())
	require.Error(t, err)
}

func TestRenderSequencePublishesFramesDir(t *testing.T) {
	framesDir := filepath.Join(t.TempDir(), "frames")

	execCtx := execctx.New()
	execCtx.Set(execctx.ActiveProjectKey, "/projects/demo.uproject")

	executor := NewRenderSequenceExecutor("UnrealEditor-Cmd", okRunner(nil))

	m := &models.JobManifest{
		ID:         "unreal_render_sequence",
		Parameters: map[string]any{"fps": 30},
		Output:     map[string]any{"path": framesDir},
	}

	output, err := executor.Execute(context.Background(), m, execCtx, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, framesDir, output["output_path"])
	assert.Equal(t, framesDir, execCtx.GetString(execctx.FramesDirKey))
}
