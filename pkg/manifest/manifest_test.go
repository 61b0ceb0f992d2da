package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderstack/maestro/pkg/dag"
	"github.com/renderstack/maestro/pkg/models"
)

func TestSanitizeDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{
			name:        "plain text passes through",
			description: "Ancient Temple",
			expected:    "Ancient Temple",
		},
		{
			name:        "special characters are stripped",
			description: "Temple! (v2) @night #5",
			expected:    "Temple v2 night 5",
		},
		{
			name:        "long descriptions are truncated to 30 chars",
			description: "a cinematic flyover of an ancient temple complex at dawn",
			expected:    "a cinematic flyover of an anci",
		},
		{
			name:        "empty falls back to unnamed",
			description: "",
			expected:    "unnamed",
		},
		{
			name:        "only special characters falls back to unnamed",
			description: "!!!***///",
			expected:    "unnamed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeDescription(tt.description))
		})
	}
}

func TestRunDirEmbedsWorkflowID(t *testing.T) {
	dir := RunDir("output", "Ancient Temple", "abc12345")
	assert.Equal(t, filepath.Join("output", "Ancient Temple_abc12345"), dir)
}

func TestBlenderGeneratorProducesSingleRenderJob(t *testing.T) {
	generator := NewBlenderGenerator("output")

	spec := &models.TaskSpecification{
		Engine:      EngineBlender,
		Description: "Ancient Temple",
		Quality:     "ultra",
		Resolution:  "4k",
		FPS:         30,
		Duration:    10,
	}

	manifests, err := generator.Generate(spec, "abc12345")
	require.NoError(t, err)
	require.Len(t, manifests, 1)

	render := manifests[0]
	assert.Equal(t, "blender_render_main", render.ID)
	assert.Equal(t, EngineBlender, render.Engine)
	assert.Equal(t, JobTypeRender, render.Type)
	assert.Empty(t, render.DependsOn)
	assert.Equal(t, 128, render.Parameters["samples"])
	assert.Equal(t, "4k", render.Parameters["resolution"])
	assert.Equal(t, 30, render.Parameters["fps"])
	assert.Equal(t, "EXR", render.Output["format"])
	assert.Equal(t, filepath.Join("output", "Ancient Temple_abc12345", "frames"), render.Output["path"])
}

func TestBlenderGeneratorDefaults(t *testing.T) {
	generator := NewBlenderGenerator("output")

	spec := &models.TaskSpecification{Engine: EngineBlender, Description: "minimal"}

	manifests, err := generator.Generate(spec, "abc12345")
	require.NoError(t, err)

	params := manifests[0].Parameters
	assert.Equal(t, 64, params["samples"])
	assert.Equal(t, "1080p", params["resolution"])
	assert.Equal(t, 24, params["fps"])
	assert.Equal(t, 30, params["duration"])
	assert.Equal(t, "cinematic_master", params["template"])
}

func TestUnrealGeneratorBuildsFullChain(t *testing.T) {
	generator := NewUnrealGenerator("output")

	spec := &models.TaskSpecification{
		Engine:      EngineUnreal,
		Description: "castle walkthrough",
		Assets:      []string{"castle.fbx", "knight.fbx"},
	}

	manifests, err := generator.Generate(spec, "abc12345")
	require.NoError(t, err)
	require.Len(t, manifests, 6)
	require.NoError(t, dag.Validate(manifests))

	ids := make([]string, 0, len(manifests))
	for _, m := range manifests {
		ids = append(ids, m.ID)
	}

	assert.Equal(t, []string{
		"unreal_project_create",
		"unreal_asset_ingest_1",
		"unreal_asset_ingest_2",
		"unreal_scene_setup",
		"unreal_render_sequence",
		"ffmpeg_stitch",
	}, ids)

	byID := make(map[string]*models.JobManifest, len(manifests))
	for _, m := range manifests {
		byID[m.ID] = m
	}

	assert.Equal(t, []string{"unreal_project_create"}, byID["unreal_asset_ingest_1"].DependsOn)
	assert.ElementsMatch(t,
		[]string{"unreal_project_create", "unreal_asset_ingest_1", "unreal_asset_ingest_2"},
		byID["unreal_scene_setup"].DependsOn)
	assert.Equal(t, []string{"unreal_scene_setup"}, byID["unreal_render_sequence"].DependsOn)
	assert.Equal(t, []string{"unreal_render_sequence"}, byID["ffmpeg_stitch"].DependsOn)

	stitch := byID["ffmpeg_stitch"]
	assert.Equal(t, EngineFFmpeg, stitch.Engine)
	assert.Equal(t, JobTypeStitch, stitch.Type)
	assert.Equal(t, byID["unreal_render_sequence"].Output["path"], stitch.Input["path"])
	assert.Equal(t, "10000k", stitch.Output["bitrate"])
}

func TestUnrealGeneratorWithoutAssetsSkipsIngest(t *testing.T) {
	generator := NewUnrealGenerator("output")

	spec := &models.TaskSpecification{Engine: EngineUnreal, Description: "empty scene"}

	manifests, err := generator.Generate(spec, "abc12345")
	require.NoError(t, err)
	require.Len(t, manifests, 4)
	require.NoError(t, dag.Validate(manifests))

	assert.Equal(t, []string{"unreal_project_create"}, manifests[1].DependsOn)
}

func TestUnrealGeneratorUltraQualityBitrate(t *testing.T) {
	generator := NewUnrealGenerator("output")

	spec := &models.TaskSpecification{Engine: EngineUnreal, Description: "x", Quality: "ultra"}

	manifests, err := generator.Generate(spec, "abc12345")
	require.NoError(t, err)

	stitch := manifests[len(manifests)-1]
	assert.Equal(t, "15000k", stitch.Output["bitrate"])
}

func TestDaVinciGeneratorProducesGradeJob(t *testing.T) {
	generator := NewDaVinciGenerator("output")

	spec := &models.TaskSpecification{Engine: EngineDaVinci, Description: "grade pass", Style: "noir"}

	manifests, err := generator.Generate(spec, "abc12345")
	require.NoError(t, err)
	require.Len(t, manifests, 1)

	grade := manifests[0]
	assert.Equal(t, "davinci_grade", grade.ID)
	assert.Equal(t, JobTypeColorGrade, grade.Type)
	assert.Equal(t, "noir", grade.Parameters["style"])
	assert.Equal(t, "sequence", grade.Input["type"])
	assert.Equal(t, "mp4", grade.Output["format"])
}

func TestRegistryRejectsUnknownEngine(t *testing.T) {
	registry := NewDefaultRegistry("output")

	spec := &models.TaskSpecification{Engine: "maya", Description: "x"}

	_, err := registry.Generate(spec, "abc12345")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}

func TestDefaultRegistryEngines(t *testing.T) {
	registry := NewDefaultRegistry("output")

	assert.ElementsMatch(t, []string{EngineBlender, EngineUnreal, EngineDaVinci}, registry.Engines())
}
