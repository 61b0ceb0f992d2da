package manifest

import (
	"path/filepath"

	"github.com/renderstack/maestro/pkg/models"
)

// Engine identifiers understood by the built-in generators.
const (
	EngineBlender = "blender"
	EngineUnreal  = "unreal"
	EngineDaVinci = "davinci"
	EngineFFmpeg  = "ffmpeg"
)

// Job types emitted by the built-in generators.
const (
	JobTypeRender         = "render"
	JobTypeProjectCreate  = "project_create"
	JobTypeAssetIngest    = "asset_ingest"
	JobTypeSceneSetup     = "scene_setup"
	JobTypeRenderSequence = "render_sequence"
	JobTypeStitch         = "stitch"
	JobTypeColorGrade     = "color_grade"
)

// BlenderGenerator emits a single render manifest writing an EXR frame
// sequence into <run_dir>/frames.
type BlenderGenerator struct {
	outputRoot string
}

func NewBlenderGenerator(outputRoot string) *BlenderGenerator {
	return &BlenderGenerator{outputRoot: outputRoot}
}

func (g *BlenderGenerator) Generate(spec *models.TaskSpecification, workflowID string) ([]*models.JobManifest, error) {
	runDir := RunDir(g.outputRoot, spec.Description, workflowID)

	render := &models.JobManifest{
		ID:     "blender_render_main",
		Engine: EngineBlender,
		Type:   JobTypeRender,
		Parameters: map[string]any{
			"template":    spec.Template("cinematic_master"),
			"style":       defaultString(spec.Style, "cinematic"),
			"duration":    defaultInt(spec.Duration, 30),
			"resolution":  defaultString(spec.Resolution, "1080p"),
			"fps":         defaultInt(spec.FPS, 24),
			"samples":     renderSamples(spec.Quality),
			"engine":      "cycles",
			"description": spec.Description,
			"quality":     defaultString(spec.Quality, "high"),
		},
		Assets: spec.Assets,
		Output: map[string]any{
			"format": "EXR",
			"path":   filepath.Join(runDir, "frames"),
		},
	}

	return []*models.JobManifest{render}, nil
}

// renderSamples maps quality to the cycles sample count: ultra doubles it.
func renderSamples(quality string) int {
	if quality == "ultra" {
		return 128
	}

	return 64
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}

	return value
}
