package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/renderstack/maestro/pkg/models"
)

// UnrealGenerator emits the scene-assembly chain: create a project, ingest
// each requested asset, assemble the scene, render the sequence, then hand
// the frames to ffmpeg for stitching. Dependencies mirror that order.
type UnrealGenerator struct {
	outputRoot string
}

func NewUnrealGenerator(outputRoot string) *UnrealGenerator {
	return &UnrealGenerator{outputRoot: outputRoot}
}

func (g *UnrealGenerator) Generate(spec *models.TaskSpecification, workflowID string) ([]*models.JobManifest, error) {
	runDir := RunDir(g.outputRoot, spec.Description, workflowID)
	projectDir := filepath.Join(runDir, "ue_project")
	framesDir := filepath.Join(runDir, "frames")

	manifests := make([]*models.JobManifest, 0, len(spec.Assets)+4)

	createID := "unreal_project_create"
	manifests = append(manifests, &models.JobManifest{
		ID:     createID,
		Engine: EngineUnreal,
		Type:   JobTypeProjectCreate,
		Parameters: map[string]any{
			"template":    spec.Template("game_starter"),
			"quality":     defaultString(spec.Quality, "high"),
			"description": spec.Description,
		},
		Output: map[string]any{"path": projectDir},
	})

	ingestIDs := make([]string, 0, len(spec.Assets))

	for i, asset := range spec.Assets {
		ingestID := fmt.Sprintf("unreal_asset_ingest_%d", i+1)
		ingestIDs = append(ingestIDs, ingestID)

		manifests = append(manifests, &models.JobManifest{
			ID:     ingestID,
			Engine: EngineUnreal,
			Type:   JobTypeAssetIngest,
			Parameters: map[string]any{
				"asset": asset,
			},
			Assets:    []string{asset},
			DependsOn: []string{createID},
			Output:    map[string]any{"path": filepath.Join(projectDir, "Content", "Assets")},
		})
	}

	sceneID := "unreal_scene_setup"
	manifests = append(manifests, &models.JobManifest{
		ID:     sceneID,
		Engine: EngineUnreal,
		Type:   JobTypeSceneSetup,
		Parameters: map[string]any{
			"description": spec.Description,
			"style":       defaultString(spec.Style, "cinematic"),
		},
		Assets:    spec.Assets,
		DependsOn: append([]string{createID}, ingestIDs...),
		Output:    map[string]any{"path": filepath.Join(projectDir, "Content")},
	})

	renderID := "unreal_render_sequence"
	manifests = append(manifests, &models.JobManifest{
		ID:     renderID,
		Engine: EngineUnreal,
		Type:   JobTypeRenderSequence,
		Parameters: map[string]any{
			"resolution": defaultString(spec.Resolution, "1080p"),
			"fps":        defaultInt(spec.FPS, 24),
			"duration":   defaultInt(spec.Duration, 30),
			"quality":    defaultString(spec.Quality, "high"),
		},
		DependsOn: []string{sceneID},
		Output:    map[string]any{"path": framesDir},
	})

	// Stitching is not an Unreal capability; the final job targets ffmpeg.
	manifests = append(manifests, &models.JobManifest{
		ID:     "ffmpeg_stitch",
		Engine: EngineFFmpeg,
		Type:   JobTypeStitch,
		Parameters: map[string]any{
			"fps":     defaultInt(spec.FPS, 24),
			"quality": defaultString(spec.Quality, "high"),
		},
		DependsOn: []string{renderID},
		Input: map[string]any{
			"type": "sequence",
			"path": framesDir,
		},
		Output: map[string]any{
			"format":  "mp4",
			"codec":   "h264",
			"bitrate": videoBitrate(spec.Quality),
			"path":    filepath.Join(runDir, "video.mp4"),
		},
	})

	return manifests, nil
}

func videoBitrate(quality string) string {
	if quality == "ultra" {
		return "15000k"
	}

	return "10000k"
}
