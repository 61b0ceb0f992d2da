package manifest

import (
	"path/filepath"

	"github.com/renderstack/maestro/pkg/models"
)

// DaVinciGenerator emits a single color-grade pass over a frame sequence
// produced by an earlier workflow.
type DaVinciGenerator struct {
	outputRoot string
}

func NewDaVinciGenerator(outputRoot string) *DaVinciGenerator {
	return &DaVinciGenerator{outputRoot: outputRoot}
}

func (g *DaVinciGenerator) Generate(spec *models.TaskSpecification, workflowID string) ([]*models.JobManifest, error) {
	runDir := RunDir(g.outputRoot, spec.Description, workflowID)

	grade := &models.JobManifest{
		ID:     "davinci_grade",
		Engine: EngineDaVinci,
		Type:   JobTypeColorGrade,
		Parameters: map[string]any{
			"template":    spec.Template("cinematic_color_profile"),
			"style":       defaultString(spec.Style, "cinematic"),
			"grade_type":  "professional",
			"description": spec.Description,
		},
		Input: map[string]any{
			"type": "sequence",
			"path": filepath.Join(runDir, "frames"),
		},
		Output: map[string]any{
			"format":  "mp4",
			"codec":   "h264",
			"bitrate": videoBitrate(spec.Quality),
			"path":    filepath.Join(runDir, "video.mp4"),
		},
	}

	return []*models.JobManifest{grade}, nil
}
