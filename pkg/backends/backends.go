// Package backends wires the built-in backend executors into a dispatch
// table. Each backend shells out to its external tool; the orchestrator
// treats the tools as black boxes with a status/output contract.
package backends

import (
	"context"
	"os/exec"

	"github.com/renderstack/maestro/pkg/backends/blender"
	"github.com/renderstack/maestro/pkg/backends/davinci"
	"github.com/renderstack/maestro/pkg/backends/ffmpeg"
	"github.com/renderstack/maestro/pkg/backends/unreal"
	"github.com/renderstack/maestro/pkg/dispatch"
	"github.com/renderstack/maestro/pkg/manifest"
)

// Runner executes an external command and returns its combined output. Tests
// substitute a fake; production uses DefaultRunner.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// DefaultRunner runs the command through os/exec with the caller's context,
// so cancellation terminates the backend process.
func DefaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Binaries carries the resolved tool paths. Empty values fall back to PATH
// lookup of the conventional binary name.
type Binaries struct {
	Blender string
	Unreal  string
	FFmpeg  string
	Resolve string
}

// Register installs every built-in capability into the table.
func Register(table *dispatch.Table, bins Binaries) {
	run := blender.Runner(DefaultRunner)

	table.Register(
		dispatch.Capability{Engine: manifest.EngineBlender, JobType: manifest.JobTypeRender},
		blender.NewRenderExecutor(bins.Blender, run),
	)

	table.Register(
		dispatch.Capability{Engine: manifest.EngineUnreal, JobType: manifest.JobTypeProjectCreate},
		unreal.NewProjectCreateExecutor(bins.Unreal, unreal.Runner(DefaultRunner)),
	)
	table.Register(
		dispatch.Capability{Engine: manifest.EngineUnreal, JobType: manifest.JobTypeAssetIngest},
		unreal.NewAssetIngestExecutor(bins.Unreal, unreal.Runner(DefaultRunner)),
	)
	table.Register(
		dispatch.Capability{Engine: manifest.EngineUnreal, JobType: manifest.JobTypeSceneSetup},
		unreal.NewSceneSetupExecutor(bins.Unreal, unreal.Runner(DefaultRunner)),
	)
	table.Register(
		dispatch.Capability{Engine: manifest.EngineUnreal, JobType: manifest.JobTypeRenderSequence},
		unreal.NewRenderSequenceExecutor(bins.Unreal, unreal.Runner(DefaultRunner)),
	)

	table.Register(
		dispatch.Capability{Engine: manifest.EngineFFmpeg, JobType: manifest.JobTypeStitch},
		ffmpeg.NewStitchExecutor(bins.FFmpeg, ffmpeg.Runner(DefaultRunner)),
	)

	table.Register(
		dispatch.Capability{Engine: manifest.EngineDaVinci, JobType: manifest.JobTypeColorGrade},
		davinci.NewColorGradeExecutor(bins.Resolve, davinci.Runner(DefaultRunner)),
	)
}
