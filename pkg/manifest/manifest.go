// Package manifest maps a task specification and a workflow id to an ordered
// set of job manifests per target backend. Generators are registered per
// engine id; unknown engines fail closed.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/renderstack/maestro/pkg/models"
)

// ErrUnsupportedEngine is returned when no generator is registered for the
// requested engine. Callers never receive an empty manifest list silently.
var ErrUnsupportedEngine = errors.New("unsupported engine")

// Generator produces the ordered manifest set for one target engine. It must
// be a pure function of the specification and workflow id apart from the
// run-directory naming, so that ids are stable given the same workflow id.
type Generator interface {
	Generate(spec *models.TaskSpecification, workflowID string) ([]*models.JobManifest, error)
}

// Registry resolves an engine id to its manifest generator.
type Registry struct {
	generators map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

func (r *Registry) Register(engine string, generator Generator) {
	r.generators[engine] = generator
}

// Engines returns the registered engine ids.
func (r *Registry) Engines() []string {
	engines := make([]string, 0, len(r.generators))
	for engine := range r.generators {
		engines = append(engines, engine)
	}

	return engines
}

// Generate dispatches to the generator registered for spec.Engine.
func (r *Registry) Generate(spec *models.TaskSpecification, workflowID string) ([]*models.JobManifest, error) {
	generator, ok := r.generators[spec.Engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, spec.Engine)
	}

	return generator.Generate(spec, workflowID)
}

// NewDefaultRegistry returns a registry with the built-in generators bound to
// the given output root.
func NewDefaultRegistry(outputRoot string) *Registry {
	registry := NewRegistry()
	registry.Register(EngineBlender, NewBlenderGenerator(outputRoot))
	registry.Register(EngineUnreal, NewUnrealGenerator(outputRoot))
	registry.Register(EngineDaVinci, NewDaVinciGenerator(outputRoot))

	return registry
}

// SanitizeDescription reduces a free-text description to a form safe for
// directory names: alphanumerics, spaces, hyphens and underscores only,
// trimmed and truncated to 30 characters.
func SanitizeDescription(description string) string {
	var b strings.Builder

	for _, r := range description {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	safe := strings.TrimSpace(b.String())
	if safe == "" {
		safe = "unnamed"
	}

	if len(safe) > 30 {
		safe = strings.TrimSpace(safe[:30])
	}

	return safe
}

// RunDir returns the per-workflow output directory. The workflow id suffix
// guarantees uniqueness across concurrent workflows with equal descriptions.
func RunDir(outputRoot, description, workflowID string) string {
	return filepath.Join(outputRoot, SanitizeDescription(description)+"_"+workflowID)
}
