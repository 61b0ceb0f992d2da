// Package models defines the core domain models for workflow orchestration
// across rendering and editing backends.
package models

// TaskSpecification is the normalized description of a desired production,
// produced by an external input normalizer. It is immutable input to a
// workflow and owned by the caller.
type TaskSpecification struct {
	Engine      string         `json:"engine"      validate:"required"`
	Description string         `json:"description" validate:"required"`
	Style       string         `json:"style,omitempty"`
	Quality     string         `json:"quality,omitempty"`
	Resolution  string         `json:"resolution,omitempty"`
	FPS         int            `json:"fps,omitempty"        validate:"omitempty,gt=0"`
	Duration    int            `json:"duration,omitempty"   validate:"omitempty,gt=0"`
	Assets      []string       `json:"assets,omitempty"`
	Templates   []string       `json:"templates,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Template returns the first requested template, or fallback when none is set.
func (s *TaskSpecification) Template(fallback string) string {
	if len(s.Templates) > 0 && s.Templates[0] != "" {
		return s.Templates[0]
	}

	return fallback
}
