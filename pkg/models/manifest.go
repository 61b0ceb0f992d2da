package models

// JobManifest describes one unit of work targeting one backend. Manifests are
// produced by the manifest generators and are read-only once execution starts.
type JobManifest struct {
	ID         string         `json:"id"         validate:"required"`
	Engine     string         `json:"engine"     validate:"required"`
	Type       string         `json:"type"       validate:"required"`
	Parameters map[string]any `json:"parameters"`
	Assets     []string       `json:"assets,omitempty"`
	DependsOn  []string       `json:"depends_on,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output"`
}

// OutputPath returns the declared output path, or "" when the manifest does
// not carry one.
func (m *JobManifest) OutputPath() string {
	if m.Output == nil {
		return ""
	}

	path, _ := m.Output["path"].(string)

	return path
}

// InputPath returns the declared input path, or "" when the manifest has no
// input reference.
func (m *JobManifest) InputPath() string {
	if m.Input == nil {
		return ""
	}

	path, _ := m.Input["path"].(string)

	return path
}
