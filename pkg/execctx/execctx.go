// Package execctx provides the per-workflow execution context, the only
// sanctioned cross-job communication channel. A completed job may write keys
// (for example the canonical path of a created project) that jobs depending
// on it read later. The dependency graph, not the store, guarantees that a
// key is written before a dependent reader starts.
package execctx

import "sync"

// Well-known context keys written by backend executors.
const (
	ActiveProjectKey = "active_project"
	RunDirKey        = "run_dir"
	TempDirKey       = "temp_dir"
	FramesDirKey     = "frames_dir"
)

// Context is a mutex-guarded key-value store scoped to one workflow
// execution. Access is synchronized because jobs may run on worker
// goroutines and callbacks may read concurrently.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

func New() *Context {
	return &Context{values: make(map[string]any)}
}

func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = value
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]

	return v, ok
}

// GetString returns the value for key when it is a string, or "" otherwise.
func (c *Context) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

// Snapshot returns a copy of the current contents, safe to hand to callbacks
// and reports without further synchronization.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}

	return out
}
