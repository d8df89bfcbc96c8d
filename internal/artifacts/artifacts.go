// Package artifacts tracks intermediate files created while a run is in
// flight so they can be swept on abort instead of littering the downloads
// directory.
package artifacts

import (
	"errors"
	"log/slog"
	"os"
	"sync"

	"vodgrab/internal/entity"
)

// Registry tracks intermediate file paths by role. Merged outputs are
// deregistered as items complete; whatever remains at sweep time is the
// debris of an interrupted run.
type Registry struct {
	log *slog.Logger

	mu    sync.Mutex
	paths map[string]entity.ArtifactRole
}

// New creates an empty artifact registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		log:   log.With(slog.String("package", "artifacts")),
		paths: make(map[string]entity.ArtifactRole),
	}
}

// Register tracks path as an intermediate file.
func (r *Registry) Register(path string, role entity.ArtifactRole) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths[path] = role
}

// Deregister stops tracking path, typically because the file was consumed
// by a successful merge.
func (r *Registry) Deregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.paths, path)
}

// Registered reports whether path is currently tracked.
func (r *Registry) Registered(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.paths[path]

	return ok
}

// Paths returns the currently tracked paths.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.paths))
	for p := range r.paths {
		out = append(out, p)
	}

	return out
}

// Sweep removes all tracked files from disk and clears the registry.
// Missing files are fine; anything else is logged and skipped.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, role := range r.paths {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("failed to remove artifact", "path", path, "role", string(role), "error", err)

			continue
		}

		r.log.Debug("removed artifact", "path", path, "role", string(role))
	}

	r.paths = make(map[string]entity.ArtifactRole)
}
