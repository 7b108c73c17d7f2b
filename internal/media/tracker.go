package media

import (
	"log"
	"os"
)

// Tracker records every intermediate file created during one generation
// request so they can all be removed when the request finishes or fails.
// A tracker belongs to exactly one pipeline run and is never shared across
// concurrent requests, so it needs no locking.
type Tracker struct {
	paths []string
	kept  map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{kept: make(map[string]bool)}
}

// Register adds a path to the cleanup set. Call before the stage that
// produces the file runs, so a failure mid-stage still yields full cleanup.
func (t *Tracker) Register(path string) {
	t.paths = append(t.paths, path)
}

// Keep excludes a path from cleanup. Used for the final deliverable once
// the pipeline succeeds.
func (t *Tracker) Keep(path string) {
	t.kept[path] = true
}

// Cleanup removes every registered file that was not kept. Removal failures
// are logged and never propagated, so cleanup can never mask the pipeline's
// original error.
func (t *Tracker) Cleanup() {
	for _, path := range t.paths {
		if t.kept[path] {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[Tracker] failed to remove temp artifact %s: %v", path, err)
		}
	}
	t.paths = nil
}
