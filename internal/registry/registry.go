// Package registry tracks the remote tasks currently in flight.
//
// The Registry is the sole source of truth for which task identifiers are
// polled and routed. It notifies an ActivityListener when it transitions
// between empty and non-empty so the poll scheduler runs exactly while work
// is outstanding.
package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"storyflow/internal/task"
)

// ActivityListener is told when the registry gains its first task or loses
// its last one. Calls happen while the registry lock is held and must not
// block or call back into the registry.
type ActivityListener interface {
	Activate()
	Deactivate()
}

// DuplicateTaskError reports a registration for an identifier already tracked.
type DuplicateTaskError struct {
	TaskID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q is already registered", e.TaskID)
}

// Registry maps task identifiers to their descriptors.
type Registry struct {
	mu       sync.Mutex
	tasks    map[string]task.Descriptor
	listener ActivityListener
}

// New constructs an empty registry. listener may be nil.
func New(listener ActivityListener) *Registry {
	return &Registry{
		tasks:    make(map[string]task.Descriptor),
		listener: listener,
	}
}

// Register begins tracking the descriptor.
func (r *Registry) Register(d task.Descriptor) error {
	if strings.TrimSpace(d.TaskID) == "" {
		return fmt.Errorf("register task: empty task id")
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("register task %q: invalid kind %d", d.TaskID, d.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[d.TaskID]; exists {
		return &DuplicateTaskError{TaskID: d.TaskID}
	}
	r.tasks[d.TaskID] = d
	if len(r.tasks) == 1 && r.listener != nil {
		r.listener.Activate()
	}
	return nil
}

// Unregister stops tracking taskID. Removing an unknown id is a no-op.
func (r *Registry) Unregister(taskID string) (task.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.tasks[taskID]
	if !ok {
		return task.Descriptor{}, false
	}
	delete(r.tasks, taskID)
	if len(r.tasks) == 0 && r.listener != nil {
		r.listener.Deactivate()
	}
	return d, true
}

// Lookup returns the descriptor for taskID.
func (r *Registry) Lookup(taskID string) (task.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.tasks[taskID]
	return d, ok
}

// Snapshot returns the tracked identifiers in sorted order. The slice is a
// copy and later mutations do not affect it.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Descriptors returns a copy of every tracked descriptor ordered by
// registration time, then id.
func (r *Registry) Descriptors() []task.Descriptor {
	r.mu.Lock()
	out := make([]task.Descriptor, 0, len(r.tasks))
	for _, d := range r.tasks {
		out = append(out, d)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b task.Descriptor) int {
		if c := a.RegisteredAt.Compare(b.RegisteredAt); c != 0 {
			return c
		}
		return strings.Compare(a.TaskID, b.TaskID)
	})
	return out
}

// Len reports how many tasks are tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
