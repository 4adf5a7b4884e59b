package playback

import (
	"fmt"
	"slices"

	"github.com/tmdojo/viewer/pkg/core"
)

// Registry is the ordered set of loaded traces. It is not safe for
// concurrent use; the session serializes access between ticks.
type Registry struct {
	order  []core.TraceID
	traces map[core.TraceID]*core.Trace
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{traces: make(map[core.TraceID]*core.Trace)}
}

// Add registers tr. Traces without samples or with an id that is already
// loaded are rejected.
func (r *Registry) Add(tr *core.Trace) error {
	if tr == nil || tr.Len() == 0 {
		id := core.TraceID("")
		if tr != nil {
			id = tr.Meta.ID
		}
		return fmt.Errorf("add trace %q: %w", id, ErrEmptyTrace)
	}
	id := tr.Meta.ID
	if _, ok := r.traces[id]; ok {
		return fmt.Errorf("add trace %q: %w", id, ErrDuplicateTrace)
	}
	r.traces[id] = tr
	r.order = append(r.order, id)
	return nil
}

// Remove unloads the trace with the given id and reports whether it was
// present.
func (r *Registry) Remove(id core.TraceID) bool {
	if _, ok := r.traces[id]; !ok {
		return false
	}
	delete(r.traces, id)
	r.order = slices.DeleteFunc(r.order, func(o core.TraceID) bool { return o == id })
	return true
}

// RemoveAll unloads every trace.
func (r *Registry) RemoveAll() {
	r.order = nil
	clear(r.traces)
}

// Get returns the trace with the given id.
func (r *Registry) Get(id core.TraceID) (*core.Trace, bool) {
	tr, ok := r.traces[id]
	return tr, ok
}

// Has reports whether id is loaded.
func (r *Registry) Has(id core.TraceID) bool {
	_, ok := r.traces[id]
	return ok
}

// List returns the loaded traces in load order.
func (r *Registry) List() []*core.Trace {
	out := make([]*core.Trace, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.traces[id])
	}
	return out
}

// Len returns the number of loaded traces.
func (r *Registry) Len() int {
	return len(r.order)
}

// MaxEndTimeMs returns the largest last-sample time over all loaded traces,
// or 0 when nothing is loaded.
func (r *Registry) MaxEndTimeMs() float64 {
	var maxEnd int32
	for _, tr := range r.traces {
		if end := tr.EndTimeMs(); end > maxEnd {
			maxEnd = end
		}
	}
	return float64(maxEnd)
}
