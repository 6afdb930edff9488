package collector

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/source"
)

// SourceInfo describes a registered adapter.
type SourceInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type entry struct {
	adapter  source.Adapter
	priority int
	seq      int
}

// Registry owns the set of active adapters and their conflict priority.
// Lower priority values win; equal priorities keep registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an adapter. Names must be unique.
func (r *Registry) Register(a source.Adapter, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.adapter.Name() == a.Name() {
			return fmt.Errorf("source %q already registered", a.Name())
		}
	}
	r.entries = append(r.entries, entry{adapter: a, priority: priority, seq: len(r.entries)})
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].priority != r.entries[j].priority {
			return r.entries[i].priority < r.entries[j].priority
		}
		return r.entries[i].seq < r.entries[j].seq
	})
	return nil
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Adapters returns every adapter in priority order.
func (r *Registry) Adapters() []source.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]source.Adapter, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.adapter
	}
	return out
}

// Priorities returns adapter names in priority order.
func (r *Registry) Priorities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.adapter.Name()
	}
	return out
}

// Infos lists the registered adapters for display.
func (r *Registry) Infos() []SourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceInfo, len(r.entries))
	for i, e := range r.entries {
		out[i] = SourceInfo{Name: e.adapter.Name(), Priority: e.priority}
	}
	return out
}

// Select returns the named adapters in priority order. No names selects all.
// Unknown names fail with ErrNoSourcesConfigured.
func (r *Registry) Select(names []string) ([]source.Adapter, error) {
	if len(names) == 0 {
		return r.Adapters(), nil
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			want[n] = struct{}{}
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []source.Adapter
	for _, e := range r.entries {
		if _, ok := want[e.adapter.Name()]; ok {
			out = append(out, e.adapter)
			delete(want, e.adapter.Name())
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: unknown sources %s", models.ErrNoSourcesConfigured, strings.Join(missing, ", "))
	}
	return out, nil
}
