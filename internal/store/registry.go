// Package store keeps the named datasets of a running engine and round-trips
// them through a SQLite database. Datasets enter the registry only once their
// ingestion is finished; afterwards they are read-mostly, with mode removal
// as the single mutating operation, all under the registry lock.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
)

// Entry identifies one dataset in the registry.
type Entry struct {
	Tool models.ToolFamily `json:"tool"`
	Name string            `json:"name"`
}

// Registry is a concurrency-safe map of tool family to named datasets.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	byTool map[models.ToolFamily]map[string]*dataset.Dataset
}

// NewRegistry constructs an empty registry; logger may be nil.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		byTool: make(map[models.ToolFamily]map[string]*dataset.Dataset),
	}
}

// Add registers a dataset under its tool and name. A name already in use for
// the tool is disambiguated, and the dataset renamed accordingly. The final
// name is returned.
func (r *Registry) Add(d *dataset.Dataset) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.byTool[d.Tool]
	if byName == nil {
		byName = make(map[string]*dataset.Dataset)
		r.byTool[d.Tool] = byName
	}
	if _, taken := byName[d.Name]; taken {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		renamed := models.UniqueName(d.Name, names)
		r.logger.Warn("dataset name already in use, renaming",
			slog.String("tool", string(d.Tool)), slog.String("name", d.Name), slog.String("renamed", renamed))
		d.Name = renamed
	}
	byName[d.Name] = d
	return d.Name
}

// Get returns the dataset registered under (tool, name).
func (r *Registry) Get(tool models.ToolFamily, name string) (*dataset.Dataset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byTool[tool][name]
	return d, ok
}

// Remove drops one dataset. It reports whether anything was removed.
func (r *Registry) Remove(tool models.ToolFamily, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTool[tool][name]; !ok {
		return false
	}
	delete(r.byTool[tool], name)
	if len(r.byTool[tool]) == 0 {
		delete(r.byTool, tool)
	}
	return true
}

// RemoveModes drops the given mode columns from a registered dataset.
func (r *Registry) RemoveModes(tool models.ToolFamily, name string, ids []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byTool[tool][name]
	if !ok {
		return fmt.Errorf("dataset %s/%s not registered", tool, name)
	}
	return d.RemoveModes(ids)
}

// List returns all entries ordered by tool, then name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for tool, byName := range r.byTool {
		for name := range byName {
			out = append(out, Entry{Tool: tool, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tool != out[j].Tool {
			return out[i].Tool < out[j].Tool
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// snapshot returns the registered datasets in List order.
func (r *Registry) snapshot() []*dataset.Dataset {
	entries := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*dataset.Dataset, 0, len(entries))
	for _, e := range entries {
		if d, ok := r.byTool[e.Tool][e.Name]; ok {
			out = append(out, d)
		}
	}
	return out
}
