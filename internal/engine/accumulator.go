package engine

import (
	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
)

// Accumulator grows the participation-mode axis of a dataset lazily. Names
// are registered in first-seen order; registering a new name appends one zero
// plane to both participation cubes without touching already written values.
type Accumulator struct {
	d       *dataset.Dataset
	indexOf map[string]int
}

// NewAccumulator wraps a dataset whose participation cubes are already
// allocated with ops x modes extents. Existing participation modes are
// adopted into the registry.
func NewAccumulator(d *dataset.Dataset) *Accumulator {
	a := &Accumulator{d: d, indexOf: make(map[string]int, len(d.ParticipationModes))}
	for i, m := range d.ParticipationModes {
		a.indexOf[m.Name] = i
	}
	return a
}

// RegisterOrGet returns the plane index for the given participation-mode
// name, creating it on first sight.
func (a *Accumulator) RegisterOrGet(name string) int {
	if idx, ok := a.indexOf[name]; ok {
		return idx
	}
	idx := len(a.d.ParticipationModes)
	a.indexOf[name] = idx
	a.d.ParticipationModes = append(a.d.ParticipationModes, models.NewMode(name))
	a.d.ParticipationAmp.AddPlane()
	a.d.ParticipationPhase.AddPlane()
	return idx
}

// Names returns the registered participation-mode names in axis order.
func (a *Accumulator) Names() []string {
	names := make([]string, len(a.d.ParticipationModes))
	for i, m := range a.d.ParticipationModes {
		names[i] = m.Name
	}
	return names
}
