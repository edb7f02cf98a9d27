// Package dataset holds the canonical, tool-independent representation of
// coupled-mode frequency/damping tracks and their modal participation
// decomposition. It is the only artifact exposed to consumers of the
// ingestion pipeline.
package dataset

import (
	"fmt"
	"sort"

	"github.com/campbellstack/campbell-engine/internal/models"
	"github.com/campbellstack/campbell-engine/internal/utils"
)

// Absent is the sentinel for "this mode did not exist/converge at this
// operating point". It is part of the data model; callers must check
// Grid.Present before doing arithmetic on an entry.
const Absent = -1.0

// Dataset aggregates the normalized linearization results of one tool run.
// It is created empty, populated in stages (operating points, coupled-mode
// tracks, participation data) and treated as immutable by consumers except
// for RemoveModes.
type Dataset struct {
	Tool models.ToolFamily
	Name string

	// Frequency and damping are (operating point x mode). Realpart is only
	// present for aeroelastic analyses.
	Frequency *Grid
	Damping   *Grid
	Realpart  *Grid

	// Participation factors are (operating point x participation mode x mode).
	ParticipationAmp   *Cube
	ParticipationPhase *Cube

	// OperatingPoints is (operating point x operating parameter), with
	// OperatingParams naming the columns. The parameter set is tool and
	// version dependent.
	OperatingPoints [][]float64
	OperatingParams []string

	Modes              []models.Mode
	ParticipationModes []models.Mode

	// Attrs carries free-form metadata: source file paths, tool version,
	// ingestion timestamp.
	Attrs map[string]string
}

// New creates an empty dataset stamped with its creation time.
func New(tool models.ToolFamily, name string) *Dataset {
	return &Dataset{
		Tool: tool,
		Name: name,
		Attrs: map[string]string{
			"timestamp": utils.Timestamp(),
		},
	}
}

// NumModes returns the length of the coupled-mode axis.
func (d *Dataset) NumModes() int {
	return len(d.Modes)
}

// NumOperatingPoints returns the length of the operating-point axis, taken
// from whichever array has been populated.
func (d *Dataset) NumOperatingPoints() int {
	if d.Frequency != nil {
		return d.Frequency.Ops
	}
	return len(d.OperatingPoints)
}

// Array resolves a named array accessor for the persistence/GUI interface.
// Grids and operating points come back as rows; cubes as (op x part x mode).
func (d *Dataset) Array(name string) (any, error) {
	switch name {
	case "frequency":
		return d.Frequency.rowsOrNil(), nil
	case "damping":
		return d.Damping.rowsOrNil(), nil
	case "realpart":
		return d.Realpart.rowsOrNil(), nil
	case "participation_factors_amp":
		return d.ParticipationAmp.nestedOrNil(), nil
	case "participation_factors_phase":
		return d.ParticipationPhase.nestedOrNil(), nil
	case "operating_points":
		return d.OperatingPoints, nil
	default:
		return nil, fmt.Errorf("unknown array %q", name)
	}
}

// RemoveModes drops the given mode IDs from every mode-indexed array and
// shifts the remaining indices down.
func (d *Dataset) RemoveModes(ids []int) error {
	for _, id := range ids {
		if id < 0 || id >= len(d.Modes) {
			return fmt.Errorf("mode ID %d out of range [0, %d)", id, len(d.Modes))
		}
	}

	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := make([]models.Mode, 0, len(d.Modes)-len(drop))
	keptIdx := make([]int, 0, len(d.Modes)-len(drop))
	for i, mode := range d.Modes {
		if !drop[i] {
			kept = append(kept, mode)
			keptIdx = append(keptIdx, i)
		}
	}
	d.Modes = kept

	d.Frequency = d.Frequency.selectModes(keptIdx)
	d.Damping = d.Damping.selectModes(keptIdx)
	d.Realpart = d.Realpart.selectModes(keptIdx)
	d.ParticipationAmp = d.ParticipationAmp.selectModes(keptIdx)
	d.ParticipationPhase = d.ParticipationPhase.selectModes(keptIdx)
	return nil
}

// SortedModeIDs returns ids sorted ascending, for deterministic removal.
func SortedModeIDs(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
