package dataset

import "fmt"

// Grid is a dense (operating point x mode) float64 array. Entries may carry
// the Absent sentinel.
type Grid struct {
	Ops   int
	Modes int
	data  []float64
}

// NewGrid allocates an Ops x Modes grid filled with zeros.
func NewGrid(ops, modes int) *Grid {
	return &Grid{Ops: ops, Modes: modes, data: make([]float64, ops*modes)}
}

// GridFromRows builds a grid from row-major rows. Rows must be rectangular.
func GridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	modes := len(rows[0])
	g := NewGrid(len(rows), modes)
	for i, row := range rows {
		if len(row) != modes {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), modes)
		}
		copy(g.data[i*modes:], row)
	}
	return g, nil
}

// GridFromRaw adopts a flat row-major buffer of ops*modes values.
func GridFromRaw(ops, modes int, data []float64) (*Grid, error) {
	if len(data) != ops*modes {
		return nil, fmt.Errorf("grid buffer has %d values, %dx%d wants %d", len(data), ops, modes, ops*modes)
	}
	return &Grid{Ops: ops, Modes: modes, data: data}, nil
}

// At returns the value at (op, mode).
func (g *Grid) At(op, mode int) float64 {
	return g.data[op*g.Modes+mode]
}

// Set writes the value at (op, mode).
func (g *Grid) Set(op, mode int, v float64) {
	g.data[op*g.Modes+mode] = v
}

// Present reports whether the mode converged at the operating point, i.e.
// the entry does not carry the Absent sentinel.
func (g *Grid) Present(op, mode int) bool {
	return g.At(op, mode) != Absent
}

// UsedOperatingPoints returns the indices of operating points at which the
// mode converged.
func (g *Grid) UsedOperatingPoints(mode int) []int {
	used := make([]int, 0, g.Ops)
	for op := 0; op < g.Ops; op++ {
		if g.Present(op, mode) {
			used = append(used, op)
		}
	}
	return used
}

// Column returns a copy of one mode track.
func (g *Grid) Column(mode int) []float64 {
	col := make([]float64, g.Ops)
	for op := 0; op < g.Ops; op++ {
		col[op] = g.At(op, mode)
	}
	return col
}

// Rows returns the grid as row slices (views into the backing array).
func (g *Grid) Rows() [][]float64 {
	rows := make([][]float64, g.Ops)
	for op := 0; op < g.Ops; op++ {
		rows[op] = g.data[op*g.Modes : (op+1)*g.Modes]
	}
	return rows
}

// Raw exposes the backing row-major buffer for serialization.
func (g *Grid) Raw() []float64 {
	return g.data
}

func (g *Grid) rowsOrNil() [][]float64 {
	if g == nil {
		return nil
	}
	return g.Rows()
}

// selectModes returns a new grid containing only the given mode columns, in
// order. A nil grid stays nil.
func (g *Grid) selectModes(modes []int) *Grid {
	if g == nil {
		return nil
	}
	out := NewGrid(g.Ops, len(modes))
	for op := 0; op < g.Ops; op++ {
		for j, mode := range modes {
			out.Set(op, j, g.At(op, mode))
		}
	}
	return out
}
