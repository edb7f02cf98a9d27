package dataset

import "fmt"

// Cube is a (operating point x participation mode x mode) float64 array whose
// participation-mode axis grows as names are discovered. It is stored as an
// arena of dense (op x mode) planes, one per participation mode: appending a
// plane never moves previously written data, so growth is O(ops*modes) per
// distinct new name instead of a re-pad of the full buffer.
type Cube struct {
	Ops    int
	Modes  int
	planes [][]float64
}

// NewCube allocates a cube with zero participation modes.
func NewCube(ops, modes int) *Cube {
	return &Cube{Ops: ops, Modes: modes}
}

// CubeFromRaw adopts a flat plane-major buffer of parts*ops*modes values.
func CubeFromRaw(ops, modes, parts int, data []float64) (*Cube, error) {
	if len(data) != parts*ops*modes {
		return nil, fmt.Errorf("cube buffer has %d values, %dx%dx%d wants %d",
			len(data), ops, parts, modes, parts*ops*modes)
	}
	c := NewCube(ops, modes)
	for p := 0; p < parts; p++ {
		c.planes = append(c.planes, data[p*ops*modes:(p+1)*ops*modes])
	}
	return c, nil
}

// Planes returns the number of participation modes.
func (c *Cube) Planes() int {
	return len(c.planes)
}

// AddPlane appends an all-zero plane along the participation-mode axis and
// returns its index.
func (c *Cube) AddPlane() int {
	c.planes = append(c.planes, make([]float64, c.Ops*c.Modes))
	return len(c.planes) - 1
}

// At returns the value at (op, participation mode, mode).
func (c *Cube) At(op, part, mode int) float64 {
	return c.planes[part][op*c.Modes+mode]
}

// Set writes the value at (op, participation mode, mode).
func (c *Cube) Set(op, part, mode int, v float64) {
	c.planes[part][op*c.Modes+mode] = v
}

// Plane exposes the backing buffer of one participation mode (row-major
// op x mode) for serialization.
func (c *Cube) Plane(part int) []float64 {
	return c.planes[part]
}

// Nested returns the cube as [op][part][mode] slices.
func (c *Cube) Nested() [][][]float64 {
	out := make([][][]float64, c.Ops)
	for op := 0; op < c.Ops; op++ {
		out[op] = make([][]float64, len(c.planes))
		for part := range c.planes {
			out[op][part] = c.planes[part][op*c.Modes : (op+1)*c.Modes]
		}
	}
	return out
}

func (c *Cube) nestedOrNil() [][][]float64 {
	if c == nil {
		return nil
	}
	return c.Nested()
}

// selectModes returns a new cube containing only the given mode columns.
// A nil cube stays nil.
func (c *Cube) selectModes(modes []int) *Cube {
	if c == nil {
		return nil
	}
	out := NewCube(c.Ops, len(modes))
	for range c.planes {
		out.AddPlane()
	}
	for part := range c.planes {
		for op := 0; op < c.Ops; op++ {
			for j, mode := range modes {
				out.Set(op, part, j, c.At(op, part, mode))
			}
		}
	}
	return out
}
