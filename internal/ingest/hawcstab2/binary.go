package hawcstab2

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// numDOF is the number of degrees of freedom per node: u_x, u_y, u_z,
// theta_x, theta_y, theta_z.
const numDOF = 6

// Turbine is the decoded content of a HAWCStab2 binary mode-shape stream:
// substructures with their body discretisation, plus per-step per-mode
// displacement shapes.
type Turbine struct {
	Substructures []Substructure
	NumModes      int
	NumSteps      int

	// OperatingConditions holds one (wind speed, pitch [deg], power) triple
	// per step. Pitch is sign-flipped and converted from radians on decode.
	OperatingConditions [][3]float64
}

// Substructure groups the bodies of one turbine component and their decoded
// state per operating step.
type Substructure struct {
	Bodies []Body
	States []State
}

// Body carries the arc-length positions of the end nodes of each element.
type Body struct {
	ArcPositions []float64
}

// NumElements returns the element count of the body.
func (b Body) NumElements() int {
	return len(b.ArcPositions)
}

// State holds per-body mode shapes at one operating step.
type State struct {
	Bodies []BodyModes
}

// BodyModes holds the mode shapes of one body.
type BodyModes struct {
	Modes []ModeShape
}

// ModeShape carries displacement vectors as (6*(elements+1)) x 2 arrays.
// UA1/UB1 are only present for three-bladed substructures.
type ModeShape struct {
	UA0 [][2]float64
	UA1 [][2]float64
	UB1 [][2]float64
}

// elemKind declares the expected element type of a binary record.
type elemKind int

const (
	kindInt elemKind = iota
	kindFloat
)

// streamDecoder walks a Fortran unformatted sequential stream: every record
// is framed by a 4-byte length field and a matching 4-byte trailer. The
// element width must reconcile with the declared count; a mismatch is a hard
// parse error, never a silently guessed dtype.
type streamDecoder struct {
	buf []byte
	off int
}

func (s *streamDecoder) uint32At(off int) (uint32, error) {
	if off+4 > len(s.buf) {
		return 0, fmt.Errorf("record frame at offset %d runs past buffer end (%d bytes)", off, len(s.buf))
	}
	return binary.LittleEndian.Uint32(s.buf[off : off+4]), nil
}

// record reads one framed record of count elements of the given kind and
// returns them as float64 values (integers widened losslessly).
func (s *streamDecoder) record(kind elemKind, count int) ([]float64, error) {
	length32, err := s.uint32At(s.off)
	if err != nil {
		return nil, err
	}
	length := int(length32)
	s.off += 4

	if count <= 0 {
		return nil, fmt.Errorf("record at offset %d: element count %d invalid", s.off-4, count)
	}
	if length%count != 0 {
		return nil, fmt.Errorf("record at offset %d: %d bytes not divisible by %d elements", s.off-4, length, count)
	}
	width := length / count
	switch width {
	case 4, 8:
	case 16:
		return nil, fmt.Errorf("record at offset %d: 128-bit elements are not supported", s.off-4)
	default:
		return nil, fmt.Errorf("record at offset %d: inferred element width %d, want 4, 8 or 16", s.off-4, width)
	}
	if s.off+length+4 > len(s.buf) {
		return nil, fmt.Errorf("record at offset %d: %d payload bytes run past buffer end", s.off-4, length)
	}

	out := make([]float64, count)
	for i := 0; i < count; i++ {
		chunk := s.buf[s.off+i*width : s.off+(i+1)*width]
		switch {
		case kind == kindInt && width == 4:
			out[i] = float64(int32(binary.LittleEndian.Uint32(chunk)))
		case kind == kindInt && width == 8:
			out[i] = float64(int64(binary.LittleEndian.Uint64(chunk)))
		case kind == kindFloat && width == 4:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		case kind == kindFloat && width == 8:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk))
		}
	}
	s.off += length

	trailer, err := s.uint32At(s.off)
	if err != nil {
		return nil, err
	}
	if int(trailer) != length {
		return nil, fmt.Errorf("record at offset %d: trailer %d does not match length %d", s.off, trailer, length)
	}
	s.off += 4
	return out, nil
}

func (s *streamDecoder) intScalar() (int, error) {
	v, err := s.record(kindInt, 1)
	if err != nil {
		return 0, err
	}
	return int(v[0]), nil
}

func (s *streamDecoder) floatScalar() (float64, error) {
	v, err := s.record(kindFloat, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadBinFile reads and decodes a mode-shape stream. The file is read fully
// into memory before decoding; the record reads are strictly sequential.
func ReadBinFile(path string) (*Turbine, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bin file: %w", err)
	}
	return DecodeBin(buf)
}

// DecodeBin decodes the self-describing binary mode-shape stream.
//
// Layout: substructure count; per substructure a body count; per body an
// element count followed by that many scalar arc positions. Then a
// (mode count, step count) pair and per step: one dummy scalar, a 3-vector
// of operating conditions, and the displacement vectors: one per mode per
// body for the first two substructures, three (ua0, ua1, ub1) per mode per
// body for the remaining three-bladed substructures.
func DecodeBin(buf []byte) (*Turbine, error) {
	dec := &streamDecoder{buf: buf}
	turbine := &Turbine{}

	numSubs, err := dec.intScalar()
	if err != nil {
		return nil, fmt.Errorf("substructure count: %w", err)
	}
	for isub := 0; isub < numSubs; isub++ {
		var sub Substructure
		numBodies, err := dec.intScalar()
		if err != nil {
			return nil, fmt.Errorf("substructure %d body count: %w", isub, err)
		}
		for ibody := 0; ibody < numBodies; ibody++ {
			numElements, err := dec.intScalar()
			if err != nil {
				return nil, fmt.Errorf("substructure %d body %d element count: %w", isub, ibody, err)
			}
			body := Body{ArcPositions: make([]float64, numElements)}
			for iele := range body.ArcPositions {
				pos, err := dec.floatScalar()
				if err != nil {
					return nil, fmt.Errorf("substructure %d body %d arc position %d: %w", isub, ibody, iele, err)
				}
				body.ArcPositions[iele] = pos
			}
			sub.Bodies = append(sub.Bodies, body)
		}
		turbine.Substructures = append(turbine.Substructures, sub)
	}

	info, err := dec.record(kindInt, 2)
	if err != nil {
		return nil, fmt.Errorf("mode/step counts: %w", err)
	}
	turbine.NumModes = int(info[0])
	turbine.NumSteps = int(info[1])

	turbine.OperatingConditions = make([][3]float64, turbine.NumSteps)
	for istep := 0; istep < turbine.NumSteps; istep++ {
		if _, err := dec.floatScalar(); err != nil {
			return nil, fmt.Errorf("step %d time scalar: %w", istep, err)
		}
		cond, err := dec.record(kindFloat, 3)
		if err != nil {
			return nil, fmt.Errorf("step %d operating conditions: %w", istep, err)
		}
		copy(turbine.OperatingConditions[istep][:], cond)

		for isub := range turbine.Substructures {
			sub := &turbine.Substructures[isub]
			state := State{Bodies: make([]BodyModes, len(sub.Bodies))}

			threeBladed := isub >= 2
			for imode := 0; imode < turbine.NumModes; imode++ {
				for ibody := range sub.Bodies {
					numElements := sub.Bodies[ibody].NumElements()
					shape := ModeShape{}
					if shape.UA0, err = dec.displacement(numElements); err != nil {
						return nil, fmt.Errorf("step %d substructure %d body %d mode %d ua0: %w", istep, isub, ibody, imode, err)
					}
					if threeBladed {
						if shape.UA1, err = dec.displacement(numElements); err != nil {
							return nil, fmt.Errorf("step %d substructure %d body %d mode %d ua1: %w", istep, isub, ibody, imode, err)
						}
						if shape.UB1, err = dec.displacement(numElements); err != nil {
							return nil, fmt.Errorf("step %d substructure %d body %d mode %d ub1: %w", istep, isub, ibody, imode, err)
						}
					}
					state.Bodies[ibody].Modes = append(state.Bodies[ibody].Modes, shape)
				}
			}
			sub.States = append(sub.States, state)
		}
	}

	// Pitch sign convention of the source tool, converted to degrees.
	for i := range turbine.OperatingConditions {
		turbine.OperatingConditions[i][1] = -turbine.OperatingConditions[i][1] * 180 / math.Pi
	}
	return turbine, nil
}

// displacement reads one 2*6*(elements+1) displacement vector, negates it
// (sign convention of the source tool) and reshapes it to rows of
// (real, imag) pairs.
func (s *streamDecoder) displacement(numElements int) ([][2]float64, error) {
	count := 2 * numDOF * (numElements + 1)
	data, err := s.record(kindFloat, count)
	if err != nil {
		return nil, err
	}
	half := count / 2
	out := make([][2]float64, half)
	for i := 0; i < half; i++ {
		out[i][0] = -data[i]
		out[i][1] = -data[half+i]
	}
	return out, nil
}
