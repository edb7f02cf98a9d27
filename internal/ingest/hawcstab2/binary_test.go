package hawcstab2

import (
	"encoding/binary"
	"math"
	"testing"
)

type streamBuilder struct {
	buf []byte
}

func (b *streamBuilder) frame(payload []byte) {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	b.buf = append(b.buf, length[:]...)
	b.buf = append(b.buf, payload...)
	b.buf = append(b.buf, length[:]...)
}

func (b *streamBuilder) ints(vals ...int32) {
	payload := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(payload[i*4:], uint32(v))
	}
	b.frame(payload)
}

func (b *streamBuilder) floats32(vals ...float32) {
	payload := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	b.frame(payload)
}

func (b *streamBuilder) floats64(vals ...float64) {
	payload := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
	}
	b.frame(payload)
}

// buildStream synthesizes a minimal stream: two single-body substructures
// with one element each, one mode, one step.
func buildStream(t *testing.T) []byte {
	t.Helper()
	b := &streamBuilder{}

	b.ints(2) // substructures
	for i := 0; i < 2; i++ {
		b.ints(1)            // bodies
		b.ints(1)            // elements
		b.floats64(1.5)      // arc position
	}

	b.ints(1, 1) // modes, steps

	b.floats64(0) // dummy
	b.floats64(10.0, -0.1, 5000.0)

	// substructures 0 and 1: one ua0 vector of 2*6*2 = 24 values each
	vec := make([]float64, 24)
	for i := range vec {
		vec[i] = float64(i)
	}
	b.floats64(vec...)
	b.floats64(vec...)

	return b.buf
}

func TestDecodeBin(t *testing.T) {
	turbine, err := DecodeBin(buildStream(t))
	if err != nil {
		t.Fatalf("DecodeBin: %v", err)
	}

	if len(turbine.Substructures) != 2 {
		t.Fatalf("got %d substructures, want 2", len(turbine.Substructures))
	}
	if turbine.NumModes != 1 || turbine.NumSteps != 1 {
		t.Fatalf("got modes=%d steps=%d, want 1/1", turbine.NumModes, turbine.NumSteps)
	}
	if got := turbine.Substructures[0].Bodies[0].ArcPositions[0]; got != 1.5 {
		t.Errorf("arc position = %v, want 1.5", got)
	}

	cond := turbine.OperatingConditions[0]
	if cond[0] != 10.0 || cond[2] != 5000.0 {
		t.Errorf("operating conditions = %v", cond)
	}
	wantPitch := 0.1 * 180 / math.Pi
	if math.Abs(cond[1]-wantPitch) > 1e-12 {
		t.Errorf("pitch = %v, want %v degrees", cond[1], wantPitch)
	}

	shape := turbine.Substructures[0].States[0].Bodies[0].Modes[0]
	if len(shape.UA0) != 12 {
		t.Fatalf("ua0 has %d rows, want 12", len(shape.UA0))
	}
	// values are negated and reshaped into (first half, second half) pairs
	if shape.UA0[0] != [2]float64{0, -12} {
		t.Errorf("ua0[0] = %v, want [0 -12]", shape.UA0[0])
	}
	if shape.UA0[11] != [2]float64{-11, -23} {
		t.Errorf("ua0[11] = %v, want [-11 -23]", shape.UA0[11])
	}
	if shape.UA1 != nil || shape.UB1 != nil {
		t.Errorf("single-blade substructure must not carry ua1/ub1")
	}
}

func TestDecodeBinMixedWidths(t *testing.T) {
	// 32-bit floats for arc positions must decode the same as 64-bit ones.
	b := &streamBuilder{}
	b.ints(1)
	b.ints(1)
	b.ints(1)
	b.floats32(2.5)
	b.ints(0, 0)

	turbine, err := DecodeBin(b.buf)
	if err != nil {
		t.Fatalf("DecodeBin: %v", err)
	}
	if got := turbine.Substructures[0].Bodies[0].ArcPositions[0]; got != 2.5 {
		t.Errorf("arc position = %v, want 2.5", got)
	}
}

func TestDecodeBinTrailerMismatch(t *testing.T) {
	b := &streamBuilder{}
	b.ints(1)
	b.buf[len(b.buf)-4]++ // corrupt the trailer

	if _, err := DecodeBin(b.buf); err == nil {
		t.Fatal("expected trailer mismatch error")
	}
}

func TestDecodeBinWidthMismatch(t *testing.T) {
	b := &streamBuilder{}
	// 6-byte record claiming 1 element: width 6 is not valid
	payload := make([]byte, 6)
	b.frame(payload)

	if _, err := DecodeBin(b.buf); err == nil {
		t.Fatal("expected element width error")
	}
}

func TestDecodeBinTruncated(t *testing.T) {
	b := &streamBuilder{}
	b.ints(1)

	if _, err := DecodeBin(b.buf[:len(b.buf)-6]); err == nil {
		t.Fatal("expected truncation error")
	}
}
