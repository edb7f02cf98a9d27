package dataset

import (
	"testing"

	"github.com/campbellstack/campbell-engine/internal/models"
)

func TestGridUsedOperatingPoints(t *testing.T) {
	grid, err := GridFromRows([][]float64{
		{1.0, Absent},
		{1.1, 2.0},
	})
	if err != nil {
		t.Fatalf("build grid: %v", err)
	}

	used := grid.UsedOperatingPoints(1)
	if len(used) != 1 || used[0] != 1 {
		t.Fatalf("used operating points for mode 1 = %v, want [1]", used)
	}
	used = grid.UsedOperatingPoints(0)
	if len(used) != 2 {
		t.Fatalf("used operating points for mode 0 = %v, want both", used)
	}
}

func TestGridFromRowsRejectsRagged(t *testing.T) {
	if _, err := GridFromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestCubeAddPlanePreservesData(t *testing.T) {
	cube := NewCube(2, 3)
	first := cube.AddPlane()
	cube.Set(1, first, 2, 0.453)

	second := cube.AddPlane()
	if second != 1 {
		t.Fatalf("second plane index = %d, want 1", second)
	}
	if got := cube.At(1, first, 2); got != 0.453 {
		t.Fatalf("value moved after AddPlane: got %f", got)
	}
	for op := 0; op < 2; op++ {
		for mode := 0; mode < 3; mode++ {
			if cube.At(op, second, mode) != 0 {
				t.Fatalf("new plane not zero-filled at (%d,%d)", op, mode)
			}
		}
	}
}

func TestRemoveModes(t *testing.T) {
	d := New(models.ToolHawcStab2, "run")
	d.Modes = []models.Mode{models.NewMode("Tower FA"), models.NewMode("BW flap"), models.NewMode("FW flap")}
	d.Frequency, _ = GridFromRows([][]float64{{0.25, 0.62, 0.68}, {0.26, 0.63, 0.69}})
	d.Damping, _ = GridFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})

	d.ParticipationAmp = NewCube(2, 3)
	plane := d.ParticipationAmp.AddPlane()
	d.ParticipationAmp.Set(0, plane, 2, 0.9)

	if err := d.RemoveModes([]int{1}); err != nil {
		t.Fatalf("remove modes: %v", err)
	}

	if len(d.Modes) != 2 || d.Modes[1].Name != "FW flap" {
		t.Fatalf("modes after removal: %+v", d.Modes)
	}
	if d.Frequency.Modes != 2 || d.Frequency.At(0, 1) != 0.68 {
		t.Fatalf("frequency not shifted: %v", d.Frequency.Rows())
	}
	if d.ParticipationAmp.At(0, plane, 1) != 0.9 {
		t.Fatal("participation values not shifted with mode axis")
	}

	if err := d.RemoveModes([]int{5}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestDatasetArrayAccessors(t *testing.T) {
	d := New(models.ToolBladedLin, "run")
	d.Frequency, _ = GridFromRows([][]float64{{1, 2}})

	if _, err := d.Array("frequency"); err != nil {
		t.Fatalf("frequency accessor: %v", err)
	}
	if arr, err := d.Array("realpart"); err != nil || arr.([][]float64) != nil {
		t.Fatalf("unpopulated realpart should be nil, got %v (%v)", arr, err)
	}
	if _, err := d.Array("bogus"); err == nil {
		t.Fatal("expected error for unknown array name")
	}
}
