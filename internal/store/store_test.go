package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
)

func sampleDataset(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	d := dataset.New(models.ToolHawcStab2, name)
	var err error
	d.Frequency, err = dataset.GridFromRows([][]float64{{1.0, dataset.Absent}, {1.1, 2.0}})
	if err != nil {
		t.Fatal(err)
	}
	d.Damping, err = dataset.GridFromRows([][]float64{{5.0, dataset.Absent}, {6.0, 7.0}})
	if err != nil {
		t.Fatal(err)
	}
	d.Modes = []models.Mode{models.NewMode("1st Tower FA"), models.NewMode("1st FW flap")}
	d.ParticipationModes = []models.Mode{models.NewMode("TWR FA")}
	d.ParticipationAmp = dataset.NewCube(2, 2)
	d.ParticipationPhase = dataset.NewCube(2, 2)
	d.ParticipationAmp.AddPlane()
	d.ParticipationPhase.AddPlane()
	d.ParticipationAmp.Set(1, 0, 0, 0.42)
	d.OperatingParams = []string{"wind speed [m/s]", "rot. speed [rpm]"}
	d.OperatingPoints = [][]float64{{4.0, 60.0}, {6.0, 120.0}}
	d.Attrs["filenamecmb"] = "/data/run.cmb"
	return d
}

func TestRegistryAddRenamesCollisions(t *testing.T) {
	reg := NewRegistry(nil)
	if got := reg.Add(sampleDataset(t, "run")); got != "run" {
		t.Fatalf("first Add = %q", got)
	}
	if got := reg.Add(sampleDataset(t, "run")); got != "run (1)" {
		t.Fatalf("second Add = %q, want rename", got)
	}
	if got := reg.Add(sampleDataset(t, "run")); got != "run (2)" {
		t.Fatalf("third Add = %q, want incremented rename", got)
	}
	if len(reg.List()) != 3 {
		t.Fatalf("registry = %v", reg.List())
	}
}

func TestRegistryRemoveModes(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Add(sampleDataset(t, "run"))

	if err := reg.RemoveModes(models.ToolHawcStab2, "run", []int{0}); err != nil {
		t.Fatalf("RemoveModes: %v", err)
	}
	d, ok := reg.Get(models.ToolHawcStab2, "run")
	if !ok {
		t.Fatal("dataset vanished")
	}
	if d.NumModes() != 1 || d.Modes[0].Name != "1st FW flap" {
		t.Fatalf("modes after removal = %v", d.Modes)
	}

	if err := reg.RemoveModes(models.ToolBladedLin, "run", []int{0}); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Add(sampleDataset(t, "run"))

	if !reg.Remove(models.ToolHawcStab2, "run") {
		t.Fatal("Remove reported nothing removed")
	}
	if reg.Remove(models.ToolHawcStab2, "run") {
		t.Fatal("second Remove reported success")
	}
	if len(reg.List()) != 0 {
		t.Fatalf("registry = %v", reg.List())
	}
}

func TestSQLStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campbell.db")
	ctx := context.Background()

	src := NewRegistry(nil)
	src.Add(sampleDataset(t, "run"))

	s := NewSQLStore(nil)
	if err := s.Save(ctx, path, src); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := NewRegistry(nil)
	loaded, diags, err := s.Load(ctx, path, dst)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(loaded) != 1 || loaded[0].Name != "run" {
		t.Fatalf("loaded = %v", loaded)
	}

	d, ok := dst.Get(models.ToolHawcStab2, "run")
	if !ok {
		t.Fatal("dataset not in registry after load")
	}
	if got := d.Frequency.At(0, 1); got != dataset.Absent {
		t.Errorf("sentinel lost: %v", got)
	}
	if got := d.Frequency.At(1, 0); got != 1.1 {
		t.Errorf("frequency(1,0) = %v", got)
	}
	if got := d.ParticipationAmp.At(1, 0, 0); math.Abs(got-0.42) > 1e-15 {
		t.Errorf("participation amp = %v", got)
	}
	if d.Modes[1].Name != "1st FW flap" || d.Modes[1].WhirlType == "" {
		t.Errorf("mode classification lost: %+v", d.Modes[1])
	}
	if d.OperatingParams[1] != "rot. speed [rpm]" || d.OperatingPoints[1][1] != 120.0 {
		t.Errorf("operating data = %v %v", d.OperatingParams, d.OperatingPoints)
	}
	if d.Attrs["filenamecmb"] != "/data/run.cmb" {
		t.Errorf("attrs = %v", d.Attrs)
	}
	if d.Attrs["database_file"] != path {
		t.Errorf("database_file attr = %q", d.Attrs["database_file"])
	}
}

func TestSQLStoreLoadRenamesCollisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campbell.db")
	ctx := context.Background()

	src := NewRegistry(nil)
	src.Add(sampleDataset(t, "run"))
	s := NewSQLStore(nil)
	if err := s.Save(ctx, path, src); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := NewRegistry(nil)
	dst.Add(sampleDataset(t, "run"))
	loaded, _, err := s.Load(ctx, path, dst)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "run (1)" {
		t.Fatalf("loaded = %v, want renamed entry", loaded)
	}
	if _, ok := dst.Get(models.ToolHawcStab2, "run (1)"); !ok {
		t.Fatal("renamed dataset not registered")
	}
}

func TestSQLStoreSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campbell.db")
	ctx := context.Background()
	s := NewSQLStore(nil)

	src := NewRegistry(nil)
	src.Add(sampleDataset(t, "run"))
	if err := s.Save(ctx, path, src); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	// mutate and save again under the same name
	if err := src.RemoveModes(models.ToolHawcStab2, "run", []int{1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, path, src); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	dst := NewRegistry(nil)
	loaded, _, err := s.Load(ctx, path, dst)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded = %v, want single replaced dataset", loaded)
	}
	d, _ := dst.Get(models.ToolHawcStab2, "run")
	if d.NumModes() != 1 {
		t.Fatalf("got %d modes, want the replaced single-mode dataset", d.NumModes())
	}
}
