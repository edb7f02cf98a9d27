package engine

import (
	"math"
	"testing"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
)

func TestParseParticipation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Participation
	}{
		{
			name: "space separated",
			in:   "Tower mode 1 54.6% 12.3°, Blade mode 7 8.1% -170.0°, ",
			want: []Participation{
				{Name: "Tower mode 1", Amplitude: 0.546, Phase: 12.3},
				{Name: "Blade mode 7", Amplitude: 0.081, Phase: -170.0},
			},
		},
		{
			name: "comma between amplitude and phase",
			in:   "Tower mode 1 54.6%, 12.3°, Blade mode 7 8.1%, -170.0°",
			want: []Participation{
				{Name: "Tower mode 1", Amplitude: 0.546, Phase: 12.3},
				{Name: "Blade mode 7", Amplitude: 0.081, Phase: -170.0},
			},
		},
		{
			name: "empty",
			in:   " , ",
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseParticipation(tc.in)
			if err != nil {
				t.Fatalf("ParseParticipation(%q): %v", tc.in, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d segments, want %d: %v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i].Name != tc.want[i].Name ||
					math.Abs(got[i].Amplitude-tc.want[i].Amplitude) > 1e-12 ||
					got[i].Phase != tc.want[i].Phase {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestParseParticipationMalformed(t *testing.T) {
	if _, err := ParseParticipation("Tower mode 1 nope% 12.3°"); err == nil {
		t.Fatal("expected amplitude parse error")
	}
	if _, err := ParseParticipation("12.3°"); err == nil {
		t.Fatal("expected segment shape error")
	}
}

// linkFixture builds a dataset with 2 operating points and 2 tracked modes;
// mode 1 is absent at the first operating point.
func linkFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	d := dataset.New(models.ToolBladedLin, "run")
	var err error
	d.Frequency, err = dataset.GridFromRows([][]float64{
		{1.0, dataset.Absent},
		{1.1, 2.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	d.Damping, err = dataset.GridFromRows([][]float64{
		{5.0, dataset.Absent},
		{6.0, 7.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	d.Modes = []models.Mode{models.NewMode("Mode A"), models.NewMode("Mode B")}
	d.OperatingParams = []string{"wind speed [m/s]", "rot. speed [rpm]"}
	d.OperatingPoints = [][]float64{{4.0, 60.0}, {6.0, 120.0}}
	d.ParticipationAmp = dataset.NewCube(2, 2)
	d.ParticipationPhase = dataset.NewCube(2, 2)
	return d
}

func TestLinkPositional(t *testing.T) {
	d := linkFixture(t)
	tracks := []Track{
		{
			Name:  "Mode A",
			Freqs: []float64{1.0 * 2 * math.Pi, 1.1 * 2 * math.Pi},
			Participations: []string{
				"Tower mode 1 60.0% 10.0°",
				"Tower mode 1 55.0% 11.0°, Blade mode 7 20.0% -5.0°",
			},
		},
		{
			Name:           "Mode B",
			Freqs:          []float64{2.0 * 2 * math.Pi},
			Participations: []string{"Blade mode 7 90.0% 0.0°"},
		},
	}

	var diags models.Diagnostics
	NewLinker(nil, 0, 0).LinkPositional(d, &diags, tracks)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if got := len(d.ParticipationModes); got != 2 {
		t.Fatalf("got %d participation modes, want 2", got)
	}
	if d.ParticipationModes[0].Name != "Tower mode 1" || d.ParticipationModes[1].Name != "Blade mode 7" {
		t.Errorf("participation modes = %v", d.ParticipationModes)
	}
	if got := d.ParticipationAmp.At(0, 0, 0); got != 0.60 {
		t.Errorf("amp(0, tower, A) = %v, want 0.60", got)
	}
	// mode B is absent at the first operating point: its single track point
	// belongs to operating point 1
	if got := d.ParticipationAmp.At(1, 1, 1); got != 0.90 {
		t.Errorf("amp(1, blade, B) = %v, want 0.90", got)
	}
	if got := d.ParticipationAmp.At(0, 1, 1); got != 0 {
		t.Errorf("amp(0, blade, B) = %v, want 0 (mode absent)", got)
	}
	if got := d.ParticipationPhase.At(1, 1, 0); got != -5.0 {
		t.Errorf("phase(1, blade, A) = %v, want -5", got)
	}
}

func TestLinkPositionalFrequencyWarning(t *testing.T) {
	d := linkFixture(t)
	tracks := []Track{
		{
			Name:  "Mode A",
			Freqs: []float64{9.9, 9.9}, // far off the tracked curve
			Participations: []string{
				"Tower mode 1 60.0% 10.0°",
				"Tower mode 1 55.0% 11.0°",
			},
		},
		{
			Name:           "Mode B",
			Freqs:          []float64{2.0 * 2 * math.Pi},
			Participations: []string{"Blade mode 7 90.0% 0.0°"},
		},
	}

	var diags models.Diagnostics
	NewLinker(nil, 0, 0).LinkPositional(d, &diags, tracks)

	if diags.Count(models.DiagConsistencyWarning) != 1 {
		t.Fatalf("diagnostics = %v, want one consistency_warning", diags)
	}
	// the warning must not block linkage
	if got := d.ParticipationAmp.At(0, 0, 0); got != 0.60 {
		t.Errorf("amp(0, tower, A) = %v, want 0.60 despite warning", got)
	}
}

func TestLinkPositionalTrackCountMismatch(t *testing.T) {
	d := linkFixture(t)
	var diags models.Diagnostics
	NewLinker(nil, 0, 0).LinkPositional(d, &diags, []Track{{Name: "only one"}})

	if diags.Count(models.DiagShapeMismatch) != 1 {
		t.Fatalf("diagnostics = %v, want one shape_mismatch", diags)
	}
	if len(d.ParticipationModes) != 0 {
		t.Error("mismatched track count must not register participation modes")
	}
}

func TestLinkByMatching(t *testing.T) {
	d := linkFixture(t)
	// rotor speeds 60 rpm and 120 rpm = 2π and 4π rad/s
	tracks := []Track{
		{
			Name:           "Mode A",
			Omegas:         []float64{2 * math.Pi, 4 * math.Pi},
			Freqs:          []float64{1.0 * 2 * math.Pi, 1.1 * 2 * math.Pi},
			Damps:          []float64{0.05, 0.06},
			Participations: []string{"Tower mode 1 60.0% 10.0°", "Tower mode 1 55.0% 11.0°"},
		},
		{
			Name:           "Mode B",
			Omegas:         []float64{4 * math.Pi},
			Freqs:          []float64{2.0 * 2 * math.Pi},
			Damps:          []float64{0.07},
			Participations: []string{"Blade mode 7 90.0% 0.0°"},
		},
	}

	var diags models.Diagnostics
	NewLinker(nil, 0, 0).LinkByMatching(d, &diags, tracks)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if got := d.ParticipationAmp.At(0, 0, 0); got != 0.60 {
		t.Errorf("amp(0, tower, A) = %v, want 0.60", got)
	}
	if got := d.ParticipationAmp.At(1, 1, 1); got != 0.90 {
		t.Errorf("amp(1, blade, B) = %v, want 0.90", got)
	}
}

func TestLinkByMatchingAmbiguous(t *testing.T) {
	d := linkFixture(t)
	// two identical points match (op 0, mode A); mode B's single point
	// matches nothing
	tracks := []Track{
		{
			Name:           "Mode A",
			Omegas:         []float64{2 * math.Pi, 2 * math.Pi, 4 * math.Pi},
			Freqs:          []float64{1.0 * 2 * math.Pi, 1.0 * 2 * math.Pi, 1.1 * 2 * math.Pi},
			Damps:          []float64{0.05, 0.05, 0.06},
			Participations: []string{"Tower mode 1 60.0% 10.0°", "Tower mode 1 61.0% 10.0°", "Tower mode 1 55.0% 11.0°"},
		},
		{
			Name:           "Mode B",
			Omegas:         []float64{99.0},
			Freqs:          []float64{99.0},
			Damps:          []float64{0.5},
			Participations: []string{"Blade mode 7 90.0% 0.0°"},
		},
	}

	var diags models.Diagnostics
	NewLinker(nil, 0, 0).LinkByMatching(d, &diags, tracks)

	// ambiguous at (0, A), unmatched at (1, B)
	if diags.Count(models.DiagAmbiguousLinkage) != 2 {
		t.Fatalf("diagnostics = %v, want two ambiguous_linkage", diags)
	}
	if got := d.ParticipationAmp.At(0, 0, 0); got != 0 {
		t.Errorf("ambiguous cell = %v, want untouched zero", got)
	}
	// the unambiguous point still linked
	if got := d.ParticipationAmp.At(1, 0, 0); got != 0.55 {
		t.Errorf("amp(1, tower, A) = %v, want 0.55", got)
	}
}

func TestLinkByMatchingIdempotent(t *testing.T) {
	d := linkFixture(t)
	tracks := []Track{
		{
			Name:           "Mode A",
			Omegas:         []float64{2 * math.Pi, 4 * math.Pi},
			Freqs:          []float64{1.0 * 2 * math.Pi, 1.1 * 2 * math.Pi},
			Damps:          []float64{0.05, 0.06},
			Participations: []string{"Tower mode 1 60.0% 10.0°", "Tower mode 1 55.0% 11.0°"},
		},
		{
			Name:           "Mode B",
			Omegas:         []float64{4 * math.Pi},
			Freqs:          []float64{2.0 * 2 * math.Pi},
			Damps:          []float64{0.07},
			Participations: []string{"Blade mode 7 90.0% 0.0°"},
		},
	}

	l := NewLinker(nil, 0, 0)
	var diags models.Diagnostics
	l.LinkByMatching(d, &diags, tracks)
	first := make([][][]float64, 0, 2)
	for _, ops := range d.ParticipationAmp.Nested() {
		var parts [][]float64
		for _, row := range ops {
			parts = append(parts, append([]float64(nil), row...))
		}
		first = append(first, parts)
	}

	l.LinkByMatching(d, &diags, tracks)
	second := d.ParticipationAmp.Nested()

	if len(d.ParticipationModes) != 2 {
		t.Fatalf("second run registered new planes: %v", d.ParticipationModes)
	}
	for op := range first {
		for p := range first[op] {
			for m := range first[op][p] {
				if first[op][p][m] != second[op][p][m] {
					t.Fatalf("cell (%d,%d,%d) changed on relink: %v -> %v",
						op, p, m, first[op][p][m], second[op][p][m])
				}
			}
		}
	}
}
