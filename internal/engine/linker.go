// Package engine reconciles detailed Campbell-diagram point data with the
// mode-tracked frequency and damping curves of a dataset. The participation
// axis of the result is not known up front; it grows through the Accumulator
// as new participation-mode names appear.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
)

// Track is one coupled mode as reported by the detailed Campbell file: the
// linearization points the tracker visited, with one participation string
// per point.
type Track struct {
	Name           string
	Omegas         []float64 // rotor speed, rad/s
	Freqs          []float64 // rad/s
	Damps          []float64 // fraction
	Participations []string
}

// Participation is a single parsed segment of a participation string.
type Participation struct {
	Name      string
	Amplitude float64 // fraction, not percent
	Phase     float64 // degrees
}

// ParseParticipation splits a participation string into its segments. Both
// segmentations produced over the tool's lifetime are accepted:
//
//	Tower mode 1 54.6% 12.3°, Blade mode 7 8.1% -170.0°,
//	Tower mode 1 54.6%, 12.3°, Blade mode 7 8.1%, -170.0°,
//
// In the second form the comma also separates amplitude from phase, so a
// comma-delimited piece carrying a phase but no amplitude belongs to the
// piece before it.
func ParseParticipation(s string) ([]Participation, error) {
	s = strings.Trim(s, ", \t")
	if s == "" {
		return nil, nil
	}

	var segments []string
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if strings.ContainsRune(piece, '°') && !strings.ContainsRune(piece, '%') && len(segments) > 0 {
			segments[len(segments)-1] += " " + piece
			continue
		}
		segments = append(segments, piece)
	}

	out := make([]Participation, 0, len(segments))
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) < 3 {
			return nil, fmt.Errorf("participation segment %q: want name, amplitude and phase", seg)
		}
		ampTok := strings.TrimSuffix(fields[len(fields)-2], "%")
		phaseTok := strings.TrimSuffix(fields[len(fields)-1], "°")
		amp, err := strconv.ParseFloat(ampTok, 64)
		if err != nil {
			return nil, fmt.Errorf("participation segment %q: amplitude: %w", seg, err)
		}
		phase, err := strconv.ParseFloat(phaseTok, 64)
		if err != nil {
			return nil, fmt.Errorf("participation segment %q: phase: %w", seg, err)
		}
		out = append(out, Participation{
			Name:      strings.Join(fields[:len(fields)-2], " "),
			Amplitude: amp / 100,
			Phase:     phase,
		})
	}
	return out, nil
}

// Linker writes participation data into a dataset by linking detailed
// Campbell points to the mode-tracked curves. Linking is idempotent: plane
// indices come from name registration and every write is absolute.
type Linker struct {
	logger   *slog.Logger
	freqRTol float64
	matchTol float64
}

// NewLinker constructs a linker; non-positive tolerances fall back to the
// defaults of the source tool (1e-2 relative for the frequency consistency
// check, 1e-3 absolute for point matching).
func NewLinker(logger *slog.Logger, freqRTol, matchTol float64) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	if freqRTol <= 0 {
		freqRTol = 1e-2
	}
	if matchTol <= 0 {
		matchTol = 1e-3
	}
	return &Linker{logger: logger, freqRTol: freqRTol, matchTol: matchTol}
}

// LinkPositional links track points to operating points by position: the
// k-th point of a track belongs to the k-th operating point at which the
// tracked mode is present. The track's frequencies are cross-checked against
// the tracked curve (in rad/s) as a consistency warning only.
func (l *Linker) LinkPositional(d *dataset.Dataset, diags *models.Diagnostics, tracks []Track) {
	if len(tracks) != d.NumModes() {
		diags.Add(models.DiagShapeMismatch,
			"detailed Campbell file has %d mode tracks, coupled-mode output has %d", len(tracks), d.NumModes())
		return
	}
	acc := NewAccumulator(d)

	for i, track := range tracks {
		used := d.Frequency.UsedOperatingPoints(i)
		if len(used) < d.NumOperatingPoints() {
			l.logger.Debug("tracked mode not present at all operating points",
				slog.String("mode", track.Name), slog.Int("present", len(used)))
		}

		if !l.freqsConsistent(track.Freqs, d.Frequency, used, i) {
			diags.Add(models.DiagConsistencyWarning,
				"mode %q: detailed Campbell frequencies disagree with the tracked curve", track.Name)
		}
		if len(track.Participations) != len(used) {
			diags.Add(models.DiagShapeMismatch,
				"mode %q: %d participation strings for %d used operating points",
				track.Name, len(track.Participations), len(used))
		}

		n := min(len(track.Participations), len(used))
		for k := 0; k < n; k++ {
			l.writeParticipations(d, diags, acc, used[k], i, track.Name, track.Participations[k])
		}
	}
}

// LinkByMatching links every present (operating point, mode) cell to the one
// detailed Campbell point that agrees with it on rotor speed, frequency and
// damping simultaneously. Zero or several matches leave the cell untouched
// with a diagnostic.
func (l *Linker) LinkByMatching(d *dataset.Dataset, diags *models.Diagnostics, tracks []Track) {
	rpmCol := -1
	for i, p := range d.OperatingParams {
		if p == "rot. speed [rpm]" {
			rpmCol = i
			break
		}
	}
	if rpmCol < 0 {
		diags.Add(models.DiagShapeMismatch, "operating points carry no rotor speed, cannot match Campbell points")
		return
	}

	var omegas, freqs, damps []float64
	var partics []string
	for _, track := range tracks {
		omegas = append(omegas, track.Omegas...)
		freqs = append(freqs, track.Freqs...)
		damps = append(damps, track.Damps...)
		partics = append(partics, track.Participations...)
	}

	acc := NewAccumulator(d)
	for op := 0; op < d.NumOperatingPoints(); op++ {
		rotspeed := d.OperatingPoints[op][rpmCol] * 2 * math.Pi / 60
		for mode := 0; mode < d.NumModes(); mode++ {
			if !d.Frequency.Present(op, mode) {
				continue
			}
			freq := d.Frequency.At(op, mode) * 2 * math.Pi
			damp := d.Damping.At(op, mode) / 100

			match := -1
			matches := 0
			for k := range omegas {
				if math.Abs(omegas[k]-rotspeed) < l.matchTol &&
					math.Abs(freqs[k]-freq) < l.matchTol &&
					math.Abs(damps[k]-damp) < l.matchTol {
					match = k
					matches++
				}
			}
			switch {
			case matches == 0:
				diags.Add(models.DiagAmbiguousLinkage,
					"no Campbell point matches rotor speed %.4f, mode %q", rotspeed, d.Modes[mode].Name)
			case matches > 1:
				diags.Add(models.DiagAmbiguousLinkage,
					"%d Campbell points match rotor speed %.4f, mode %q", matches, rotspeed, d.Modes[mode].Name)
			default:
				l.writeParticipations(d, diags, acc, op, mode, d.Modes[mode].Name, partics[match])
			}
		}
	}
}

func (l *Linker) writeParticipations(d *dataset.Dataset, diags *models.Diagnostics, acc *Accumulator, op, mode int, trackName, raw string) {
	parts, err := ParseParticipation(raw)
	if err != nil {
		diags.Add(models.DiagShapeMismatch, "mode %q: %v", trackName, err)
		return
	}
	for _, p := range parts {
		idx := acc.RegisterOrGet(p.Name)
		d.ParticipationAmp.Set(op, idx, mode, p.Amplitude)
		d.ParticipationPhase.Set(op, idx, mode, p.Phase)
	}
}

// freqsConsistent compares the track frequencies (rad/s) against the tracked
// curve (Hz) at the used operating points, within the relative tolerance.
func (l *Linker) freqsConsistent(trackFreqs []float64, freq *dataset.Grid, used []int, mode int) bool {
	n := min(len(trackFreqs), len(used))
	for k := 0; k < n; k++ {
		want := freq.At(used[k], mode) * 2 * math.Pi
		if math.Abs(trackFreqs[k]-want) > l.freqRTol*math.Abs(want) {
			return false
		}
	}
	return true
}
