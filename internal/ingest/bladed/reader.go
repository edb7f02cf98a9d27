package bladed

import (
	"log/slog"
	"math"
	"path/filepath"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/engine"
	"github.com/campbellstack/campbell-engine/internal/models"
)

// Reader ingests a Bladed result bundle into a canonical dataset. Only an
// unscannable bundle (no project header) is an error; everything recoverable
// becomes a diagnostic.
type Reader struct {
	logger *slog.Logger
	linker *engine.Linker
}

// NewReader constructs a reader; logger and linker may be nil.
func NewReader(logger *slog.Logger, linker *engine.Linker) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if linker == nil {
		linker = engine.NewLinker(logger, 0, 0)
	}
	return &Reader{logger: logger, linker: linker}
}

// Read scans the bundle, dispatches on the tool version and populates the
// dataset as far as the layout allows.
func (r *Reader) Read(d *dataset.Dataset, diags *models.Diagnostics, dir, prefix string) error {
	rs, err := Scan(dir, prefix)
	if err != nil {
		return err
	}
	d.Attrs["result_dir"] = dir
	d.Attrs["result_prefix"] = prefix
	d.Attrs["tool_version"] = rs.RawVersion

	layout := rs.Version.Layout()
	if rs.Version.Raw == "" {
		diags.Add(models.DiagUnsupportedVersion,
			"tool version %q not understood, treating the bundle as a legacy one", rs.RawVersion)
		layout = LayoutLegacy
	}
	r.logger.Info("bladed bundle scanned",
		slog.String("version", rs.RawVersion),
		slog.String("layout", layout.String()),
		slog.Int("headers", len(rs.Headers)))

	switch layout {
	case LayoutLegacy:
		r.readLegacy(d, diags, rs)
	case LayoutTransitional:
		r.readTransitional(d, diags, rs)
	default:
		r.readModern(d, diags, rs)
	}
	return nil
}

// readModern handles bundles with the full operating-point channel set.
// Participation points are matched individually on rotor speed, frequency
// and damping.
func (r *Reader) readModern(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet) {
	r.readOperatingChannels(d, diags, rs)
	if !r.readCoupledModes(d, diags, rs) {
		return
	}
	r.linkParticipations(d, diags, rs, false)
}

// readTransitional handles 4.7 and 4.8 bundles: the operating channels are
// incomplete and have to be pieced together, and 4.7 appends the rotor
// harmonics as extra mode tracks.
func (r *Reader) readTransitional(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet) {
	r.readTransitionalOperatingData(d, diags, rs)
	if !r.readCoupledModes(d, diags, rs) {
		return
	}
	if rs.Version.Minor == 7 {
		// 4.7 reports the rotor harmonics (1P..12P) as extra mode tracks
		n := d.NumModes()
		if n > harmonicTracks47 {
			ids := make([]int, harmonicTracks47)
			for i := range ids {
				ids[i] = n - harmonicTracks47 + i
			}
			d.RemoveModes(ids)
		}
	}
	r.linkParticipations(d, diags, rs, true)
}

// harmonicTracks47 is the number of synthetic rotor-harmonic tracks a 4.7
// bundle appends to the coupled-mode output.
const harmonicTracks47 = 8

// legacyHarmonicModes is the number of rotor-harmonic columns mixed into the
// pre-4.7 coupled-mode table.
const legacyHarmonicModes = 9

// readLegacy handles pre-4.7 bundles: ASCII coupled-mode data described by
// the .%02 header, rotor speed as the only operating channel, and no usable
// participation output.
func (r *Reader) readLegacy(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet) {
	h := rs.HeaderBySuffix("%02")
	if h == nil {
		diags.Add(models.DiagMissingFile, "bundle has no %%02 result header")
		return
	}

	rpm := make([]float64, len(h.AxiVal))
	for i, v := range h.AxiVal {
		rpm[i] = v * 60 / (2 * math.Pi)
	}
	d.OperatingParams = []string{"rot. speed [rpm]"}
	d.OperatingPoints = make([][]float64, len(rpm))
	for i, v := range rpm {
		d.OperatingPoints[i] = []float64{v}
	}
	diags.Add(models.DiagCapabilityGap,
		"bundle provides no wind speed channel, operating points carry rotor speed only")

	if len(h.Dimens) != 3 {
		diags.Add(models.DiagShapeMismatch, "coupled-mode header DIMENS %v is not a mode table", h.Dimens)
		return
	}
	data, err := rs.readData(h)
	if err != nil {
		diags.Add(models.DiagShapeMismatch, "coupled-mode data unreadable: %v", err)
		return
	}
	nvar, nmodes, nops := h.Dimens[0], h.Dimens[1], h.Dimens[2]
	if nvar < 2 || len(data) != nvar*nmodes*nops {
		diags.Add(models.DiagShapeMismatch,
			"coupled-mode data has %d values, DIMENS %v promise %d", len(data), h.Dimens, nvar*nmodes*nops)
		return
	}

	// the last columns of the mode axis are rotor harmonics, not modes
	kept := nmodes - legacyHarmonicModes
	if kept < 1 {
		diags.Add(models.DiagShapeMismatch, "coupled-mode table has %d modes, all of them harmonics", nmodes)
		return
	}
	freqRows := make([][]float64, nops)
	dampRows := make([][]float64, nops)
	for op := 0; op < nops; op++ {
		freqRows[op] = make([]float64, kept)
		dampRows[op] = make([]float64, kept)
		for mode := 0; mode < kept; mode++ {
			freqRows[op][mode] = data[(op*nmodes+mode)*nvar]
			dampRows[op][mode] = scaleDamping(data[(op*nmodes+mode)*nvar+1])
		}
	}
	d.Frequency, _ = dataset.GridFromRows(freqRows)
	d.Damping, _ = dataset.GridFromRows(dampRows)
	d.Modes = coupledModeNames(h.AxiTick, kept)

	diags.Add(models.DiagCapabilityGap,
		"participation factors are not readable from pre-4.7 bundles")
	r.logger.Info("legacy coupled modes loaded", slog.Int("modes", kept), slog.Int("operating_points", nops))
}

// readOperatingChannels reads the four nominal operating channels of a
// modern bundle and converts them to display units.
func (r *Reader) readOperatingChannels(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet) {
	channels := []struct {
		variable string
		label    string
		convert  func(float64) float64
	}{
		{"Nominal wind speed at hub position", "wind speed [m/s]", func(v float64) float64 { return v }},
		{"Nominal pitch angle", "pitch [deg]", func(v float64) float64 { return v * 180 / math.Pi }},
		{"Rotor speed", "rot. speed [rpm]", func(v float64) float64 { return v * 60 / (2 * math.Pi) }},
		{"Electrical power", "Electrical power [kw]", func(v float64) float64 { return v / 1e3 }},
	}

	var columns [][]float64
	var labels []string
	nops := -1
	for _, ch := range channels {
		series, _, err := rs.Series(ch.variable)
		if err != nil {
			diags.Add(models.DiagMissingFile, "operating channel %q: %v", ch.variable, err)
			continue
		}
		if nops >= 0 && len(series) != nops {
			diags.Add(models.DiagShapeMismatch,
				"operating channel %q has %d points, earlier channels have %d", ch.variable, len(series), nops)
			continue
		}
		nops = len(series)
		for i := range series {
			series[i] = ch.convert(series[i])
		}
		columns = append(columns, series)
		labels = append(labels, ch.label)
	}
	if nops < 0 {
		return
	}

	d.OperatingParams = labels
	d.OperatingPoints = make([][]float64, nops)
	for op := 0; op < nops; op++ {
		row := make([]float64, len(columns))
		for j := range columns {
			row[j] = columns[j][op]
		}
		d.OperatingPoints[op] = row
	}
}

// readTransitionalOperatingData reconstructs operating points for 4.7/4.8
// bundles from whichever axis the .%02 header carries. With a wind-speed
// axis the rotor speed has to come from the longest detailed mode track.
func (r *Reader) readTransitionalOperatingData(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet) {
	h := rs.HeaderBySuffix("%02")
	if h == nil {
		diags.Add(models.DiagMissingFile, "bundle has no %%02 result header")
		return
	}

	var windspeed, rpm []float64
	switch h.AxisLab {
	case "Wind Speed":
		windspeed = append([]float64(nil), h.AxiVal...)

		tracks, err := ReadCampbellFile(filepath.Join(rs.Dir, rs.Prefix+".$CM"))
		if err != nil {
			diags.Add(models.DiagMissingFile, "rotor speed reconstruction: %v", err)
			return
		}
		longest := 0
		uneven := false
		for i, track := range tracks {
			if len(track.Omegas) != len(tracks[0].Omegas) {
				uneven = true
			}
			if len(track.Omegas) > len(tracks[longest].Omegas) {
				longest = i
			}
		}
		if uneven {
			r.logger.Warn("mode tracks have unequal lengths, using the longest for rotor speed")
		}
		if len(tracks) > 0 {
			rpm = make([]float64, len(tracks[longest].Omegas))
			for i, omega := range tracks[longest].Omegas {
				rpm[i] = omega * 60 / (2 * math.Pi)
			}
		}
		if len(rpm) != len(windspeed) {
			diags.Add(models.DiagConsistencyWarning,
				"wind speed axis has %d points, rotor speed track has %d; rotor speeds disregarded",
				len(windspeed), len(rpm))
			rpm = make([]float64, len(windspeed))
			for i := range rpm {
				rpm[i] = 1
			}
		}

	case "Rotor Speed":
		rpm = make([]float64, len(h.AxiVal))
		for i, v := range h.AxiVal {
			rpm[i] = v * 60 / (2 * math.Pi)
		}
		windspeed = make([]float64, len(rpm))
		for i := range windspeed {
			windspeed[i] = 1
		}

	default:
		diags.Add(models.DiagShapeMismatch, "%%02 axis %q is neither wind nor rotor speed", h.AxisLab)
		return
	}

	d.OperatingParams = []string{"wind speed [m/s]", "rot. speed [rpm]"}
	d.OperatingPoints = make([][]float64, len(windspeed))
	for i := range windspeed {
		d.OperatingPoints[i] = []float64{windspeed[i], rpm[i]}
	}
}

// readCoupledModes loads the tracked frequency and damping curves of a
// binary (>= 4.7) bundle. Damping is scaled to percent; the absence sentinel
// passes through unscaled.
func (r *Reader) readCoupledModes(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet) bool {
	freqRows, _, err := rs.Matrix("Frequency (undamped)")
	if err != nil {
		diags.Add(models.DiagMissingFile, "coupled-mode frequencies: %v", err)
		return false
	}
	dampRows, dampHeader, err := rs.Matrix("Damping")
	if err != nil {
		diags.Add(models.DiagMissingFile, "coupled-mode damping: %v", err)
		return false
	}
	for op := range dampRows {
		for mode := range dampRows[op] {
			dampRows[op][mode] = scaleDamping(dampRows[op][mode])
		}
	}

	d.Frequency, err = dataset.GridFromRows(freqRows)
	if err != nil {
		diags.Add(models.DiagShapeMismatch, "coupled-mode frequencies: %v", err)
		return false
	}
	d.Damping, err = dataset.GridFromRows(dampRows)
	if err != nil {
		diags.Add(models.DiagShapeMismatch, "coupled-mode damping: %v", err)
		return false
	}
	d.Modes = coupledModeNames(dampHeader.AxiTick, d.NumModes())

	r.logger.Info("coupled modes loaded",
		slog.Int("modes", d.NumModes()), slog.Int("operating_points", d.NumOperatingPoints()))
	return true
}

// linkParticipations parses the detailed Campbell file and runs the linkage
// appropriate for the layout.
func (r *Reader) linkParticipations(d *dataset.Dataset, diags *models.Diagnostics, rs *ResultSet, positional bool) {
	path := filepath.Join(rs.Dir, rs.Prefix+".$CM")
	tracks, err := ReadCampbellFile(path)
	if err != nil {
		diags.Add(models.DiagMissingFile, "detailed Campbell file: %v", err)
		return
	}

	d.ParticipationAmp = dataset.NewCube(d.Frequency.Ops, d.Frequency.Modes)
	d.ParticipationPhase = dataset.NewCube(d.Frequency.Ops, d.Frequency.Modes)
	d.ParticipationModes = nil
	d.Attrs["filenamecm"] = path

	if positional {
		r.linker.LinkPositional(d, diags, tracks)
	} else {
		r.linker.LinkByMatching(d, diags, tracks)
	}
}

// scaleDamping converts a damping fraction to percent, leaving the absence
// sentinel untouched.
func scaleDamping(v float64) float64 {
	if v == dataset.Absent {
		return v
	}
	return 100 * v
}

// coupledModeNames builds the mode list from the tick labels of the damping
// axis, padding with placeholders when the tick list is short.
func coupledModeNames(ticks []string, n int) []models.Mode {
	modes := make([]models.Mode, n)
	for i := 0; i < n; i++ {
		name := "..."
		if i < len(ticks) {
			name = ticks[i]
		}
		modes[i] = models.NewMode(name)
	}
	return modes
}
