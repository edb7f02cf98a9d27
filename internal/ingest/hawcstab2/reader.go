// Package hawcstab2 ingests HAWCStab2 linearization results: the .cmb
// frequency/damping table, the .amp modal participation table, the .opt
// operating-condition table and the binary mode-shape stream.
package hawcstab2

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/ingest/tabular"
	"github.com/campbellstack/campbell-engine/internal/models"
)

// sensorNames lists the fixed participation degrees of freedom of the .amp
// file, in column order. Each sensor occupies two columns (amplitude, phase)
// per mode.
var sensorNames = []string{
	"TWR SS", "TWR FA", "TWR yaw", "SFT x", "SFT y", "SFT tor",
	"Sym edge", "BW edge", "FW edge", "Sym flap", "BW flap", "FW flap",
	"Sym tors", "BW tors", "FW tors",
}

// operatingParams labels the five columns of the .opt file.
var operatingParams = []string{
	"wind speed [m/s]", "pitch [deg]", "rot. speed [rpm]",
	"aero power [kw]", "aero thrust [kn]",
}

// Reader parses HAWCStab2 result files into a canonical dataset. Parsing
// problems are recovered locally and reported as diagnostics; only the
// inability to read the first required file of a stage is fatal to it.
type Reader struct {
	logger *slog.Logger
}

// NewReader constructs a reader; logger may be nil.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadCmb parses the coupled-mode frequency/damping table. The column layout
// encodes the analysis type: when (columns-1)/2 is evenly divisible by 3 the
// file carries three blocks (frequency, damping, real part) of an
// aeroelastic analysis, otherwise two blocks of a structural analysis. The
// first column is the operating condition and is not stored.
func (r *Reader) ReadCmb(d *dataset.Dataset, diags *models.Diagnostics, path string, skipHeader int) {
	rows, err := tabular.ReadTable(path, skipHeader)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			diags.Add(models.DiagMissingFile, "cmb file %s not found", path)
			return
		}
		diags.Add(models.DiagShapeMismatch, "cmb file %s unreadable: %v", path, err)
		return
	}
	if len(rows) == 0 {
		diags.Add(models.DiagShapeMismatch, "cmb file %s contains no data rows", path)
		return
	}
	d.Attrs["filenamecmb"] = path

	cols := len(rows[0])
	aeroelastic := math.Mod(float64(cols-1)/2, 3) == 0

	var numModes int
	if aeroelastic {
		numModes = (cols - 1) / 3
	} else {
		numModes = (cols - 1) / 2
	}

	d.Frequency, _ = dataset.GridFromRows(tabular.Columns(rows, 1, numModes+1))
	d.Damping, _ = dataset.GridFromRows(tabular.Columns(rows, numModes+1, 2*numModes+1))
	if aeroelastic {
		d.Realpart, _ = dataset.GridFromRows(tabular.Columns(rows, 2*numModes+1, cols))
	}

	// Placeholder names; ReadAmp replaces them with dominant-sensor names.
	if len(d.Modes) == 0 {
		d.Modes = make([]models.Mode, numModes)
		for i := range d.Modes {
			d.Modes[i] = models.NewMode(fmt.Sprintf("mode %d", i+1))
		}
	}

	r.logger.Info("cmb data loaded",
		slog.Int("modes", numModes),
		slog.Int("operating_points", len(rows)),
		slog.Bool("aeroelastic", aeroelastic))
}

// ReadAmp parses the modal participation table. Columns are grouped in
// (amplitude, phase) pairs per sensor, repeated per mode. Coupled-mode names
// are derived from the dominant sensor and disambiguated on collision.
func (r *Reader) ReadAmp(d *dataset.Dataset, diags *models.Diagnostics, path string, skipHeader int) {
	rows, err := tabular.ReadTable(path, skipHeader)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			diags.Add(models.DiagMissingFile, "amp file %s not found", path)
			return
		}
		diags.Add(models.DiagShapeMismatch, "amp file %s unreadable: %v", path, err)
		return
	}
	if len(rows) == 0 {
		diags.Add(models.DiagShapeMismatch, "amp file %s contains no data rows", path)
		return
	}

	numSensors := len(sensorNames)
	cols := len(rows[0])
	if (cols-1)%(2*numSensors) != 0 {
		diags.Add(models.DiagShapeMismatch,
			"amp file %s has %d data columns, not a multiple of %d sensor pairs", path, cols-1, numSensors)
		return
	}
	numOps := len(rows)
	numModes := (cols - 1) / numSensors / 2

	if d.Frequency != nil && d.Frequency.Modes != numModes {
		diags.Add(models.DiagShapeMismatch,
			"amp file %s reports %d modes, cmb file reported %d", path, numModes, d.Frequency.Modes)
		return
	}
	d.Attrs["filenameamp"] = path

	amp := dataset.NewCube(numOps, numModes)
	phase := dataset.NewCube(numOps, numModes)
	for range sensorNames {
		amp.AddPlane()
		phase.AddPlane()
	}
	for mode := 0; mode < numModes; mode++ {
		for sensor := 0; sensor < numSensors; sensor++ {
			ampCol := mode*numSensors*2 + 1 + 2*sensor
			phaseCol := ampCol + 1
			for op := 0; op < numOps; op++ {
				amp.Set(op, sensor, mode, rows[op][ampCol])
				phase.Set(op, sensor, mode, rows[op][phaseCol])
			}
		}
	}

	d.ParticipationModes = make([]models.Mode, numSensors)
	for i, name := range sensorNames {
		d.ParticipationModes[i] = models.NewMode(name)
	}
	d.ParticipationAmp = amp
	d.ParticipationPhase = phase
	d.Modes = nameModesByDominantSensor(amp, numModes)

	r.logger.Info("amp data loaded",
		slog.Int("modes", numModes),
		slog.Int("operating_points", numOps))
}

// nameModesByDominantSensor names each coupled mode after the sensor with the
// highest mean amplitude across operating points. When the third mode turns
// out tower side-side, the second is forced tower fore-aft (the two first
// tower modes otherwise collapse onto the same sensor). Names are made
// unique before use as secondary lookup keys.
func nameModesByDominantSensor(amp *dataset.Cube, numModes int) []models.Mode {
	names := make([]string, numModes)
	for mode := 0; mode < numModes; mode++ {
		best, bestMean := 0, math.Inf(-1)
		for sensor := 0; sensor < amp.Planes(); sensor++ {
			sum := 0.0
			for op := 0; op < amp.Ops; op++ {
				sum += amp.At(op, sensor, mode)
			}
			if mean := sum / float64(amp.Ops); mean > bestMean {
				best, bestMean = sensor, mean
			}
		}
		names[mode] = sensorNames[best]
	}
	if numModes > 2 && names[2] == sensorNames[0] {
		names[1] = sensorNames[1]
	}

	modes := make([]models.Mode, numModes)
	var taken []string
	for i, name := range names {
		unique := models.UniqueName(name, taken)
		taken = append(taken, unique)
		modes[i] = models.NewMode(unique)
	}
	return modes
}

// ReadOpt parses the operating-condition table: wind speed, pitch, rotor
// speed, aero power, aero thrust.
func (r *Reader) ReadOpt(d *dataset.Dataset, diags *models.Diagnostics, path string, skipHeader int) {
	rows, err := tabular.ReadTable(path, skipHeader)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			diags.Add(models.DiagMissingFile, "opt file %s not found", path)
			return
		}
		diags.Add(models.DiagShapeMismatch, "opt file %s unreadable: %v", path, err)
		return
	}
	if len(rows) == 0 {
		diags.Add(models.DiagShapeMismatch, "opt file %s contains no data rows", path)
		return
	}
	d.Attrs["filenameopt"] = path

	params := operatingParams
	if len(rows[0]) != len(params) {
		diags.Add(models.DiagShapeMismatch,
			"opt file %s has %d columns, want %d; labelling what is there", path, len(rows[0]), len(params))
		if len(rows[0]) < len(params) {
			params = params[:len(rows[0])]
		}
	}
	d.OperatingParams = append([]string(nil), params...)
	d.OperatingPoints = rows
}
