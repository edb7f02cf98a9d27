package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	_ "modernc.org/sqlite"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	tool TEXT NOT NULL,
	name TEXT NOT NULL,
	UNIQUE (tool, name)
);
CREATE TABLE IF NOT EXISTS arrays (
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	name  TEXT NOT NULL,
	dim0  INTEGER NOT NULL,
	dim1  INTEGER NOT NULL,
	dim2  INTEGER NOT NULL,
	data  BLOB NOT NULL,
	PRIMARY KEY (dataset_id, name)
);
CREATE TABLE IF NOT EXISTS modes (
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	axis   TEXT NOT NULL,
	idx    INTEGER NOT NULL,
	record TEXT NOT NULL,
	PRIMARY KEY (dataset_id, axis, idx)
);
CREATE TABLE IF NOT EXISTS operating_params (
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	idx   INTEGER NOT NULL,
	label TEXT NOT NULL,
	PRIMARY KEY (dataset_id, idx)
);
CREATE TABLE IF NOT EXISTS attrs (
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (dataset_id, key)
);
`

// SQLStore persists registries to a SQLite file, one row group per dataset.
// Numeric arrays are stored as little-endian float64 blobs with their shape,
// mode axes as the delimited plain-text records.
type SQLStore struct {
	logger *slog.Logger
}

// NewSQLStore constructs a store; logger may be nil.
func NewSQLStore(logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{logger: logger}
}

func openDatabase(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// Save writes every registered dataset to the database at path. Datasets
// already present under the same tool and name are replaced.
func (s *SQLStore) Save(ctx context.Context, path string, reg *Registry) error {
	db, err := openDatabase(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	datasets := reg.snapshot()
	for _, d := range datasets {
		if err := saveDataset(ctx, tx, d); err != nil {
			return fmt.Errorf("save %s/%s: %w", d.Tool, d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.logger.Info("database saved", slog.String("path", path), slog.Int("datasets", len(datasets)))
	return nil
}

func saveDataset(ctx context.Context, tx *sql.Tx, d *dataset.Dataset) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM datasets WHERE tool = ? AND name = ?`, string(d.Tool), d.Name); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (tool, name) VALUES (?, ?)`, string(d.Tool), d.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	grids := []struct {
		name string
		g    *dataset.Grid
	}{
		{"frequency", d.Frequency},
		{"damping", d.Damping},
		{"realpart", d.Realpart},
	}
	for _, a := range grids {
		if a.g == nil {
			continue
		}
		if err := insertArray(ctx, tx, id, a.name, a.g.Ops, a.g.Modes, 0, a.g.Raw()); err != nil {
			return err
		}
	}

	cubes := []struct {
		name string
		c    *dataset.Cube
	}{
		{"participation_factors_amp", d.ParticipationAmp},
		{"participation_factors_phase", d.ParticipationPhase},
	}
	for _, a := range cubes {
		if a.c == nil {
			continue
		}
		flat := make([]float64, 0, a.c.Planes()*a.c.Ops*a.c.Modes)
		for p := 0; p < a.c.Planes(); p++ {
			flat = append(flat, a.c.Plane(p)...)
		}
		if err := insertArray(ctx, tx, id, a.name, a.c.Ops, a.c.Modes, a.c.Planes(), flat); err != nil {
			return err
		}
	}

	if len(d.OperatingPoints) > 0 {
		flat := make([]float64, 0, len(d.OperatingPoints)*len(d.OperatingParams))
		for _, row := range d.OperatingPoints {
			flat = append(flat, row...)
		}
		if err := insertArray(ctx, tx, id, "operating_points",
			len(d.OperatingPoints), len(d.OperatingParams), 0, flat); err != nil {
			return err
		}
	}

	for axis, modes := range map[string][]models.Mode{"modes": d.Modes, "participation_modes": d.ParticipationModes} {
		for i, m := range modes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO modes (dataset_id, axis, idx, record) VALUES (?, ?, ?, ?)`,
				id, axis, i, m.EncodeRecord()); err != nil {
				return err
			}
		}
	}
	for i, label := range d.OperatingParams {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO operating_params (dataset_id, idx, label) VALUES (?, ?, ?)`, id, i, label); err != nil {
			return err
		}
	}
	for key, value := range d.Attrs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attrs (dataset_id, key, value) VALUES (?, ?, ?)`, id, key, value); err != nil {
			return err
		}
	}
	return nil
}

func insertArray(ctx context.Context, tx *sql.Tx, id int64, name string, dim0, dim1, dim2 int, data []float64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO arrays (dataset_id, name, dim0, dim1, dim2, data) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, dim0, dim1, dim2, encodeFloats(data))
	return err
}

// Load reads every dataset from the database at path into the registry.
// Existing registry entries are never overwritten; colliding names are
// disambiguated by Registry.Add. Undecodable tool families or mode records
// degrade to diagnostics.
func (s *SQLStore) Load(ctx context.Context, path string, reg *Registry) ([]Entry, models.Diagnostics, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, tool, name FROM datasets ORDER BY tool, name`)
	if err != nil {
		return nil, nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	type stored struct {
		id   int64
		tool string
		name string
	}
	var all []stored
	for rows.Next() {
		var st stored
		if err := rows.Scan(&st.id, &st.tool, &st.name); err != nil {
			return nil, nil, err
		}
		all = append(all, st)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var loaded []Entry
	var diags models.Diagnostics
	for _, st := range all {
		tool, err := models.ParseToolFamily(st.tool)
		if err != nil {
			diags.Add(models.DiagUnknownName, "dataset %q: %v, skipped", st.name, err)
			continue
		}
		d := dataset.New(tool, st.name)
		if err := loadDataset(ctx, db, st.id, d, &diags); err != nil {
			return loaded, diags, fmt.Errorf("load %s/%s: %w", st.tool, st.name, err)
		}
		d.Attrs["database_file"] = path
		name := reg.Add(d)
		loaded = append(loaded, Entry{Tool: tool, Name: name})
	}
	s.logger.Info("database loaded", slog.String("path", path), slog.Int("datasets", len(loaded)))
	return loaded, diags, nil
}

func loadDataset(ctx context.Context, db *sql.DB, id int64, d *dataset.Dataset, diags *models.Diagnostics) error {
	rows, err := db.QueryContext(ctx,
		`SELECT name, dim0, dim1, dim2, data FROM arrays WHERE dataset_id = ?`, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var dim0, dim1, dim2 int
		var blob []byte
		if err := rows.Scan(&name, &dim0, &dim1, &dim2, &blob); err != nil {
			return err
		}
		data, err := decodeFloats(blob)
		if err != nil {
			return fmt.Errorf("array %s: %w", name, err)
		}
		switch name {
		case "frequency":
			d.Frequency, err = dataset.GridFromRaw(dim0, dim1, data)
		case "damping":
			d.Damping, err = dataset.GridFromRaw(dim0, dim1, data)
		case "realpart":
			d.Realpart, err = dataset.GridFromRaw(dim0, dim1, data)
		case "participation_factors_amp":
			d.ParticipationAmp, err = dataset.CubeFromRaw(dim0, dim1, dim2, data)
		case "participation_factors_phase":
			d.ParticipationPhase, err = dataset.CubeFromRaw(dim0, dim1, dim2, data)
		case "operating_points":
			d.OperatingPoints = make([][]float64, dim0)
			for i := range d.OperatingPoints {
				d.OperatingPoints[i] = data[i*dim1 : (i+1)*dim1]
			}
		default:
			diags.Add(models.DiagUnknownName, "stored array %q is not part of the data model", name)
		}
		if err != nil {
			return fmt.Errorf("array %s: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	modeRows, err := db.QueryContext(ctx,
		`SELECT axis, idx, record FROM modes WHERE dataset_id = ? ORDER BY axis, idx`, id)
	if err != nil {
		return err
	}
	defer modeRows.Close()
	for modeRows.Next() {
		var axis, record string
		var idx int
		if err := modeRows.Scan(&axis, &idx, &record); err != nil {
			return err
		}
		m, err := models.DecodeRecord(record)
		if err != nil {
			diags.Add(models.DiagUnknownName, "mode record %q: %v", record, err)
			m = models.NewMode(record)
		}
		switch axis {
		case "modes":
			d.Modes = append(d.Modes, m)
		case "participation_modes":
			d.ParticipationModes = append(d.ParticipationModes, m)
		}
	}
	if err := modeRows.Err(); err != nil {
		return err
	}

	paramRows, err := db.QueryContext(ctx,
		`SELECT label FROM operating_params WHERE dataset_id = ? ORDER BY idx`, id)
	if err != nil {
		return err
	}
	defer paramRows.Close()
	for paramRows.Next() {
		var label string
		if err := paramRows.Scan(&label); err != nil {
			return err
		}
		d.OperatingParams = append(d.OperatingParams, label)
	}
	if err := paramRows.Err(); err != nil {
		return err
	}

	attrRows, err := db.QueryContext(ctx, `SELECT key, value FROM attrs WHERE dataset_id = ?`, id)
	if err != nil {
		return err
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var key, value string
		if err := attrRows.Scan(&key, &value); err != nil {
			return err
		}
		d.Attrs[key] = value
	}
	return attrRows.Err()
}

func encodeFloats(vals []float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("%d bytes is not a float64 sequence", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}
