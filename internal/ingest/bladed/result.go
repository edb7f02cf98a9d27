// Package bladed ingests Bladed Campbell-diagram linearization bundles: the
// .$PJ project header, the .%NN/.$NN header and data file pairs, and the
// detailed .$CM Campbell file. Three bundle layouts exist over the tool's
// version history and are dispatched on the project's application version.
package bladed

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header describes one .$NN data file, parsed from its .%NN sibling.
type Header struct {
	Suffix   string // "%02"
	DataFile string // from FILE, relative to the bundle directory
	Dimens   []int  // as listed, fastest axis first
	AxisLab  string
	AxiVal   []float64
	AxiTick  []string
	Variab   []string
}

// ResultSet is a scanned Bladed result bundle.
type ResultSet struct {
	Dir        string
	Prefix     string
	RawVersion string
	Version    Version
	Headers    []*Header
}

// Scan reads the bundle's project header and every result header next to it.
// A missing or versionless .$PJ file is an error; the caller has nothing to
// dispatch on without it. An unparseable version is not: the raw string is
// kept and Version stays zero for the caller to classify.
func Scan(dir, prefix string) (*ResultSet, error) {
	rs := &ResultSet{Dir: dir, Prefix: prefix}

	raw, err := projectVersion(filepath.Join(dir, prefix+".$PJ"))
	if err != nil {
		return nil, err
	}
	rs.RawVersion = raw
	if v, err := ParseVersion(raw); err == nil {
		rs.Version = v
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan result dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+".%") {
			continue
		}
		h, err := parseHeader(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", name, err)
		}
		h.Suffix = strings.TrimPrefix(name, prefix+".")
		rs.Headers = append(rs.Headers, h)
	}
	return rs, nil
}

// projectVersion extracts the ApplicationVersion value from a .$PJ file.
func projectVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("project header: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "ApplicationVersion") {
			continue
		}
		parts := strings.Split(line, `"`)
		if len(parts) < 2 {
			return "", fmt.Errorf("project header %s: unquoted ApplicationVersion", path)
		}
		return parts[1], nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("project header %s: %w", path, err)
	}
	return "", fmt.Errorf("project header %s: no ApplicationVersion", path)
}

func parseHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := &Header{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, rest, _ := strings.Cut(line, "\t")
		if !strings.Contains(line, "\t") {
			key, rest, _ = strings.Cut(line, " ")
		}
		key = strings.TrimSpace(key)
		rest = strings.TrimSpace(rest)

		switch key {
		case "FILE":
			h.DataFile = strings.Trim(rest, `'"`)
		case "DIMENS":
			for _, tok := range strings.Fields(rest) {
				n, err := strconv.Atoi(tok)
				if err != nil {
					return nil, fmt.Errorf("DIMENS value %q: %w", tok, err)
				}
				h.Dimens = append(h.Dimens, n)
			}
		case "AXISLAB":
			h.AxisLab = strings.Trim(rest, `'"`)
		case "AXIVAL":
			for _, tok := range strings.Fields(rest) {
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return nil, fmt.Errorf("AXIVAL value %q: %w", tok, err)
				}
				h.AxiVal = append(h.AxiVal, v)
			}
		case "AXITICK":
			h.AxiTick = splitQuoted(rest)
		case "VARIAB":
			h.Variab = splitQuoted(rest)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// splitQuoted splits a header value into items: single-quoted strings when
// quotes are present, whitespace-separated tokens otherwise.
func splitQuoted(s string) []string {
	if !strings.ContainsRune(s, '\'') {
		return strings.Fields(s)
	}
	var out []string
	for i, part := range strings.Split(s, "'") {
		if i%2 == 1 {
			out = append(out, part)
		}
	}
	return out
}

// HeaderBySuffix returns the header with the given suffix (e.g. "%02").
func (rs *ResultSet) HeaderBySuffix(suffix string) *Header {
	for _, h := range rs.Headers {
		if h.Suffix == suffix {
			return h
		}
	}
	return nil
}

// headerForVariable returns the header listing the named variable and its
// index on the variable axis.
func (rs *ResultSet) headerForVariable(name string) (*Header, int) {
	for _, h := range rs.Headers {
		for i, v := range h.Variab {
			if v == name {
				return h, i
			}
		}
	}
	return nil, 0
}

// readData loads the flat numeric content of a header's data file. Bundles
// written by 4.7 and later store little-endian float32; older bundles store
// plain ASCII numbers.
func (rs *ResultSet) readData(h *Header) ([]float64, error) {
	path := filepath.Join(rs.Dir, h.dataFileName(rs.Prefix))
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data file: %w", err)
	}

	if rs.Version.Layout() == LayoutLegacy {
		fields := strings.Fields(string(buf))
		out := make([]float64, len(fields))
		for i, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("data file %s: value %q: %w", path, tok, err)
			}
			out[i] = v
		}
		return out, nil
	}

	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("data file %s: %d bytes is not a float32 sequence", path, len(buf))
	}
	out := make([]float64, len(buf)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	return out, nil
}

// dataFileName resolves the data file for a header: the FILE entry when
// present, otherwise the header name with % replaced by $.
func (h *Header) dataFileName(prefix string) string {
	if h.DataFile != "" {
		return h.DataFile
	}
	return prefix + "." + strings.Replace(h.Suffix, "%", "$", 1)
}

// Matrix returns one variable of a three-axis data file as (ops x modes)
// rows. Dimens is listed fastest axis first: (variables, modes, ops).
func (rs *ResultSet) Matrix(name string) ([][]float64, *Header, error) {
	h, varIdx := rs.headerForVariable(name)
	if h == nil {
		return nil, nil, fmt.Errorf("variable %q not present in any result header", name)
	}
	if len(h.Dimens) != 3 {
		return nil, nil, fmt.Errorf("variable %q: DIMENS %v is not a mode table", name, h.Dimens)
	}
	data, err := rs.readData(h)
	if err != nil {
		return nil, nil, err
	}
	nvar, nmodes, nops := h.Dimens[0], h.Dimens[1], h.Dimens[2]
	if len(data) != nvar*nmodes*nops {
		return nil, nil, fmt.Errorf("variable %q: %d values, DIMENS %v promise %d", name, len(data), h.Dimens, nvar*nmodes*nops)
	}
	rows := make([][]float64, nops)
	for op := 0; op < nops; op++ {
		rows[op] = make([]float64, nmodes)
		for mode := 0; mode < nmodes; mode++ {
			rows[op][mode] = data[(op*nmodes+mode)*nvar+varIdx]
		}
	}
	return rows, h, nil
}

// Series returns one variable of a two-axis data file as a per-operating-
// point vector.
func (rs *ResultSet) Series(name string) ([]float64, *Header, error) {
	h, varIdx := rs.headerForVariable(name)
	if h == nil {
		return nil, nil, fmt.Errorf("variable %q not present in any result header", name)
	}
	if len(h.Dimens) != 2 {
		return nil, nil, fmt.Errorf("variable %q: DIMENS %v is not a channel table", name, h.Dimens)
	}
	data, err := rs.readData(h)
	if err != nil {
		return nil, nil, err
	}
	nvar, nops := h.Dimens[0], h.Dimens[1]
	if len(data) != nvar*nops {
		return nil, nil, fmt.Errorf("variable %q: %d values, DIMENS %v promise %d", name, len(data), h.Dimens, nvar*nops)
	}
	out := make([]float64, nops)
	for op := 0; op < nops; op++ {
		out[op] = data[op*nvar+varIdx]
	}
	return out, h, nil
}
