// Package tabular parses whitespace-separated ASCII result tables into
// rectangular numeric arrays.
package tabular

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadTable reads a numeric table from path, skipping skipLines header lines.
// Every data row must have the same column count as the first one. A missing
// file surfaces as an fs.ErrNotExist-wrapped error so callers can recover it
// as a non-fatal missing-file condition.
func ReadTable(path string, skipLines int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= skipLines {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, lineNo, i+1, err)
			}
			row[i] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("%s:%d: row has %d columns, want %d", path, lineNo, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return rows, nil
}

// Columns extracts the half-open column range [start, end) from every row.
func Columns(rows [][]float64, start, end int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row[start:end]...)
	}
	return out
}

// Column extracts a single column as a vector.
func Column(rows [][]float64, idx int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row[idx]
	}
	return out
}
