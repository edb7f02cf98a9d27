package bladed

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/campbellstack/campbell-engine/internal/engine"
)

// ReadCampbellFile parses the detailed .$CM Campbell file: one MODE block per
// coupled mode, each holding POINT lines (rotor speed, frequency, damping,
// all in the solver's units) followed by the point's PARTICIPATION string.
// A point without a participation line keeps an empty string so positions
// stay aligned.
func ReadCampbellFile(path string) ([]engine.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("campbell file: %w", err)
	}
	defer f.Close()

	var tracks []engine.Track
	var cur *engine.Track
	pendingPoint := false

	flushPoint := func() {
		if pendingPoint {
			cur.Participations = append(cur.Participations, "")
			pendingPoint = false
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "MODE"):
			flushPoint()
			tracks = append(tracks, engine.Track{Name: strings.TrimSpace(strings.TrimPrefix(line, "MODE"))})
			cur = &tracks[len(tracks)-1]

		case strings.HasPrefix(line, "POINT"):
			if cur == nil {
				return nil, fmt.Errorf("%s:%d: POINT before any MODE", path, lineNo)
			}
			flushPoint()
			fields := strings.Fields(strings.TrimPrefix(line, "POINT"))
			if len(fields) != 3 {
				return nil, fmt.Errorf("%s:%d: POINT wants rotor speed, frequency and damping", path, lineNo)
			}
			vals := make([]float64, 3)
			for i, tok := range fields {
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: POINT value %q: %w", path, lineNo, tok, err)
				}
				vals[i] = v
			}
			cur.Omegas = append(cur.Omegas, vals[0])
			cur.Freqs = append(cur.Freqs, vals[1])
			cur.Damps = append(cur.Damps, vals[2])
			pendingPoint = true

		case strings.HasPrefix(line, "PARTICIPATION"):
			if cur == nil || !pendingPoint {
				return nil, fmt.Errorf("%s:%d: PARTICIPATION without a preceding POINT", path, lineNo)
			}
			cur.Participations = append(cur.Participations, strings.TrimSpace(strings.TrimPrefix(line, "PARTICIPATION")))
			pendingPoint = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("campbell file %s: %w", path, err)
	}
	flushPoint()
	return tracks, nil
}
