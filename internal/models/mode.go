package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// recordDelimiter separates mode fields in the persisted plain-text form.
// It survives storage backends without native complex-object support.
const recordDelimiter = "$"

// Mode describes one aeroelastic mode (coupled track or uncoupled
// participation degree of freedom). Classification tags are inferred from the
// name by keyword matching when not supplied by the producing tool.
type Mode struct {
	Name          string
	SymmetryType  string
	WhirlType     string // BW, FW
	Component     string // blade, tower, drivetrain, ...
	BladeModeType string // edge, flap, torsion
}

// NewMode builds a mode from its name and fills in the classification tags.
func NewMode(name string) Mode {
	m := Mode{Name: name}
	m.categorize()
	return m
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// categorize fills empty classification tags based on keywords in the name.
func (m *Mode) categorize() {
	lower := strings.ToLower(m.Name)

	if m.SymmetryType == "" {
		if containsAny(lower, "sym", "symmetric", "collective") {
			m.SymmetryType = "symmetric"
		} else if containsAny(lower, "fw", "bw", "forward whirl", "backward whirl", "cyclic") {
			m.SymmetryType = "asymmetric"
		}
	}

	if m.WhirlType == "" {
		if containsAny(lower, "fw", "forward whirl") {
			m.WhirlType = "FW"
		} else if containsAny(lower, "bw", "backward whirl") {
			m.WhirlType = "BW"
		}
	}

	if m.Component == "" {
		if containsAny(lower, "twr", "tower") {
			m.Component = "tower"
		} else if containsAny(lower, "drivetrain", "drvtrn") {
			m.Component = "drivetrain"
		} else if containsAny(lower, "rotor", "blade", "bw", "fw", "backward whirl",
			"forward whirl", "edge", "flap", "edgewise", "flapwise") {
			m.Component = "blade"
		}
	}

	if m.BladeModeType == "" {
		if containsAny(lower, "edge") {
			m.BladeModeType = "edge"
		} else if containsAny(lower, "flap") {
			m.BladeModeType = "flap"
		} else if containsAny(lower, "tors") {
			m.BladeModeType = "torsion"
		}
	}
}

// ModeFilter selects modes by classification. "all" acts as a wildcard.
type ModeFilter struct {
	SymmetryType  string
	WhirlType     string
	Component     string
	BladeModeType string
}

// Matches reports whether the mode satisfies every filter field.
func (m Mode) Matches(f ModeFilter) bool {
	return (m.SymmetryType == f.SymmetryType || f.SymmetryType == "all") &&
		(m.WhirlType == f.WhirlType || f.WhirlType == "all") &&
		(m.Component == f.Component || f.Component == "all") &&
		(m.BladeModeType == f.BladeModeType || f.BladeModeType == "all")
}

// EncodeRecord condenses the mode into a single delimited text record.
func (m Mode) EncodeRecord() string {
	return strings.Join([]string{m.Name, m.SymmetryType, m.WhirlType, m.Component, m.BladeModeType}, recordDelimiter)
}

// DecodeRecord rebuilds a mode from its delimited text record. Legacy 4-field
// records (without a blade mode type) are accepted.
func DecodeRecord(record string) (Mode, error) {
	fields := strings.Split(record, recordDelimiter)
	switch len(fields) {
	case 4:
		return Mode{Name: fields[0], SymmetryType: fields[1], WhirlType: fields[2], Component: fields[3]}, nil
	case 5:
		return Mode{Name: fields[0], SymmetryType: fields[1], WhirlType: fields[2], Component: fields[3], BladeModeType: fields[4]}, nil
	default:
		return Mode{}, fmt.Errorf("mode record has %d fields, want 4 or 5", len(fields))
	}
}

var nameSuffix = regexp.MustCompile(`\(([0-9]+)\)$`)

// UniqueName modifies name until it does not collide with taken, by appending
// (1), (2), ... or incrementing an existing numeric suffix.
func UniqueName(name string, taken []string) string {
	inUse := func(candidate string) bool {
		for _, t := range taken {
			if t == candidate {
				return true
			}
		}
		return false
	}

	for inUse(name) {
		if match := nameSuffix.FindStringSubmatch(name); match != nil {
			n, _ := strconv.Atoi(match[1])
			name = nameSuffix.ReplaceAllString(name, fmt.Sprintf("(%d)", n+1))
		} else {
			name += " (1)"
		}
	}
	return name
}
