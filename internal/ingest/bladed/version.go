package bladed

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout identifies which result-bundle convention a tool version writes.
type Layout int

const (
	// LayoutLegacy (< 4.7): ASCII coupled-mode data, rotor speed only,
	// rotor harmonics mixed into the mode axis, no usable participations.
	LayoutLegacy Layout = iota
	// LayoutTransitional (4.7 - 4.8): binary coupled-mode data but
	// incomplete operating-point channels; participation points zip
	// positionally with the tracked curves.
	LayoutTransitional
	// LayoutModern (>= 4.9): full operating-point channels; participation
	// points carry enough state to be matched individually.
	LayoutModern
)

func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutTransitional:
		return "transitional"
	default:
		return "modern"
	}
}

// Version is a parsed tool version. Trailing segments beyond the patch are
// accepted and ignored.
type Version struct {
	Major, Minor, Patch int
	Raw                 string
}

// ParseVersion parses a dotted version string such as "4.8" or "4.6.0.1".
func ParseVersion(raw string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("version %q: want at least major.minor", raw)
	}
	v := Version{Raw: raw}
	for i, dst := range []*int{&v.Major, &v.Minor, &v.Patch} {
		if i >= len(parts) {
			break
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return Version{}, fmt.Errorf("version %q: segment %q: %w", raw, parts[i], err)
		}
		*dst = n
	}
	return v, nil
}

// Layout selects the bundle convention for this version.
func (v Version) Layout() Layout {
	switch {
	case v.Minor <= 6:
		return LayoutLegacy
	case v.Minor <= 8:
		return LayoutTransitional
	default:
		return LayoutModern
	}
}
