package models

import "fmt"

// DiagnosticKind enumerates recoverable ingestion problems.
type DiagnosticKind string

const (
	// DiagMissingFile marks an input file that does not exist; the stage
	// returned without mutating the dataset.
	DiagMissingFile DiagnosticKind = "missing_file"
	// DiagShapeMismatch marks disagreeing mode/operating-point counts between
	// two input files; the stage was aborted.
	DiagShapeMismatch DiagnosticKind = "shape_mismatch"
	// DiagAmbiguousLinkage marks a (operating point, mode) cell whose
	// participation data matched zero or more than one candidate.
	DiagAmbiguousLinkage DiagnosticKind = "ambiguous_linkage"
	// DiagUnknownName marks a persisted mode record that could not be decoded.
	DiagUnknownName DiagnosticKind = "unknown_name"
	// DiagUnsupportedVersion marks a tool version outside the handled ranges;
	// the nearest older supported layout was used instead.
	DiagUnsupportedVersion DiagnosticKind = "unsupported_version"
	// DiagCapabilityGap marks data the producing tool version cannot provide.
	DiagCapabilityGap DiagnosticKind = "capability_gap"
	// DiagConsistencyWarning marks independently obtained values that disagree
	// within linkage without blocking it.
	DiagConsistencyWarning DiagnosticKind = "consistency_warning"
)

// Diagnostic is a structured record of a locally recovered ingestion problem.
// Diagnostics are collected alongside the partially populated dataset instead
// of being raised as fatal errors: a partial Campbell diagram is more useful
// than none.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Context string         `json:"context"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Context)
}

// Diagnostics accumulates diagnostics during an ingestion run.
type Diagnostics []Diagnostic

// Add appends a diagnostic with a formatted context string.
func (d *Diagnostics) Add(kind DiagnosticKind, format string, args ...any) {
	*d = append(*d, Diagnostic{Kind: kind, Context: fmt.Sprintf(format, args...)})
}

// Count returns the number of diagnostics of the given kind.
func (d Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, diag := range d {
		if diag.Kind == kind {
			n++
		}
	}
	return n
}
