package models

import "fmt"

// ToolFamily identifies a supported linearization tool. The set is closed:
// dispatch happens once at ingestion start over these variants, not over
// free-form strings.
type ToolFamily string

const (
	// ToolHawcStab2 is the frequency-domain tool (.cmb/.amp/.opt/.bin files).
	ToolHawcStab2 ToolFamily = "hawcstab2"
	// ToolBladedLin is the time-domain Floquet tool (Bladed result bundle).
	ToolBladedLin ToolFamily = "bladed-lin"
)

// ParseToolFamily validates a tool identifier.
func ParseToolFamily(s string) (ToolFamily, error) {
	switch ToolFamily(s) {
	case ToolHawcStab2:
		return ToolHawcStab2, nil
	case ToolBladedLin:
		return ToolBladedLin, nil
	default:
		return "", fmt.Errorf("unknown tool family %q", s)
	}
}

// HawcStab2Request names the input files for one HAWCStab2 ingestion.
// Any path may be empty; the corresponding stage is skipped.
type HawcStab2Request struct {
	CmbPath string `json:"cmbPath"`
	AmpPath string `json:"ampPath"`
	OptPath string `json:"optPath"`
	BinPath string `json:"binPath"`

	// Header lines skipped per file. Zero values fall back to configured
	// defaults (1 for .cmb/.opt, 5 for .amp).
	SkipHeaderCmb int `json:"skipHeaderCmb"`
	SkipHeaderAmp int `json:"skipHeaderAmp"`
	SkipHeaderOpt int `json:"skipHeaderOpt"`
}

// BladedRequest locates one Bladed linearization result bundle.
type BladedRequest struct {
	ResultDir    string `json:"resultDir"`
	ResultPrefix string `json:"resultPrefix"`
}

// IngestRequest is the typed per-family ingestion request resolved by the
// service facade.
type IngestRequest struct {
	Tool      ToolFamily        `json:"tool"`
	Name      string            `json:"name"`
	HawcStab2 *HawcStab2Request `json:"hawcstab2,omitempty"`
	Bladed    *BladedRequest    `json:"bladed,omitempty"`
}

// Validate checks that the request carries the configuration struct matching
// its tool family.
func (r IngestRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("dataset name is required")
	}
	switch r.Tool {
	case ToolHawcStab2:
		if r.HawcStab2 == nil {
			return fmt.Errorf("hawcstab2 request configuration is required")
		}
	case ToolBladedLin:
		if r.Bladed == nil {
			return fmt.Errorf("bladed request configuration is required")
		}
		if r.Bladed.ResultDir == "" || r.Bladed.ResultPrefix == "" {
			return fmt.Errorf("bladed result directory and prefix are required")
		}
	default:
		return fmt.Errorf("unknown tool family %q", r.Tool)
	}
	return nil
}
