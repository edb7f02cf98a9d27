package models

import "testing"

func TestNewModeClassification(t *testing.T) {
	cases := []struct {
		name          string
		symmetry      string
		whirl         string
		component     string
		bladeModeType string
	}{
		{"1st BW flap", "asymmetric", "BW", "blade", "flap"},
		{"Sym edge", "symmetric", "", "blade", "edge"},
		{"1st Tower FA", "", "", "tower", ""},
		{"FW tors", "asymmetric", "FW", "blade", "torsion"},
		{"Drivetrain torsion", "", "", "drivetrain", "torsion"},
	}

	for _, tc := range cases {
		mode := NewMode(tc.name)
		if mode.SymmetryType != tc.symmetry {
			t.Errorf("%s: symmetry = %q, want %q", tc.name, mode.SymmetryType, tc.symmetry)
		}
		if mode.WhirlType != tc.whirl {
			t.Errorf("%s: whirl = %q, want %q", tc.name, mode.WhirlType, tc.whirl)
		}
		if mode.Component != tc.component {
			t.Errorf("%s: component = %q, want %q", tc.name, mode.Component, tc.component)
		}
		if mode.BladeModeType != tc.bladeModeType {
			t.Errorf("%s: blade mode type = %q, want %q", tc.name, mode.BladeModeType, tc.bladeModeType)
		}
	}
}

func TestModeRecordRoundTrip(t *testing.T) {
	original := NewMode("2nd FW edge")

	decoded, err := DecodeRecord(original.EncodeRecord())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestDecodeRecordLegacyFourFields(t *testing.T) {
	mode, err := DecodeRecord("1st BW flap$asymmetric$BW$blade")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mode.Name != "1st BW flap" || mode.BladeModeType != "" {
		t.Fatalf("unexpected mode: %+v", mode)
	}

	if _, err := DecodeRecord("only$three$fields"); err == nil {
		t.Fatal("expected error for 3-field record")
	}
}

func TestUniqueName(t *testing.T) {
	taken := []string{"Tower FA", "Tower FA (1)", "Tower FA (2)"}
	if got := UniqueName("Tower FA", taken); got != "Tower FA (3)" {
		t.Fatalf("got %q, want %q", got, "Tower FA (3)")
	}
	if got := UniqueName("Tower SS", taken); got != "Tower SS" {
		t.Fatalf("got %q, want unchanged %q", got, "Tower SS")
	}
}

func TestModeMatchesFilter(t *testing.T) {
	mode := NewMode("1st BW flap")

	if !mode.Matches(ModeFilter{"all", "all", "all", "all"}) {
		t.Fatal("wildcard filter should match")
	}
	if !mode.Matches(ModeFilter{"asymmetric", "BW", "all", "flap"}) {
		t.Fatal("exact filter should match")
	}
	if mode.Matches(ModeFilter{"symmetric", "all", "all", "all"}) {
		t.Fatal("mismatched symmetry should not match")
	}
}
