package release

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveMajorFromDate(t *testing.T) {
	// 2024-08-09 is 1592 days after the epoch.
	date := time.Date(2024, 8, 9, 6, 0, 0, 0, time.UTC)
	v := Derive(TypeStable, date, nil)
	if v.Major.Value != 1592 {
		t.Fatalf("major = %d, want 1592", v.Major.Value)
	}
	if v.Minor != nil {
		t.Fatalf("stable derivation has minor %d, want none", *v.Minor)
	}
}

func TestDeriveNextMinor(t *testing.T) {
	date := Epoch.AddDate(0, 0, 1592)
	existing := []*Release{
		mkRelease(TypeNightly, 1592, 0),
		mkRelease(TypeNightly, 1592, 1),
		mkRelease(TypePatch, 1592, 7), // other type must not count
	}
	v := Derive(TypeNightly, date, existing)
	if v.Major.Value != 1592 || v.MinorOr0() != 2 {
		t.Fatalf("derived %s, want 1592.2", VersionString(TypeNightly, v))
	}
	if v.Patch != nil {
		t.Fatalf("below-threshold derivation has patch %d, want none", *v.Patch)
	}
}

func TestDeriveWithPatchAboveThreshold(t *testing.T) {
	date := Epoch.AddDate(0, 0, Threshold)
	v := Derive(TypePatch, date, nil)
	if v.Major.Value != Threshold {
		t.Fatalf("major = %d, want %d", v.Major.Value, Threshold)
	}
	if v.Patch == nil || *v.Patch != 0 {
		t.Fatalf("patch = %v, want 0", v.Patch)
	}
}

func TestDeriveNext(t *testing.T) {
	v := Derive(TypeNext, time.Now(), nil)
	if !v.Major.Next {
		t.Fatalf("next derivation major = %v, want next", v.Major)
	}
}

func TestValidateInputVersion(t *testing.T) {
	if err := ValidateInputVersion("1990.0", TypeNightly); err != nil {
		t.Fatalf("1990.0: %v", err)
	}
	if err := ValidateInputVersion("2000.0.0", TypePatch); err != nil {
		t.Fatalf("2000.0.0: %v", err)
	}

	err := ValidateInputVersion("1990.0.1", TypePatch)
	if err == nil || !strings.Contains(err.Error(), "must not have a patch version") {
		t.Fatalf("1990.0.1: %v, want v1 schema rejection", err)
	}
	err = ValidateInputVersion("2000.0", TypePatch)
	if err == nil || !strings.Contains(err.Error(), "missing a patch version") {
		t.Fatalf("2000.0: %v, want v2 schema rejection", err)
	}

	// Stable and next carry no sub-version; format rules do not apply.
	if err := ValidateInputVersion("27", TypeStable); err != nil {
		t.Fatalf("stable 27: %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1592.4", TypePatch)
	if err != nil {
		t.Fatalf("1592.4: %v", err)
	}
	if v.Major.Value != 1592 || v.MinorOr0() != 4 || v.Patch != nil {
		t.Fatalf("1592.4 parsed as %v", v)
	}

	v, err = ParseVersion("2000.1.3", TypePatch)
	if err != nil {
		t.Fatalf("2000.1.3: %v", err)
	}
	if v.PatchOr0() != 3 {
		t.Fatalf("2000.1.3 patch = %d", v.PatchOr0())
	}

	if _, err := ParseVersion("27.1", TypeStable); err == nil {
		t.Fatal("stable 27.1 accepted, want bare-major rejection")
	}
	v, err = ParseVersion("27", TypeStable)
	if err != nil || v.Major.Value != 27 {
		t.Fatalf("stable 27 = %v, %v", v, err)
	}
}

func mkRelease(typ Type, major, minor int) *Release {
	v := Version{Major: Major{Value: major}, Minor: &minor}
	return &Release{
		Name:    FormatName(typ, v),
		Type:    typ,
		Version: v,
	}
}
