package release

import (
	"strings"
	"testing"
)

func validPatch(major, minor int, patch *int) *Release {
	m := minor
	v := Version{Major: Major{Value: major}, Minor: &m, Patch: patch}
	return &Release{
		Name:    FormatName(TypePatch, v),
		Type:    TypePatch,
		Version: v,
		Lifecycle: Lifecycle{
			Released: Stamp{Isodate: "2024-08-09", Timestamp: 1723161600},
			Eol:      &Stamp{},
		},
		Git: &Git{
			Commit:      "0123456789abcdef0123456789abcdef01234567",
			CommitShort: "01234567",
		},
		GitHub:     &GitHub{Release: "https://github.com/gardenlinux/gardenlinux/releases/tag/1592.4"},
		Attributes: &Attributes{SourceRepo: true},
	}
}

func TestValidateAllAccepts(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	patch := 0
	releases := []*Release{
		validPatch(1592, 4, nil),    // v1 generation, no patch component
		validPatch(2000, 0, &patch), // v2 generation
		{
			Name:    "stable-1592",
			Type:    TypeStable,
			Version: Version{Major: Major{Value: 1592}},
			Lifecycle: Lifecycle{
				Released: Stamp{Isodate: "2024-08-09", Timestamp: 1723161600},
				Extended: &Stamp{},
				Eol:      &Stamp{},
			},
		},
		{
			Name:    "next",
			Type:    TypeNext,
			Version: Version{Major: Major{Next: true}},
			Lifecycle: Lifecycle{
				Released: Stamp{Isodate: "2024-08-09", Timestamp: 1723161600},
				Extended: &Stamp{},
				Eol:      &Stamp{},
			},
		},
	}
	if err := registry.ValidateAll(releases); err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
}

func TestValidateAllRejectsMissingPatch(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	// 2000.0 has no patch component but falls into the v2 generation.
	err = registry.ValidateAll([]*Release{validPatch(2000, 0, nil)})
	if err == nil {
		t.Fatal("accepted a v2 release without patch component")
	}
	if !strings.Contains(err.Error(), "patch-2000.0") {
		t.Fatalf("error does not name the release: %v", err)
	}
}

func TestValidateAllRejectsBadCommit(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	rel := validPatch(1592, 4, nil)
	rel.Git.Commit = "not-a-commit"
	if err := registry.ValidateAll([]*Release{rel}); err == nil {
		t.Fatal("accepted a malformed commit hash")
	}
}

func TestValidateAllAggregates(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	bad1 := validPatch(1592, 4, nil)
	bad1.Git.Commit = "short"
	bad2 := validPatch(2000, 0, nil)

	err = registry.ValidateAll([]*Release{bad1, bad2})
	if err == nil {
		t.Fatal("accepted two invalid releases")
	}
	for _, name := range []string{"patch-1592.4", "patch-2000.0", "validation failed with"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("aggregate error missing %q: %v", name, err)
		}
	}
}

func TestSelectGeneration(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	below := validPatch(1999, 0, nil)
	above := validPatch(2000, 0, nil)
	s1, err := registry.Select(below)
	if err != nil {
		t.Fatalf("Select below threshold: %v", err)
	}
	s2, err := registry.Select(above)
	if err != nil {
		t.Fatalf("Select at threshold: %v", err)
	}
	if s1 == s2 {
		t.Fatal("threshold did not switch schema generations")
	}
}
