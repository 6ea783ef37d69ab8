package release

import (
	"encoding/json"
	"testing"
)

func TestMajorWireForm(t *testing.T) {
	data, err := json.Marshal(Version{Major: Major{Next: true}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"major":"next"}` {
		t.Fatalf("next wire form = %s", data)
	}

	var v Version
	if err := json.Unmarshal([]byte(`{"major":1592,"minor":4}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Major.Next || v.Major.Value != 1592 || v.MinorOr0() != 4 {
		t.Fatalf("parsed %+v", v)
	}

	if err := json.Unmarshal([]byte(`{"major":"latest"}`), &v); err == nil {
		t.Fatal(`accepted major "latest"`)
	}
}

func TestSortPlacesNextLast(t *testing.T) {
	releases := []*Release{
		{Name: "next", Type: TypeNext, Version: Version{Major: Major{Next: true}}},
		mkRelease(TypeNightly, 1592, 1),
		mkRelease(TypeNightly, 1592, 0),
		mkRelease(TypeNightly, 27, 5),
	}
	Sort(releases)
	want := []string{"nightly-27.5", "nightly-1592.0", "nightly-1592.1", "next"}
	for i, name := range want {
		if releases[i].Name != name {
			t.Fatalf("releases[%d] = %q, want %q", i, releases[i].Name, name)
		}
	}
}

func TestLatest(t *testing.T) {
	releases := []*Release{
		mkRelease(TypePatch, 27, 3),
		mkRelease(TypePatch, 1592, 0),
		mkRelease(TypePatch, 1592, 4),
		{Name: "next", Type: TypeNext, Version: Version{Major: Major{Next: true}}},
	}
	latest := Latest(releases)
	if latest == nil || latest.Name != "patch-1592.4" {
		t.Fatalf("Latest = %v, want patch-1592.4", latest)
	}

	if Latest(nil) != nil {
		t.Fatal("Latest(nil) != nil")
	}
}

func TestUpdateSourceRepoAttributes(t *testing.T) {
	releases := []*Release{
		mkRelease(TypePatch, 1592, 3),
		mkRelease(TypePatch, 1592, 4),
		mkRelease(TypePatch, 1593, 0),
		mkRelease(TypePatch, 27, 0),
	}
	UpdateSourceRepoAttributes(releases)

	want := []bool{false, true, true, false}
	for i, r := range releases {
		if r.Attributes == nil || r.Attributes.SourceRepo != want[i] {
			t.Fatalf("%s source_repo = %+v, want %t", r.Name, r.Attributes, want[i])
		}
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	releases := []*Release{
		mkRelease(TypeNightly, 1592, 0),
		mkRelease(TypeStable, 1592, 0),
		mkRelease(TypePatch, 1592, 1),
	}
	joined := Join(SplitByType(releases))
	if len(joined) != 3 {
		t.Fatalf("len = %d, want 3", len(joined))
	}
	// Storage order: stable before patch before nightly.
	want := []string{"stable-1592.0", "patch-1592.1", "nightly-1592.0"}
	for i, name := range want {
		if joined[i].Name != name {
			t.Fatalf("joined[%d] = %q, want %q", i, joined[i].Name, name)
		}
	}
}
