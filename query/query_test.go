package query

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"reldb/exitcode"
	"reldb/release"
)

func sample(name string, typ release.Type, major, minor int, eol int64) *release.Release {
	m := minor
	r := &release.Release{
		Name:    name,
		Type:    typ,
		Version: release.Version{Major: release.Major{Value: major}, Minor: &m},
		Lifecycle: release.Lifecycle{
			Released: release.Stamp{Isodate: "2024-08-09", Timestamp: 1723161600},
		},
	}
	if eol != 0 {
		r.Lifecycle.Eol = &release.Stamp{
			Isodate:   release.TimestampToIsodate(eol),
			Timestamp: eol,
		}
	}
	return r
}

func TestParseTypes(t *testing.T) {
	types, err := ParseTypes("stable, patch")
	if err != nil {
		t.Fatalf("ParseTypes: %v", err)
	}
	if len(types) != 2 || types[0] != release.TypeStable || types[1] != release.TypePatch {
		t.Fatalf("types = %v", types)
	}

	if _, err := ParseTypes("stable,weekly"); err == nil {
		t.Fatal("accepted unknown type")
	}
}

func TestFilterVersion(t *testing.T) {
	releases := []*release.Release{
		sample("patch-27.0", release.TypePatch, 27, 0, 0),
		sample("patch-27.1", release.TypePatch, 27, 1, 0),
		sample("patch-1592.0", release.TypePatch, 1592, 0, 0),
	}

	out, err := FilterVersion(releases, "27")
	if err != nil {
		t.Fatalf("FilterVersion(27): %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("major filter kept %d, want 2", len(out))
	}

	out, err = FilterVersion(releases, "27.1")
	if err != nil {
		t.Fatalf("FilterVersion(27.1): %v", err)
	}
	if len(out) != 1 || out[0].Name != "patch-27.1" {
		t.Fatalf("minor filter kept %v", out)
	}

	if _, err := FilterVersion(releases, "latest"); err == nil {
		t.Fatal("accepted non-numeric version filter")
	}
}

func TestFilterActiveArchived(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	releases := []*release.Release{
		sample("patch-27.0", release.TypePatch, 27, 0, now.Unix()-86400),
		sample("patch-27.1", release.TypePatch, 27, 1, now.Unix()+86400),
		sample("patch-27.2", release.TypePatch, 27, 2, 0), // no EOL yet
	}

	active := FilterActive(releases, now)
	if len(active) != 1 || active[0].Name != "patch-27.1" {
		t.Fatalf("active = %v", active)
	}

	archived := FilterArchived(releases, now)
	if len(archived) != 1 || archived[0].Name != "patch-27.0" {
		t.Fatalf("archived = %v", archived)
	}
}

func TestLoadAllFromFiles(t *testing.T) {
	dir := t.TempDir()
	doc := `{"releases": [{"name": "stable-27", "type": "stable", "version": {"major": 27}, "lifecycle": {"released": {"isodate": "2021-04-28"}}}]}`
	if err := os.WriteFile(filepath.Join(dir, "releases-stable.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	src := Source{
		Type:   "file",
		Prefix: filepath.Join(dir, "releases"),
		Format: "json",
	}
	releases, err := LoadAll(src, []release.Type{release.TypeStable})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(releases) != 1 || releases[0].Name != "stable-27" {
		t.Fatalf("loaded %v", releases)
	}
}

func TestLoadAllMissingFile(t *testing.T) {
	src := Source{
		Type:   "file",
		Prefix: filepath.Join(t.TempDir(), "releases"),
		Format: "json",
	}
	_, err := LoadAll(src, []release.Type{release.TypeStable})
	if err == nil {
		t.Fatal("missing file did not error")
	}
	if exitcode.Code(err) != exitcode.FileNotFound {
		t.Fatalf("exit code = %d, want %d", exitcode.Code(err), exitcode.FileNotFound)
	}
}

func TestLoadAllBadFormat(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "releases-stable.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	src := Source{Type: "file", Prefix: filepath.Join(dir, "releases"), Format: "json"}
	_, err := LoadAll(src, []release.Type{release.TypeStable})
	if exitcode.Code(err) != exitcode.Format {
		t.Fatalf("exit code = %d, want %d", exitcode.Code(err), exitcode.Format)
	}
}
