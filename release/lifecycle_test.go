package release

import (
	"io"
	"log/slog"
	"testing"
)

func TestIsodateToTimestamp(t *testing.T) {
	ts, err := IsodateToTimestamp("2024-08-09")
	if err != nil {
		t.Fatalf("bare date: %v", err)
	}
	if got := TimestampToIsodate(ts); got != "2024-08-09" {
		t.Fatalf("round trip = %q", got)
	}

	ts, err = IsodateToTimestamp("2024-08-09T06:00:00Z")
	if err != nil {
		t.Fatalf("datetime: %v", err)
	}
	if got := TimestampToIsotime(ts); got != "06:00:00" {
		t.Fatalf("time of day = %q", got)
	}

	// The UTC marker is optional on datetimes.
	naive, err := IsodateToTimestamp("2024-08-09T06:00:00")
	if err != nil {
		t.Fatalf("datetime without zone: %v", err)
	}
	if naive != ts {
		t.Fatalf("zoneless datetime = %d, want %d", naive, ts)
	}

	if _, err := IsodateToTimestamp("09.08.2024"); err == nil {
		t.Fatal("accepted non-ISO date")
	}
}

func TestTimestampToIsotimeZero(t *testing.T) {
	if got := TimestampToIsotime(0); got != "N/A" {
		t.Fatalf("zero timestamp = %q, want N/A", got)
	}
}

func TestEnsureDates(t *testing.T) {
	l := Lifecycle{
		Released: Stamp{Isodate: "2024-08-09"},
		Extended: &Stamp{Timestamp: 1739059200}, // 2025-02-09
		Eol:      &Stamp{},
	}
	if err := EnsureDates(&l); err != nil {
		t.Fatalf("EnsureDates: %v", err)
	}
	if l.Released.Timestamp == 0 {
		t.Fatal("released timestamp not filled")
	}
	if l.Extended.Isodate != "2025-02-09" {
		t.Fatalf("extended isodate = %q, want 2025-02-09", l.Extended.Isodate)
	}
	if !l.Eol.IsZero() {
		t.Fatalf("empty eol was populated: %+v", l.Eol)
	}
}

func TestEnsureDatesInvalid(t *testing.T) {
	l := Lifecycle{Released: Stamp{Isodate: "not-a-date"}}
	if err := EnsureDates(&l); err == nil {
		t.Fatal("accepted invalid isodate")
	}
}

func TestCascadeEol(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	stable := []*Release{{
		Name:    "stable-27",
		Type:    TypeStable,
		Version: Version{Major: Major{Value: 27}},
		Lifecycle: Lifecycle{
			Released: Stamp{Isodate: "2021-04-28", Timestamp: 1619568000},
			Eol:      &Stamp{Isodate: "2022-01-28", Timestamp: 1643328000},
		},
	}}
	patch := []*Release{
		patchRelease(27, 2, "2021-08-02", 1627862400),
		patchRelease(27, 0, "2021-04-28", 1619568000),
		patchRelease(27, 1, "2021-06-11", 1623369600),
	}

	CascadeEol(stable, patch, log)

	byName := map[string]*Release{}
	for _, r := range patch {
		byName[r.Name] = r
	}
	if got := byName["patch-27.0"].Lifecycle.Eol.Isodate; got != "2021-06-11" {
		t.Fatalf("patch-27.0 eol = %q, want sibling release date 2021-06-11", got)
	}
	if got := byName["patch-27.1"].Lifecycle.Eol.Isodate; got != "2021-08-02" {
		t.Fatalf("patch-27.1 eol = %q, want sibling release date 2021-08-02", got)
	}
	if got := byName["patch-27.2"].Lifecycle.Eol.Isodate; got != "2022-01-28" {
		t.Fatalf("patch-27.2 eol = %q, want stable eol 2022-01-28", got)
	}
}

func TestCascadeEolNoParent(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	patch := []*Release{patchRelease(30, 0, "2021-05-01", 1619827200)}
	CascadeEol(nil, patch, log)
	if patch[0].Lifecycle.Eol != nil && !patch[0].Lifecycle.Eol.IsZero() {
		t.Fatalf("orphan patch got eol %+v, want unset", patch[0].Lifecycle.Eol)
	}
}

func patchRelease(major, minor int, isodate string, ts int64) *Release {
	m := minor
	v := Version{Major: Major{Value: major}, Minor: &m}
	return &Release{
		Name:      FormatName(TypePatch, v),
		Type:      TypePatch,
		Version:   v,
		Lifecycle: Lifecycle{Released: Stamp{Isodate: isodate, Timestamp: ts}},
	}
}
