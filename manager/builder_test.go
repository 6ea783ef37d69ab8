package manager

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"reldb/config"
	"reldb/release"
)

func newTestManager(now time.Time) *Manager {
	return &Manager{
		cfg: config.New(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now: func() time.Time { return now },
	}
}

func TestBuildStableDefaults(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	rel, err := m.Build(context.Background(), release.TypeStable, Options{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rel.Name != "stable-1737" {
		t.Fatalf("name = %q, want stable-1737", rel.Name)
	}
	if rel.Lifecycle.Released.Isodate != "2025-01-01" {
		t.Fatalf("released = %q", rel.Lifecycle.Released.Isodate)
	}
	if rel.Lifecycle.Extended == nil || rel.Lifecycle.Extended.Isodate != "2025-07-01" {
		t.Fatalf("extended = %+v, want 2025-07-01", rel.Lifecycle.Extended)
	}
	if rel.Lifecycle.Eol == nil || rel.Lifecycle.Eol.Isodate != "2025-10-01" {
		t.Fatalf("eol = %+v, want 2025-10-01", rel.Lifecycle.Eol)
	}
}

func TestBuildStableExplicitDates(t *testing.T) {
	m := newTestManager(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	opts := Options{
		ReleasedAt: "2025-01-01T06:00:00",
		ExtendedAt: "2026-01-01T00:00:00",
		EolAt:      "2026-06-01T00:00:00",
	}
	rel, err := m.Build(context.Background(), release.TypeStable, opts, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rel.Lifecycle.Released.Isodate != "2025-01-01" {
		t.Fatalf("released = %q", rel.Lifecycle.Released.Isodate)
	}
	if rel.Lifecycle.Extended.Isodate != "2026-01-01" {
		t.Fatalf("extended = %q", rel.Lifecycle.Extended.Isodate)
	}
	if rel.Lifecycle.Eol.Isodate != "2026-06-01" {
		t.Fatalf("eol = %q", rel.Lifecycle.Eol.Isodate)
	}
}

func TestBuildNextCarriesEmptyMilestones(t *testing.T) {
	m := newTestManager(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	rel, err := m.Build(context.Background(), release.TypeNext, Options{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rel.Name != "next" || !rel.Version.Major.Next {
		t.Fatalf("built %q %v", rel.Name, rel.Version)
	}
	if rel.Lifecycle.Extended == nil || rel.Lifecycle.Eol == nil {
		t.Fatal("next release missing extended/eol blocks")
	}
	if !rel.Lifecycle.Extended.IsZero() {
		t.Fatalf("default extended = %+v, want empty", rel.Lifecycle.Extended)
	}
}

func TestBuildRejectsMalformedDatetime(t *testing.T) {
	m := newTestManager(time.Now())

	_, err := m.Build(context.Background(), release.TypeStable, Options{ReleasedAt: "01.01.2025"}, nil)
	if err == nil || !strings.Contains(err.Error(), "ISO format") {
		t.Fatalf("err = %v, want format rejection", err)
	}
}

func TestBuildRejectsExplicitVersionFormat(t *testing.T) {
	m := newTestManager(time.Now())

	_, err := m.Build(context.Background(), release.TypeNightly, Options{Version: "2000.0", Commit: strings.Repeat("a", 40)}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing a patch version") {
		t.Fatalf("err = %v, want v2 generation rejection", err)
	}
}

func TestResolveCommitExplicit(t *testing.T) {
	m := newTestManager(time.Now())

	commit := "0123456789abcdef0123456789abcdef01234567"
	full, short, err := m.resolveCommit(context.Background(), commit, "2025-01-01")
	if err != nil {
		t.Fatalf("resolveCommit: %v", err)
	}
	if full != commit || short != "01234567" {
		t.Fatalf("resolved %q %q", full, short)
	}

	if _, _, err := m.resolveCommit(context.Background(), "abc123", "2025-01-01"); err == nil {
		t.Fatal("accepted a short commit hash")
	}
	if _, _, err := m.resolveCommit(context.Background(), strings.ToUpper(commit), "2025-01-01"); err == nil {
		t.Fatal("accepted an uppercase commit hash")
	}
}
