package manager

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"reldb/exitcode"
	"reldb/release"
)

var tagPattern = regexp.MustCompile(`^(\d+)\.?(\d+)?\.?(\d+)?$`)

// defaultNightlyStart is the first day with a nightly build.
var defaultNightlyStart = time.Date(2020, 6, 9, 6, 0, 0, 0, time.UTC)

// InitialStablePatch reconstructs the stable and patch history from the
// published releases of the upstream repository.
func (m *Manager) InitialStablePatch(ctx context.Context) ([]*release.Release, []*release.Release, error) {
	published, err := m.hub.Releases(ctx)
	if err != nil {
		return nil, nil, exitcode.Wrap(exitcode.Git, err)
	}

	var stables, patches []*release.Release
	for _, pub := range published {
		parts := tagPattern.FindStringSubmatch(pub.Tag)
		if parts == nil {
			m.log.Debug("skipping unversioned tag", "tag", pub.Tag)
			continue
		}
		major := atoi(parts[1])
		released := release.Stamp{
			Isodate:   pub.PublishedAt.UTC().Format("2006-01-02"),
			Timestamp: pub.PublishedAt.Unix(),
		}

		if parts[2] == "" {
			stables = append(stables, &release.Release{
				Name:    fmt.Sprintf("stable-%d", major),
				Type:    release.TypeStable,
				Version: release.Version{Major: release.Major{Value: major}},
				Lifecycle: release.Lifecycle{
					Released: released,
					Extended: &release.Stamp{},
					Eol:      &release.Stamp{},
				},
			})
			continue
		}

		minor := atoi(parts[2])
		version := release.Version{Major: release.Major{Value: major}, Minor: &minor}
		if parts[3] != "" {
			patch := atoi(parts[3])
			version.Patch = &patch
		}

		commit, commitShort, err := m.hub.TagCommit(ctx, pub.Tag)
		if err != nil {
			return nil, nil, exitcode.Wrap(exitcode.Git, err)
		}
		rel := &release.Release{
			Name:      release.FormatName(release.TypePatch, version),
			Type:      release.TypePatch,
			Version:   version,
			Lifecycle: release.Lifecycle{Released: released, Eol: &release.Stamp{}},
			Git:       &release.Git{Commit: commit, CommitShort: commitShort},
			GitHub:    &release.GitHub{Release: pub.HTMLURL},
		}
		flavors, err := m.Flavors(ctx, commit, version)
		if err != nil {
			return nil, nil, err
		}
		rel.Flavors = flavors
		patches = append(patches, rel)
	}

	release.Sort(stables)
	release.Sort(patches)
	release.UpdateSourceRepoAttributes(patches)
	return stables, patches, nil
}

// InitialNightly reconstructs a nightly release per day from the first
// stable release (or the default start date) through today, resolving
// the commit that was current at 06:00 UTC each day.
func (m *Manager) InitialNightly(ctx context.Context, stables []*release.Release) ([]*release.Release, error) {
	start := defaultNightlyStart
	if first := earliestRelease(stables); first != nil {
		day, err := time.Parse("2006-01-02", first.Lifecycle.Released.Isodate)
		if err == nil {
			start = day.Add(6 * time.Hour)
		}
	}
	end := m.Now().UTC().Truncate(24 * time.Hour).Add(6 * time.Hour)

	repo, err := m.gitRepo(ctx)
	if err != nil {
		return nil, err
	}

	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}

	nightlies := make([]*release.Release, len(days))
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	g, gctx := errgroup.WithContext(ctx)
	for i, day := range days {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			commit, commitShort, err := repo.CommitAt(day)
			if err != nil {
				m.log.Debug("no commit for day", "day", day.Format("2006-01-02"), "error", err)
				return nil
			}
			version := release.Derive(release.TypeNightly, day, nil)
			nightlies[i] = &release.Release{
				Name:    release.FormatName(release.TypeNightly, version),
				Type:    release.TypeNightly,
				Version: version,
				Lifecycle: release.Lifecycle{
					Released: release.Stamp{
						Isodate:   day.Format("2006-01-02"),
						Timestamp: day.Unix(),
					},
				},
				Git: &release.Git{Commit: commit, CommitShort: commitShort},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, exitcode.Wrap(exitcode.Git, err)
	}

	var out []*release.Release
	for _, rel := range nightlies {
		if rel != nil {
			out = append(out, rel)
		}
	}
	release.UpdateSourceRepoAttributes(out)
	return out, nil
}

func earliestRelease(releases []*release.Release) *release.Release {
	var first *release.Release
	for _, rel := range releases {
		if first == nil || rel.Lifecycle.Released.Timestamp < first.Lifecycle.Released.Timestamp {
			first = rel
		}
	}
	return first
}

// atoi converts a digits-only submatch; the pattern guarantees validity.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
