package manager

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"reldb/exitcode"
	"reldb/release"
)

const datetimeLayout = "2006-01-02T15:04:05"

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Build constructs a single release of the given type from the
// invocation options, deriving whatever was not supplied explicitly.
func (m *Manager) Build(ctx context.Context, t release.Type, opts Options, existing []*release.Release) (*release.Release, error) {
	releaseDate, err := m.lifecycleDate(opts.ReleasedAt, "--lifecycle-released-isodatetime")
	if err != nil {
		return nil, err
	}
	if releaseDate == nil {
		now := m.Now().UTC()
		releaseDate = &now
	}
	released := release.Stamp{
		Isodate:   releaseDate.Format("2006-01-02"),
		Timestamp: releaseDate.Unix(),
	}

	extended, err := m.defaultedDate(opts.ExtendedAt, "--lifecycle-extended-isodatetime", t, *releaseDate, 6)
	if err != nil {
		return nil, err
	}
	eol, err := m.defaultedDate(opts.EolAt, "--lifecycle-eol-isodatetime", t, *releaseDate, 9)
	if err != nil {
		return nil, err
	}

	var version release.Version
	if opts.Version != "" {
		version, err = release.ParseVersion(opts.Version, t)
		if err != nil {
			return nil, exitcode.Wrap(exitcode.Validation, err)
		}
	} else {
		version = release.Derive(t, *releaseDate, existing)
	}

	rel := &release.Release{
		Name:      release.FormatName(t, version),
		Type:      t,
		Version:   version,
		Lifecycle: release.Lifecycle{Released: released},
	}

	switch t {
	case release.TypeNext, release.TypeStable:
		rel.Lifecycle.Extended = extended
		rel.Lifecycle.Eol = eol
		return rel, nil
	case release.TypePatch:
		rel.Lifecycle.Eol = eol
		rel.GitHub = &release.GitHub{
			Release: fmt.Sprintf("https://github.com/%s/%s/releases/tag/%s.%d",
				m.cfg.RepoOwner, m.cfg.RepoName, version.Major, version.MinorOr0()),
		}
	}

	// patch, nightly and dev carry git provenance, flavors and attributes.
	commit, commitShort, err := m.resolveCommit(ctx, opts.Commit, released.Isodate)
	if err != nil {
		return nil, err
	}
	rel.Git = &release.Git{Commit: commit, CommitShort: commitShort}

	flavors, err := m.Flavors(ctx, commit, version)
	if err != nil {
		return nil, err
	}
	if len(flavors) == 0 {
		m.log.Info("no flavors found", "version", release.VersionString(t, version), "commit", commitShort)
	}
	rel.Flavors = flavors

	release.UpdateSourceRepoAttributes([]*release.Release{rel})
	return rel, nil
}

// lifecycleDate parses an explicit ISO datetime override, interpreted
// as UTC. Nil means no override was given.
func (m *Manager) lifecycleDate(value, flag string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(datetimeLayout, value)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.Validation,
			fmt.Errorf("invalid %s format, use ISO format: YYYY-MM-DDTHH:MM:SS", flag))
	}
	t = t.UTC()
	return &t, nil
}

// defaultedDate resolves an extended/eol milestone: the explicit
// override if given, the stable default (release date plus months,
// calendar-relative) for stable releases, an empty block otherwise.
// Patch EOL dates are later filled by the cascade.
func (m *Manager) defaultedDate(value, flag string, t release.Type, releaseDate time.Time, months int) (*release.Stamp, error) {
	explicit, err := m.lifecycleDate(value, flag)
	if err != nil {
		return nil, err
	}
	if explicit != nil {
		return &release.Stamp{
			Isodate:   explicit.Format("2006-01-02"),
			Timestamp: explicit.Unix(),
		}, nil
	}
	if t == release.TypeStable {
		d := releaseDate.AddDate(0, months, 0)
		return &release.Stamp{
			Isodate:   d.Format("2006-01-02"),
			Timestamp: d.Unix(),
		}, nil
	}
	return &release.Stamp{}, nil
}

// resolveCommit validates an explicit commit hash or resolves the
// commit live at the release date, 06:00 UTC.
func (m *Manager) resolveCommit(ctx context.Context, commit, isodate string) (string, string, error) {
	if commit != "" {
		if !commitPattern.MatchString(commit) {
			return "", "", exitcode.Wrap(exitcode.Validation,
				fmt.Errorf("invalid commit hash %q: must be 40 hex characters", commit))
		}
		return commit, commit[:8], nil
	}

	day, err := time.Parse("2006-01-02", isodate)
	if err != nil {
		return "", "", exitcode.Wrap(exitcode.Validation, fmt.Errorf("invalid isodate %q", isodate))
	}
	repo, err := m.gitRepo(ctx)
	if err != nil {
		return "", "", err
	}
	full, short, err := repo.CommitAt(day.Add(6 * time.Hour))
	if err != nil {
		return "", "", exitcode.Wrap(exitcode.Git, err)
	}
	return full, short, nil
}
