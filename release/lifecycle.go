package release

import (
	"fmt"
	"log/slog"
	"time"
)

const isodateLayout = "2006-01-02"

// IsodateToTimestamp converts an ISO 8601 date, with or without a
// time component, to a unix timestamp. A bare date is taken as
// midnight UTC.
func IsodateToTimestamp(isodate string) (int64, error) {
	for _, layout := range []string{"2006-01-02T15:04:05Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, isodate); err == nil {
			return t.Unix(), nil
		}
	}
	t, err := time.Parse(isodateLayout, isodate)
	if err != nil {
		return 0, fmt.Errorf("invalid isodate %q", isodate)
	}
	return t.Unix(), nil
}

func TimestampToIsodate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(isodateLayout)
}

func TimestampToIsotime(ts int64) string {
	if ts == 0 {
		return "N/A"
	}
	return time.Unix(ts, 0).UTC().Format("15:04:05")
}

// EnsureDates fills the missing half of every populated lifecycle
// milestone: a present isodate yields the timestamp and vice versa.
// Fully absent milestones are left absent.
func EnsureDates(l *Lifecycle) error {
	stamps := []*Stamp{&l.Released, l.Extended, l.Eol}
	for _, s := range stamps {
		if s == nil || s.IsZero() {
			continue
		}
		if s.Isodate != "" && s.Timestamp == 0 {
			ts, err := IsodateToTimestamp(s.Isodate)
			if err != nil {
				return err
			}
			s.Timestamp = ts
		} else if s.Timestamp != 0 && s.Isodate == "" {
			s.Isodate = TimestampToIsodate(s.Timestamp)
		}
	}
	return nil
}

// CascadeEol propagates end-of-life dates through patch releases.
// Within each major version, every patch release gets the released
// date of its next sibling as its EOL; the newest patch release
// inherits the EOL of the matching stable release. A missing stable
// parent is warned about and leaves the EOL unset.
func CascadeEol(stable, patch []*Release, log *slog.Logger) {
	byMajor := make(map[int][]*Release)
	for _, r := range patch {
		if r.Version.Major.Next {
			continue
		}
		byMajor[r.Version.Major.Value] = append(byMajor[r.Version.Major.Value], r)
	}

	for major, siblings := range byMajor {
		Sort(siblings)

		var parent *Release
		for _, s := range stable {
			if !s.Version.Major.Next && s.Version.Major.Value == major {
				parent = s
				break
			}
		}

		for i, r := range siblings {
			if i < len(siblings)-1 {
				released := siblings[i+1].Lifecycle.Released
				r.Lifecycle.Eol = &Stamp{Isodate: released.Isodate, Timestamp: released.Timestamp}
				continue
			}
			if parent == nil {
				log.Warn("no stable release found, skipping EOL update", "major", major)
				continue
			}
			if parent.Lifecycle.Eol != nil {
				eol := *parent.Lifecycle.Eol
				r.Lifecycle.Eol = &eol
			}
		}
	}
}
