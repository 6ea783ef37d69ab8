package query

import (
	"fmt"
	"math"
	"strings"
	"time"

	"reldb/release"
)

// FormatGantt renders release, maintenance and EOL milestones as a
// Mermaid Gantt chart.
func FormatGantt(description string, releases []*release.Release) string {
	var b strings.Builder
	b.WriteString("gantt\n")
	fmt.Fprintf(&b, "    title %s\n", description)
	b.WriteString("    axisFormat %m.%y")

	parse := func(s *release.Stamp) (time.Time, bool) {
		if s == nil || s.Isodate == "" {
			return time.Time{}, false
		}
		t, err := time.Parse("2006-01-02", s.Isodate)
		return t, err == nil
	}

	for _, r := range releases {
		fmt.Fprintf(&b, "\n    section %s", release.VersionString(r.Type, r.Version))

		released, haveReleased := parse(&r.Lifecycle.Released)
		extended, haveExtended := parse(r.Lifecycle.Extended)
		eol, haveEol := parse(r.Lifecycle.Eol)

		if haveReleased {
			fmt.Fprintf(&b, "\n        Release: milestone, %s, 0m", released.Format("2006-01-02"))
		}
		if haveReleased && haveExtended {
			fmt.Fprintf(&b, "\n        Standard maintenance: task, %s, %dM",
				released.Format("2006-01-02"), monthsBetween(released, extended))
		}
		if haveExtended && haveEol {
			fmt.Fprintf(&b, "\n        Extended maintenance: milestone, %s, 0m", extended.Format("2006-01-02"))
			fmt.Fprintf(&b, "\n        Extended maintenance: task, %s, %dM",
				extended.Format("2006-01-02"), monthsBetween(extended, eol))
			fmt.Fprintf(&b, "\n        End of maintenance: milestone, %s, 0m", eol.Format("2006-01-02"))
		} else if haveEol {
			fmt.Fprintf(&b, "\n        End of maintenance: milestone, %s, 0m", eol.Format("2006-01-02"))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// monthsBetween approximates the span in calendar months.
func monthsBetween(start, end time.Time) int {
	days := end.Sub(start).Hours() / 24
	return int(math.Round(days / 30.44))
}
