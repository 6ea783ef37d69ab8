package release

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Threshold is the major version at which the record schema switches
// from the v1 generation (major.minor) to the v2 generation
// (major.minor.patch).
const Threshold = 2000

// Epoch is the calendar date the major version counts days from.
var Epoch = time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC)

// Derive computes the version for a new release of the given type at
// the given date. The major version is the number of whole days since
// the epoch. For sub-versioned types the minor (and, at or above the
// schema threshold, the patch) component is the next free one among
// the supplied existing releases. Callers must work from a fresh
// snapshot of existing releases; two writers deriving against the
// same stale snapshot will collide.
func Derive(t Type, date time.Time, existing []*Release) Version {
	if t == TypeNext {
		return Version{Major: Major{Next: true}}
	}

	major := int(date.UTC().Sub(Epoch).Hours() / 24)
	if t == TypeStable {
		return Version{Major: Major{Value: major}}
	}

	minor := nextFree(existing, t, func(r *Release) (int, bool) {
		if r.Version.Major.Next || r.Version.Major.Value != major {
			return 0, false
		}
		return r.Version.MinorOr0(), true
	})

	v := Version{Major: Major{Value: major}, Minor: &minor}
	if major >= Threshold {
		patch := nextFree(existing, t, func(r *Release) (int, bool) {
			if r.Version.Major.Next || r.Version.Major.Value != major || r.Version.MinorOr0() != minor {
				return 0, false
			}
			return r.Version.PatchOr0(), true
		})
		v.Patch = &patch
	}
	return v
}

func nextFree(existing []*Release, t Type, component func(*Release) (int, bool)) int {
	next := 0
	for _, r := range existing {
		if r.Type != t {
			continue
		}
		if n, ok := component(r); ok && n+1 > next {
			next = n + 1
		}
	}
	return next
}

// ValidateInputVersion checks a user-supplied version string against
// the schema generation its major version falls into. Stable and next
// releases carry no sub-version and always pass.
func ValidateInputVersion(version string, t Type) error {
	if t == TypeStable || t == TypeNext {
		return nil
	}

	parts := strings.Split(version, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("invalid version %q: expected 'major.minor' or 'major.minor.patch'", version)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: major version must be an integer", version)
	}

	if major < Threshold && len(parts) == 3 {
		return fmt.Errorf("version %s uses the v1 schema (major < %d) and must not have a patch version: use 'major.minor'", version, Threshold)
	}
	if major >= Threshold && len(parts) == 2 {
		return fmt.Errorf("version %s uses the v2 schema (major >= %d) and is missing a patch version: use 'major.minor.patch'", version, Threshold)
	}
	return nil
}

// ParseVersion parses an explicit version string for the given
// release type, enforcing the schema-generation format.
func ParseVersion(version string, t Type) (Version, error) {
	if t == TypeNext {
		return Version{Major: Major{Next: true}}, nil
	}
	if t == TypeStable {
		if strings.Contains(version, ".") {
			return Version{}, fmt.Errorf("invalid version %q for stable release: use a bare major version", version)
		}
		major, err := strconv.Atoi(version)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: major version must be an integer", version)
		}
		return Version{Major: Major{Value: major}}, nil
	}

	if err := ValidateInputVersion(version, t); err != nil {
		return Version{}, err
	}
	parts := strings.Split(version, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: components must be integers", version)
		}
		nums[i] = n
	}
	v := Version{Major: Major{Value: nums[0]}, Minor: &nums[1]}
	if len(nums) > 2 {
		v.Patch = &nums[2]
	}
	return v, nil
}
