package release

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseName parses a canonical record name of the form
// "type-major", "type-major.minor" or "type-major.minor.patch".
// The next release is named plainly "next".
func ParseName(name string) (Type, Version, error) {
	if name == "next" {
		return TypeNext, Version{Major: Major{Next: true}}, nil
	}

	typePart, versionPart, found := strings.Cut(name, "-")
	if !found {
		return "", Version{}, fmt.Errorf("invalid release name %q: expected 'type-major[.minor[.patch]]'", name)
	}

	t, err := ParseType(typePart)
	if err != nil {
		return "", Version{}, fmt.Errorf("invalid release name %q: %w", name, err)
	}

	parts := strings.Split(versionPart, ".")
	if len(parts) > 3 {
		return "", Version{}, fmt.Errorf("invalid version in release name %q", name)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", Version{}, fmt.Errorf("invalid version in release name %q: components must be integers", name)
		}
		nums[i] = n
	}

	v := Version{Major: Major{Value: nums[0]}}
	if len(nums) > 1 {
		v.Minor = &nums[1]
	}
	if len(nums) > 2 {
		v.Patch = &nums[2]
	}
	return t, v, nil
}

// FormatName reconstructs the canonical record name from type and
// version. Components absent from the version are omitted.
func FormatName(t Type, v Version) string {
	if t == TypeNext {
		return "next"
	}
	name := fmt.Sprintf("%s-%s", t, v.Major)
	if v.Minor != nil {
		name += fmt.Sprintf(".%d", *v.Minor)
	}
	if v.Patch != nil {
		name += fmt.Sprintf(".%d", *v.Patch)
	}
	return name
}

// VersionString renders a version for display. Stable and next
// releases show the major component only.
func VersionString(t Type, v Version) string {
	if t == TypeStable || t == TypeNext {
		return v.Major.String()
	}
	s := fmt.Sprintf("%s.%d", v.Major, v.MinorOr0())
	if v.Patch != nil {
		s += fmt.Sprintf(".%d", *v.Patch)
	}
	return s
}
