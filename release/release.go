package release

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Type string

const (
	TypeNext    Type = "next"
	TypeStable  Type = "stable"
	TypePatch   Type = "patch"
	TypeNightly Type = "nightly"
	TypeDev     Type = "dev"
)

// Types lists all release types in storage order.
var Types = []Type{TypeNext, TypeStable, TypePatch, TypeNightly, TypeDev}

func ParseType(s string) (Type, error) {
	t := Type(s)
	switch t {
	case TypeNext, TypeStable, TypePatch, TypeNightly, TypeDev:
		return t, nil
	}
	return "", fmt.Errorf("unknown release type %q", s)
}

// SubVersioned reports whether releases of this type carry a minor
// (and, above the schema threshold, a patch) version component.
func (t Type) SubVersioned() bool {
	return t == TypePatch || t == TypeNightly || t == TypeDev
}

// Major is either an integer version or the literal "next".
type Major struct {
	Next  bool
	Value int
}

func (m Major) String() string {
	if m.Next {
		return "next"
	}
	return strconv.Itoa(m.Value)
}

func (m Major) MarshalJSON() ([]byte, error) {
	if m.Next {
		return json.Marshal("next")
	}
	return json.Marshal(m.Value)
}

func (m *Major) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "next" {
			return fmt.Errorf("invalid major version %q", s)
		}
		m.Next = true
		m.Value = 0
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid major version %s", data)
	}
	m.Next = false
	m.Value = v
	return nil
}

func (m Major) MarshalYAML() (interface{}, error) {
	if m.Next {
		return "next", nil
	}
	return m.Value, nil
}

func (m *Major) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil && s == "next" {
		m.Next = true
		m.Value = 0
		return nil
	}
	var v int
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("invalid major version %q", node.Value)
	}
	m.Next = false
	m.Value = v
	return nil
}

type Version struct {
	Major Major `json:"major" yaml:"major"`
	Minor *int  `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch *int  `json:"patch,omitempty" yaml:"patch,omitempty"`
}

// MinorOr0 returns the minor component, or 0 when absent.
func (v Version) MinorOr0() int {
	if v.Minor == nil {
		return 0
	}
	return *v.Minor
}

func (v Version) PatchOr0() int {
	if v.Patch == nil {
		return 0
	}
	return *v.Patch
}

// Stamp is one lifecycle milestone. isodate and timestamp are
// mutually derivable; EnsureDates fills whichever is missing.
type Stamp struct {
	Isodate   string `json:"isodate,omitempty" yaml:"isodate,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

func (s Stamp) IsZero() bool {
	return s.Isodate == "" && s.Timestamp == 0
}

type Lifecycle struct {
	Released Stamp  `json:"released" yaml:"released"`
	Extended *Stamp `json:"extended,omitempty" yaml:"extended,omitempty"`
	Eol      *Stamp `json:"eol,omitempty" yaml:"eol,omitempty"`
}

type Git struct {
	Commit      string `json:"commit" yaml:"commit"`
	CommitShort string `json:"commit_short" yaml:"commit_short"`
}

type GitHub struct {
	Release string `json:"release" yaml:"release"`
}

type Attributes struct {
	SourceRepo bool `json:"source_repo" yaml:"source_repo"`
}

type Release struct {
	Name       string      `json:"name" yaml:"name"`
	Type       Type        `json:"type" yaml:"type"`
	Version    Version     `json:"version" yaml:"version"`
	Lifecycle  Lifecycle   `json:"lifecycle" yaml:"lifecycle"`
	Git        *Git        `json:"git,omitempty" yaml:"git,omitempty"`
	GitHub     *GitHub     `json:"github,omitempty" yaml:"github,omitempty"`
	Flavors    []string    `json:"flavors,omitempty" yaml:"flavors,omitempty"`
	Attributes *Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Document is the record-set wire format, one per output file.
type Document struct {
	Releases []*Release `json:"releases" yaml:"releases"`
}

// SplitByType partitions releases into per-type lists, preserving order.
func SplitByType(releases []*Release) map[Type][]*Release {
	sets := make(map[Type][]*Release)
	for _, r := range releases {
		sets[r.Type] = append(sets[r.Type], r)
	}
	return sets
}

// Join concatenates the per-type lists back into storage order.
func Join(sets map[Type][]*Release) []*Release {
	var all []*Release
	for _, t := range Types {
		all = append(all, sets[t]...)
	}
	return all
}

// Sort orders releases by (major, minor), placing "next" last.
func Sort(releases []*Release) {
	key := func(r *Release) (int, int) {
		if r.Version.Major.Next {
			return int(^uint(0) >> 1), 0
		}
		return r.Version.Major.Value, r.Version.MinorOr0()
	}
	sort.SliceStable(releases, func(i, j int) bool {
		mi, ni := key(releases[i])
		mj, nj := key(releases[j])
		if mi != mj {
			return mi < mj
		}
		return ni < nj
	})
}

// Latest returns the highest (major, minor) release, or nil when empty.
func Latest(releases []*Release) *Release {
	var best *Release
	for _, r := range releases {
		if r.Version.Major.Next {
			continue
		}
		if best == nil ||
			r.Version.Major.Value > best.Version.Major.Value ||
			(r.Version.Major.Value == best.Version.Major.Value && r.Version.MinorOr0() > best.Version.MinorOr0()) {
			best = r
		}
	}
	return best
}

// UpdateSourceRepoAttributes derives attributes.source_repo for every
// release from the version at which source-repo builds became canonical.
func UpdateSourceRepoAttributes(releases []*Release) {
	for _, r := range releases {
		if r.Version.Major.Next {
			continue
		}
		major, minor := r.Version.Major.Value, r.Version.MinorOr0()
		r.Attributes = &Attributes{SourceRepo: major > 1592 || (major == 1592 && minor >= 4)}
	}
}
