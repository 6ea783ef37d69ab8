package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"reldb/release"
)

// Field is one column in tabular output.
type Field struct {
	Name  string
	Value func(*release.Release, URLConfig) string
}

// Fields is the registry of selectable output columns.
var Fields = []Field{
	{"Name", func(r *release.Release, _ URLConfig) string { return orNA(r.Name) }},
	{"Version", func(r *release.Release, _ URLConfig) string { return release.VersionString(r.Type, r.Version) }},
	{"Type", func(r *release.Release, _ URLConfig) string { return string(r.Type) }},
	{"GitCommit", func(r *release.Release, _ URLConfig) string {
		if r.Git == nil {
			return "N/A"
		}
		return r.Git.Commit
	}},
	{"GitCommitShort", func(r *release.Release, _ URLConfig) string {
		if r.Git == nil {
			return "N/A"
		}
		return r.Git.CommitShort
	}},
	{"ReleaseDate", func(r *release.Release, _ URLConfig) string { return orNA(r.Lifecycle.Released.Isodate) }},
	{"ReleaseTime", func(r *release.Release, _ URLConfig) string {
		return release.TimestampToIsotime(r.Lifecycle.Released.Timestamp)
	}},
	{"ExtendedMaintenance", func(r *release.Release, _ URLConfig) string {
		if r.Lifecycle.Extended == nil {
			return "N/A"
		}
		return orNA(r.Lifecycle.Extended.Isodate)
	}},
	{"EndOfMaintenance", func(r *release.Release, _ URLConfig) string {
		if r.Lifecycle.Eol == nil {
			return "N/A"
		}
		return orNA(r.Lifecycle.Eol.Isodate)
	}},
	{"Flavors", func(r *release.Release, _ URLConfig) string { return orNA(strings.Join(r.Flavors, ",")) }},
	{"OCI", func(r *release.Release, cfg URLConfig) string { return orNA(ociURL(r, cfg)) }},
	{"AttributesSourceRepo", func(r *release.Release, _ URLConfig) string {
		if r.Attributes == nil {
			return "N/A"
		}
		return fmt.Sprintf("%t", r.Attributes.SourceRepo)
	}},
}

// DefaultFields is the column set used when none is requested.
const DefaultFields = "Name,Version,Type,GitCommitShort,ReleaseDate,ExtendedMaintenance,EndOfMaintenance"

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func lookupFields(names []string) ([]Field, error) {
	byName := make(map[string]Field, len(Fields))
	available := make([]string, 0, len(Fields))
	for _, f := range Fields {
		byName[f.Name] = f
		available = append(available, f.Name)
	}

	var selected []Field
	for _, name := range names {
		f, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("invalid field %q, available fields: %s", name, strings.Join(available, ", "))
		}
		selected = append(selected, f)
	}
	return selected, nil
}

// FormatTable renders releases as a plain-text or markdown table
// over the requested columns.
func FormatTable(releases []*release.Release, fields string, noHeader, markdown bool, cfg URLConfig) (string, error) {
	if fields == "" {
		fields = DefaultFields
	}
	selected, err := lookupFields(strings.Split(fields, ","))
	if err != nil {
		return "", err
	}

	tw := table.NewWriter()
	if !noHeader {
		header := make(table.Row, len(selected))
		for i, f := range selected {
			header[i] = f.Name
		}
		tw.AppendHeader(header)
	}
	for _, r := range releases {
		row := make(table.Row, len(selected))
		for i, f := range selected {
			row[i] = f.Value(r, cfg)
		}
		tw.AppendRow(row)
	}

	if markdown {
		return tw.RenderMarkdown(), nil
	}
	tw.Style().Options = table.OptionsNoBordersAndSeparators
	tw.Style().Box.PaddingLeft = ""
	tw.Style().Box.PaddingRight = "  "
	return tw.Render(), nil
}

// URLConfig carries everything needed to expand flavors into
// artifact and OCI URLs.
type URLConfig struct {
	ArtifactsBaseURL   string
	ArtifactsPrefix    string
	ContainerRegistry  string
	PlatformExtensions map[string]string
}

type FlavorURLs struct {
	Metadata string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Image    string `json:"image,omitempty" yaml:"image,omitempty"`
	OCI      string `json:"oci,omitempty" yaml:"oci,omitempty"`
}

type structuredRelease struct {
	Name       string                `json:"name" yaml:"name"`
	Type       release.Type          `json:"type" yaml:"type"`
	Version    release.Version       `json:"version" yaml:"version"`
	Lifecycle  release.Lifecycle     `json:"lifecycle" yaml:"lifecycle"`
	Git        *release.Git          `json:"git,omitempty" yaml:"git,omitempty"`
	GitHub     *release.GitHub       `json:"github,omitempty" yaml:"github,omitempty"`
	Flavors    map[string]FlavorURLs `json:"flavors" yaml:"flavors"`
	OCI        string                `json:"oci" yaml:"oci"`
	Attributes *release.Attributes   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

type structuredDocument struct {
	Releases []structuredRelease `json:"releases" yaml:"releases"`
}

// FormatStructured renders releases as JSON or YAML with flavors
// expanded into per-flavor artifact URL maps.
func FormatStructured(releases []*release.Release, format string, cfg URLConfig) (string, error) {
	doc := structuredDocument{Releases: make([]structuredRelease, 0, len(releases))}
	for _, r := range releases {
		doc.Releases = append(doc.Releases, structuredRelease{
			Name:       r.Name,
			Type:       r.Type,
			Version:    r.Version,
			Lifecycle:  r.Lifecycle,
			Git:        r.Git,
			GitHub:     r.GitHub,
			Flavors:    flavorURLs(r, cfg),
			OCI:        ociURL(r, cfg),
			Attributes: r.Attributes,
		})
	}

	if format == "yaml" {
		out, err := yaml.Marshal(doc)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func flavorURLs(r *release.Release, cfg URLConfig) map[string]FlavorURLs {
	urls := make(map[string]FlavorURLs)
	if len(r.Flavors) == 0 {
		return urls
	}

	version := fmt.Sprintf("%s.%d", r.Version.Major, r.Version.MinorOr0())
	var commitShort string
	if r.Git != nil {
		commitShort = r.Git.CommitShort
	}

	flavors := append([]string(nil), r.Flavors...)
	sort.Strings(flavors)
	for _, flavor := range flavors {
		platform := strings.SplitN(flavor, "-", 2)[0]
		switch platform {
		case "container":
			urls[flavor] = FlavorURLs{OCI: fmt.Sprintf("%s:%s", cfg.ContainerRegistry, version)}
		case "bare":
			base := flavor
			if i := strings.LastIndex(flavor, "-"); i > 0 {
				base = flavor[:i]
			}
			urls[flavor] = FlavorURLs{OCI: fmt.Sprintf("%s/%s:%s", cfg.ContainerRegistry, base, version)}
		default:
			ext, ok := cfg.PlatformExtensions[platform]
			if !ok {
				ext = "raw"
			}
			base := fmt.Sprintf("%s-%s-%s", flavor, version, commitShort)
			prefix := fmt.Sprintf("%s/%s%s", cfg.ArtifactsBaseURL, cfg.ArtifactsPrefix, base)
			urls[flavor] = FlavorURLs{
				Metadata: fmt.Sprintf("%s/%s.manifest", prefix, base),
				Image:    fmt.Sprintf("%s/%s.%s", prefix, base, ext),
			}
		}
	}
	return urls
}

func ociURL(r *release.Release, cfg URLConfig) string {
	return fmt.Sprintf("%s:%s", cfg.ContainerRegistry, release.VersionString(r.Type, r.Version))
}
