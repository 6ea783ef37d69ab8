// Package query loads release records from the published database
// and renders them in the supported output formats.
package query

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"reldb/exitcode"
	"reldb/release"
)

// Source describes where release files come from: the published
// bucket URL or local files, split per type or combined.
type Source struct {
	Type    string // "url" or "file"
	URL     string
	Prefix  string
	Format  string // "json" or "yaml"
	NoSplit bool
}

// LoadAll loads the releases for the requested types.
func LoadAll(src Source, types []release.Type) ([]*release.Release, error) {
	if src.NoSplit {
		return load(src, fmt.Sprintf("%s.%s", src.Prefix, src.Format))
	}

	var all []*release.Release
	for _, t := range types {
		releases, err := load(src, fmt.Sprintf("%s-%s.%s", src.Prefix, t, src.Format))
		if err != nil {
			return nil, err
		}
		all = append(all, releases...)
	}
	return all, nil
}

func load(src Source, name string) ([]*release.Release, error) {
	var data []byte
	if src.Type == "url" {
		url := src.URL + "/" + name
		resp, err := http.Get(url)
		if err != nil {
			return nil, exitcode.Wrap(exitcode.HTTP, fmt.Errorf("fetching %s: %w", url, err))
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, exitcode.Wrap(exitcode.HTTP, fmt.Errorf("fetching %s: %s", url, resp.Status))
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, exitcode.Wrap(exitcode.HTTP, err)
		}
	} else {
		var err error
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, exitcode.Wrap(exitcode.FileNotFound, fmt.Errorf("file %s does not exist", name))
		}
	}

	var doc release.Document
	if src.Format == "yaml" {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, exitcode.Wrap(exitcode.Format, fmt.Errorf("parsing %s: %w", name, err))
		}
	} else {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, exitcode.Wrap(exitcode.Format, fmt.Errorf("parsing %s: %w", name, err))
		}
	}
	return doc.Releases, nil
}

// ParseTypes parses a comma-separated release type list.
func ParseTypes(s string) ([]release.Type, error) {
	var types []release.Type
	for _, part := range strings.Split(s, ",") {
		t, err := release.ParseType(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// FilterVersion keeps releases matching a major or major.minor version.
func FilterVersion(releases []*release.Release, version string) ([]*release.Release, error) {
	parts := strings.Split(version, ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid version filter %q", version)
	}
	var minor *int
	if len(parts) > 1 {
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version filter %q", version)
		}
		minor = &m
	}

	var out []*release.Release
	for _, r := range releases {
		if r.Version.Major.Next || r.Version.Major.Value != major {
			continue
		}
		if minor != nil && r.Version.MinorOr0() != *minor {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FilterTypes keeps releases whose type is in the list.
func FilterTypes(releases []*release.Release, types []release.Type) []*release.Release {
	var out []*release.Release
	for _, r := range releases {
		for _, t := range types {
			if r.Type == t {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// FilterActive keeps releases whose EOL lies in the future.
func FilterActive(releases []*release.Release, now time.Time) []*release.Release {
	var out []*release.Release
	for _, r := range releases {
		if eol := r.Lifecycle.Eol; eol != nil && eol.Timestamp > now.Unix() {
			out = append(out, r)
		}
	}
	return out
}

// FilterArchived keeps releases whose EOL has passed.
func FilterArchived(releases []*release.Release, now time.Time) []*release.Release {
	var out []*release.Release
	for _, r := range releases {
		if eol := r.Lifecycle.Eol; eol != nil && eol.Timestamp < now.Unix() {
			out = append(out, r)
		}
	}
	return out
}
