package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"reldb/exitcode"
	"reldb/release"
)

// flavorsFile is the build matrix checked into the source repository.
type flavorsFile struct {
	Targets []struct {
		Name    string `yaml:"name"`
		Flavors []struct {
			Features []string `yaml:"features"`
			Arch     string   `yaml:"arch"`
		} `yaml:"flavors"`
	} `yaml:"targets"`
}

// Flavors resolves the published flavor names for a version and commit.
// The flavors.yaml at the commit is authoritative; for commits that
// predate it, the published artifact listing is scanned instead. A
// release without flavors is unusual but not an error.
func (m *Manager) Flavors(ctx context.Context, commit string, version release.Version) ([]string, error) {
	if repo, err := m.gitRepo(ctx); err == nil {
		if data, err := repo.FileAt(commit, "flavors.yaml"); err == nil {
			flavors, err := parseFlavorsFile(data)
			if err != nil {
				return nil, err
			}
			// An empty build matrix at the commit means the file does
			// not cover this release; the artifact listing still might.
			if len(flavors) > 0 {
				return flavors, nil
			}
		}
	}

	key := release.VersionString(release.TypePatch, version) + "-" + commit[:8]
	index, err := m.artifactIndex(ctx)
	if err != nil {
		return nil, err
	}
	if flavors, ok := index[key]; ok {
		return flavors, nil
	}

	// Slow path for folder names the index parser could not split.
	var found []string
	seen := map[string]bool{}
	for folder, flavors := range index {
		if strings.Contains(folder, key) {
			for _, f := range flavors {
				if !seen[f] {
					seen[f] = true
					found = append(found, f)
				}
			}
		}
	}
	sort.Strings(found)
	return found, nil
}

func parseFlavorsFile(data []byte) ([]string, error) {
	var file flavorsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var flavors []string
	for _, target := range file.Targets {
		for _, f := range target.Flavors {
			name := target.Name
			if len(f.Features) > 0 {
				name += "-" + strings.Join(f.Features, "_")
			}
			name += "-" + f.Arch
			if !seen[name] {
				seen[name] = true
				flavors = append(flavors, name)
			}
		}
	}
	sort.Strings(flavors)
	return flavors, nil
}

// artifactIndex maps "{version}-{commitShort}" to the flavor names
// found in the artifacts bucket. Listing the bucket is slow, so the
// index is cached on disk, gzip compressed, for the configured TTL.
func (m *Manager) artifactIndex(ctx context.Context) (map[string][]string, error) {
	if index, ok := m.readArtifactCache(); ok {
		return index, nil
	}

	m.log.Info("listing artifacts bucket", "bucket", m.cfg.ArtifactsBucket, "prefix", m.cfg.ArtifactsPrefix)
	folders := map[string]map[string]bool{}
	err := m.artifacts.Walk(m.cfg.ArtifactsPrefix, func(key string, err error) error {
		if err != nil {
			return err
		}
		rest := strings.TrimPrefix(key, m.cfg.ArtifactsPrefix)
		folder, _, ok := strings.Cut(rest, "/")
		if !ok {
			return nil
		}
		// Folder names are {flavor}-{version}-{commitShort}; the
		// flavor may itself contain dashes, so split from the right.
		parts := strings.Split(folder, "-")
		if len(parts) < 3 {
			return nil
		}
		commitShort := parts[len(parts)-1]
		version := parts[len(parts)-2]
		flavor := strings.Join(parts[:len(parts)-2], "-")
		indexKey := version + "-" + commitShort
		if folders[indexKey] == nil {
			folders[indexKey] = map[string]bool{}
		}
		folders[indexKey][flavor] = true
		return nil
	})
	if err != nil {
		return nil, exitcode.Wrap(exitcode.S3, err)
	}

	index := make(map[string][]string, len(folders))
	for key, set := range folders {
		flavors := make([]string, 0, len(set))
		for f := range set {
			flavors = append(flavors, f)
		}
		sort.Strings(flavors)
		index[key] = flavors
	}

	m.writeArtifactCache(index)
	return index, nil
}

func (m *Manager) readArtifactCache() (map[string][]string, bool) {
	info, err := os.Stat(m.cfg.ArtifactsCacheFile)
	if err != nil || time.Since(info.ModTime()) > m.cfg.ArtifactsCacheTTL {
		return nil, false
	}
	data, err := os.ReadFile(m.cfg.ArtifactsCacheFile)
	if err != nil {
		return nil, false
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	var index map[string][]string
	if err := json.NewDecoder(zr).Decode(&index); err != nil {
		m.log.Warn("discarding unreadable artifacts cache", "file", m.cfg.ArtifactsCacheFile, "error", err)
		return nil, false
	}
	return index, true
}

func (m *Manager) writeArtifactCache(index map[string][]string) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(index); err != nil {
		zw.Close()
		return
	}
	if err := zw.Close(); err != nil {
		return
	}
	if err := os.WriteFile(m.cfg.ArtifactsCacheFile, buf.Bytes(), 0o644); err != nil {
		m.log.Warn("could not write artifacts cache", "file", m.cfg.ArtifactsCacheFile, "error", err)
	}
}
