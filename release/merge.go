package release

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/r3labs/diff/v3"
)

// Merge reconciles an incoming batch against the existing record set
// by name-keyed replacement. Existing order is preserved for names
// the batch does not touch; new names are appended in batch order.
func Merge(existing, incoming []*Release) []*Release {
	merged := make([]*Release, 0, len(existing)+len(incoming))
	index := make(map[string]int)
	for _, r := range existing {
		if i, ok := index[r.Name]; ok {
			merged[i] = r
			continue
		}
		index[r.Name] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range incoming {
		if i, ok := index[r.Name]; ok {
			merged[i] = r
			continue
		}
		index[r.Name] = len(merged)
		merged = append(merged, r)
	}
	return merged
}

// DiffReport logs which releases a batch would create, delete or
// update, with per-field changes for the updates. It is a preview
// only and mutates nothing.
func DiffReport(existing, incoming []*Release, log *slog.Logger) {
	existingByName := make(map[string]*Release)
	for _, r := range existing {
		existingByName[r.Name] = r
	}
	incomingByName := make(map[string]*Release)
	for _, r := range incoming {
		incomingByName[r.Name] = r
	}

	var created, deleted, common []string
	for name := range incomingByName {
		if _, ok := existingByName[name]; ok {
			common = append(common, name)
		} else {
			created = append(created, name)
		}
	}
	for name := range existingByName {
		if _, ok := incomingByName[name]; !ok {
			deleted = append(deleted, name)
		}
	}
	sort.Strings(created)
	sort.Strings(deleted)
	sort.Strings(common)

	for _, name := range created {
		log.Info("release will be created", "name", name)
	}
	for _, name := range deleted {
		log.Info("release will be deleted", "name", name)
	}

	for _, name := range common {
		changes, err := diff.Diff(toDocument(existingByName[name]), toDocument(incomingByName[name]))
		if err != nil {
			log.Warn("could not diff release", "name", name, "error", err)
			continue
		}
		if len(changes) == 0 {
			continue
		}
		log.Info("release will be updated", "name", name)
		for _, c := range changes {
			path := strings.Join(c.Path, ".")
			switch c.Type {
			case diff.UPDATE:
				log.Info("field changed", "name", name, "path", path, "from", c.From, "to", c.To)
			case diff.CREATE:
				log.Info("field added", "name", name, "path", path, "value", c.To)
			case diff.DELETE:
				log.Info("field removed", "name", name, "path", path, "value", c.From)
			}
		}
	}
}

// toDocument converts a release to its generic wire form so the diff
// reports JSON field names rather than Go struct fields.
func toDocument(r *Release) map[string]any {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}
