package release

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds the compiled record schemas for both generations:
// v1 for sub-versioned releases below the threshold (no patch
// component) and v2 for everything else (patch required). Both are
// generated from a single template so the families cannot drift.
type Registry struct {
	v1 map[Type]*jsonschema.Schema
	v2 map[Type]*jsonschema.Schema
}

func NewRegistry() (*Registry, error) {
	compile := func(t Type, requirePatch bool) (*jsonschema.Schema, error) {
		doc, err := json.Marshal(schemaDoc(t, requirePatch))
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("reldb/%s-patch-%t.json", t, requirePatch)
		c := jsonschema.NewCompiler()
		if err := c.AddResource(name, bytes.NewReader(doc)); err != nil {
			return nil, err
		}
		return c.Compile(name)
	}

	r := &Registry{
		v1: make(map[Type]*jsonschema.Schema),
		v2: make(map[Type]*jsonschema.Schema),
	}
	for _, t := range Types {
		s1, err := compile(t, false)
		if err != nil {
			return nil, fmt.Errorf("compiling v1 schema for %s: %w", t, err)
		}
		s2, err := compile(t, true)
		if err != nil {
			return nil, fmt.Errorf("compiling v2 schema for %s: %w", t, err)
		}
		r.v1[t] = s1
		r.v2[t] = s2
	}
	return r, nil
}

// Select picks the schema for a record. Next and stable releases
// never carry sub-version components and always use the v2 table;
// sub-versioned releases pick the generation by their major version.
func (r *Registry) Select(rel *Release) (*jsonschema.Schema, error) {
	var table map[Type]*jsonschema.Schema
	switch {
	case !rel.Type.SubVersioned():
		table = r.v2
	case !rel.Version.Major.Next && rel.Version.Major.Value < Threshold:
		table = r.v1
	default:
		table = r.v2
	}
	s, ok := table[rel.Type]
	if !ok {
		return nil, fmt.Errorf("unknown release type %q", rel.Type)
	}
	return s, nil
}

// schemaDoc builds the JSON-Schema document for one release type.
// requirePatch selects the v2 generation, which adds the mandatory
// patch component to sub-versioned releases.
func schemaDoc(t Type, requirePatch bool) map[string]any {
	stamp := func(required bool) map[string]any {
		s := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"isodate":   map[string]any{"type": "string", "format": "date"},
				"timestamp": map[string]any{"type": "integer"},
			},
		}
		if required {
			s["required"] = []any{"isodate", "timestamp"}
		}
		return s
	}

	var version map[string]any
	switch {
	case t == TypeNext:
		version = map[string]any{
			"type":       "object",
			"properties": map[string]any{"major": map[string]any{"enum": []any{"next"}}},
			"required":   []any{"major"},
		}
	case t == TypeStable:
		version = map[string]any{
			"type":       "object",
			"properties": map[string]any{"major": map[string]any{"type": "integer"}},
			"required":   []any{"major"},
		}
	default:
		props := map[string]any{
			"major": map[string]any{"type": "integer"},
			"minor": map[string]any{"type": "integer"},
		}
		required := []any{"major", "minor"}
		if requirePatch {
			props["patch"] = map[string]any{"type": "integer"}
			required = append(required, "patch")
		}
		version = map[string]any{"type": "object", "properties": props, "required": required}
	}

	lifecycle := map[string]any{
		"type":       "object",
		"properties": map[string]any{"released": stamp(true)},
		"required":   []any{"released"},
	}
	switch t {
	case TypeNext, TypeStable:
		lifecycle["properties"].(map[string]any)["extended"] = stamp(false)
		lifecycle["properties"].(map[string]any)["eol"] = stamp(false)
		lifecycle["required"] = []any{"released", "extended", "eol"}
	case TypePatch:
		lifecycle["properties"].(map[string]any)["eol"] = stamp(false)
		lifecycle["required"] = []any{"released", "eol"}
	}

	props := map[string]any{
		"name":      map[string]any{"type": "string"},
		"type":      map[string]any{"enum": []any{string(t)}},
		"version":   version,
		"lifecycle": lifecycle,
	}
	required := []any{"name", "type", "version", "lifecycle"}

	if t.SubVersioned() {
		props["git"] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"commit":       map[string]any{"type": "string", "pattern": "^[0-9a-f]{40}$"},
				"commit_short": map[string]any{"type": "string", "pattern": "^[0-9a-f]{7,8}$"},
			},
			"required": []any{"commit", "commit_short"},
		}
		props["flavors"] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		props["attributes"] = map[string]any{
			"type":       "object",
			"properties": map[string]any{"source_repo": map[string]any{"type": "boolean"}},
			"required":   []any{"source_repo"},
		}
		required = append(required, "git")
	}
	if t == TypePatch {
		props["github"] = map[string]any{
			"type":       "object",
			"properties": map[string]any{"release": map[string]any{"type": "string", "format": "uri"}},
			"required":   []any{"release"},
		}
		required = append(required, "github")
	}

	return map[string]any{"type": "object", "properties": props, "required": required}
}
