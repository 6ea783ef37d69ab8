package release

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateAll checks every release against its schema and collects
// all violations before failing. Any violation rejects the whole
// batch; partial success is not supported.
func (r *Registry) ValidateAll(releases []*Release) error {
	var errs []error
	for _, rel := range releases {
		errs = append(errs, r.validate(rel)...)
	}
	if len(errs) > 0 {
		errs = append(errs, fmt.Errorf("validation failed with %d error(s)", len(errs)))
		return errors.Join(errs...)
	}
	return nil
}

func (r *Registry) validate(rel *Release) []error {
	schema, err := r.Select(rel)
	if err != nil {
		return []error{err}
	}

	// Validate the wire form, not the struct: the schemas describe
	// the JSON documents that end up in storage.
	raw, err := json.Marshal(rel)
	if err != nil {
		return []error{fmt.Errorf("encoding release %q: %w", rel.Name, err)}
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return []error{fmt.Errorf("decoding release %q: %w", rel.Name, err)}
	}

	if err := schema.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			var errs []error
			for _, leaf := range leafCauses(ve) {
				errs = append(errs, fmt.Errorf("validation error for release %q at %q: %s",
					rel.Name, leaf.InstanceLocation, leaf.Message))
			}
			return errs
		}
		return []error{fmt.Errorf("validation error for release %q: %w", rel.Name, err)}
	}
	return nil
}

func leafCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var leaves []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		leaves = append(leaves, leafCauses(c)...)
	}
	return leaves
}
