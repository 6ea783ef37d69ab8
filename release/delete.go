package release

import "fmt"

// DeleteByName removes the named release from its type-partitioned
// list. The sets must come from a fresh query of the authoritative
// store; deleting against an empty local set would silently remove
// nothing. Unknown type tokens and missing names are errors.
func DeleteByName(name string, sets map[Type][]*Release) (map[Type][]*Release, error) {
	t, _, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	list := sets[t]
	for i, r := range list {
		if r.Name == name {
			sets[t] = append(list[:i:i], list[i+1:]...)
			return sets, nil
		}
	}
	return nil, fmt.Errorf("release %q not found in the existing data", name)
}
