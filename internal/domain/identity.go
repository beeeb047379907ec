package domain

import "strings"

// Identity is the profile every prompt template is rendered against.
type Identity struct {
	Name     string            `json:"name"`
	Profile  map[string]string `json:"profile,omitempty"`
	Metadata IdentityMetadata  `json:"_metadata"`
}

// IdentityMetadata carries bookkeeping about the most recent run.
type IdentityMetadata struct {
	FailedSpecs  []string `json:"failed_specs"`
	FailedImages []string `json:"failed_images,omitempty"`
}

// Variables flattens the identity into template variables. The name is
// exposed as both "name" and "council_name" unless the profile overrides them.
func (i Identity) Variables() map[string]string {
	vars := make(map[string]string, len(i.Profile)+2)
	name := strings.TrimSpace(i.Name)
	if name != "" {
		vars["name"] = name
		vars["council_name"] = name
	}
	for k, v := range i.Profile {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		vars[key] = v
	}
	return vars
}
