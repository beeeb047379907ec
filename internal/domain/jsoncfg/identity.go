package jsoncfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sitegen/internal/domain"
)

// IdentityJSON is the on-disk identity profile. Besides the structured
// fields, any top-level string value is folded into the profile so simple
// flat files work too.
type IdentityJSON struct {
	Name     string                  `json:"name"`
	Profile  map[string]string       `json:"profile"`
	Metadata domain.IdentityMetadata `json:"_metadata"`
	Extra    map[string]string       `json:"-"`
}

const (
	// DefaultLocale is applied when the profile omits one.
	DefaultLocale = "en-GB"
	// MaxProfileValueLength bounds every profile value rendered into prompts.
	MaxProfileValueLength = 2000
)

// UnmarshalJSON collects unknown top-level string keys into Extra.
func (p *IdentityJSON) UnmarshalJSON(data []byte) error {
	type plain IdentityJSON
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch key {
		case "name", "profile", "_metadata":
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			continue
		}
		if decoded.Extra == nil {
			decoded.Extra = map[string]string{}
		}
		decoded.Extra[key] = s
	}
	*p = IdentityJSON(decoded)
	return nil
}

// Normalize trims values and applies defaults.
func (p *IdentityJSON) Normalize() {
	if p == nil {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Profile == nil {
		p.Profile = map[string]string{}
	}
	for k, v := range p.Extra {
		if _, ok := p.Profile[k]; !ok {
			p.Profile[k] = v
		}
	}
	for k, v := range p.Profile {
		p.Profile[k] = strings.TrimSpace(v)
	}
	if p.Profile["locale"] == "" {
		p.Profile["locale"] = DefaultLocale
	}
}

// Validate ensures the profile can render templates.
func (p IdentityJSON) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	for k, v := range p.Profile {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("profile keys must not be empty")
		}
		if len(v) > MaxProfileValueLength {
			return fmt.Errorf("profile.%s exceeds %d characters", k, MaxProfileValueLength)
		}
	}
	return nil
}

// Identity converts the file shape into the pipeline's identity.
func (p IdentityJSON) Identity() domain.Identity {
	profile := make(map[string]string, len(p.Profile))
	for k, v := range p.Profile {
		profile[k] = v
	}
	return domain.Identity{Name: p.Name, Profile: profile, Metadata: p.Metadata}
}

// ParseIdentity decodes, normalizes and validates an identity payload.
func ParseIdentity(data []byte) (domain.Identity, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Identity{}, fmt.Errorf("identity: payload is empty")
	}
	var cfg IdentityJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Identity{}, fmt.Errorf("identity: decode: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return domain.Identity{}, fmt.Errorf("identity: %w", err)
	}
	return cfg.Identity(), nil
}

// LoadIdentityFile reads an identity profile from disk.
func LoadIdentityFile(path string) (domain.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity: read %s: %w", path, err)
	}
	return ParseIdentity(data)
}
