package languages

import (
	"fmt"
	"sort"

	"github.com/docker/go-units"
)

// Override replaces the image or memory ceiling of a builtin profile.
type Override struct {
	Image  string `mapstructure:"image"`
	Memory string `mapstructure:"memory"` // e.g. "256m"
}

// Registry holds the profiles a process runs with.
type Registry struct {
	profiles map[string]Profile
	fallback Profile
}

var builtin = NewDefaultRegistry()

// Resolve looks language up in the builtin registry.
func Resolve(language string) Profile {
	return builtin.Resolve(language)
}

func NewDefaultRegistry() *Registry {
	py := pythonProfile()
	return &Registry{
		profiles: map[string]Profile{
			Python:     py,
			JavaScript: jsProfile(JavaScript, "js"),
			TypeScript: jsProfile(TypeScript, "ts"),
		},
		fallback: py,
	}
}

// NewRegistry applies overrides keyed by profile name on top of the builtin profiles.
func NewRegistry(overrides map[string]Override) (*Registry, error) {
	r := NewDefaultRegistry()
	for name, o := range overrides {
		key := normalize(name)
		p, ok := r.profiles[key]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", name)
		}
		if o.Image != "" {
			p.Image = o.Image
		}
		if o.Memory != "" {
			mem, err := units.RAMInBytes(o.Memory)
			if err != nil {
				return nil, fmt.Errorf("profile %s: invalid memory %q: %w", name, o.Memory, err)
			}
			if mem <= 0 {
				return nil, fmt.Errorf("profile %s: memory must be positive", name)
			}
			p.Memory = mem
		}
		r.profiles[key] = p
		if key == Python {
			r.fallback = p
		}
	}
	return r, nil
}

// Resolve is case-insensitive. javascript and typescript select the Jest
// profile; everything else, python included, gets the pytest profile.
func (r *Registry) Resolve(language string) Profile {
	switch key := normalize(language); key {
	case JavaScript, TypeScript:
		return r.profiles[key]
	default:
		return r.fallback
	}
}

// Images returns the distinct images used by the registry, sorted.
func (r *Registry) Images() []string {
	seen := make(map[string]struct{})
	for _, p := range r.profiles {
		seen[p.Image] = struct{}{}
	}
	images := make([]string, 0, len(seen))
	for img := range seen {
		images = append(images, img)
	}
	sort.Strings(images)
	return images
}
