package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes persona retrieval for services and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the configured persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML document of the form:
//
//	personas:
//	  - id: companion
//	    system_prompt: ...
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var doc personaFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse persona file %s: %w", path, err)
	}

	for i, p := range doc.Personas {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("persona file %s: entry %d has no id", path, i)
		}
	}
	return doc.Personas, nil
}

// Merge overlays overrides onto base by id. Zero-valued override fields keep the base value.
func Merge(base, overrides []Persona) []Persona {
	out := append([]Persona(nil), base...)
	for _, o := range overrides {
		idx := -1
		for i := range out {
			if out[i].ID == o.ID {
				idx = i
				break
			}
		}
		if idx == -1 {
			out = append(out, o)
			continue
		}

		p := &out[idx]
		if o.Name != "" {
			p.Name = o.Name
		}
		if strings.TrimSpace(o.SystemPrompt) != "" {
			p.SystemPrompt = o.SystemPrompt
		}
		if o.MaxTokens > 0 {
			p.MaxTokens = o.MaxTokens
		}
		if o.Temperature > 0 {
			p.Temperature = o.Temperature
		}
	}
	return out
}
