package persona

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownPersona = errors.New("persona not found")
	ErrInvalidIndex   = errors.New("invalid roster index")
)

// Store exposes persona retrieval for HTTP handlers.
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

// List returns the predefined persona list.
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

// ResolveIndex maps a route parameter (an index into Roster) to a persona.
func ResolveIndex(store Store, raw string) (Persona, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	roster := Roster()
	if err != nil || idx < 0 || idx >= len(roster) {
		return Persona{}, fmt.Errorf("%w: %q", ErrInvalidIndex, raw)
	}

	p, ok := store.FindByID(roster[idx])
	if !ok {
		return Persona{}, fmt.Errorf("%w: %s", ErrUnknownPersona, roster[idx])
	}
	return p, nil
}

type catalogFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads a YAML persona catalog. The operator persona is added when the
// file omits it, since every conversation with a human depends on it.
func LoadFile(path string) ([]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse persona file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(catalog.Personas))
	hasOperator := false
	for _, p := range catalog.Personas {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("parse persona file %s: persona without id", path)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("parse persona file %s: duplicate persona %q", path, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.IsOperator() {
			hasOperator = true
		}
	}

	if !hasOperator {
		catalog.Personas = append([]Persona{Seed()[0]}, catalog.Personas...)
	}
	return catalog.Personas, nil
}
