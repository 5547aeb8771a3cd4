package definitions

import (
	"sort"
)

// Contents is the material a Snapshot is built from.
type Contents struct {
	// Schema is the base JSON schema, may be nil
	Schema *Schema

	// BaseProfiles are the base specification StructureDefinitions
	BaseProfiles []*Profile

	// Profiles are implementation guide StructureDefinitions
	Profiles []*Profile

	// ValueSets from the base specification and the implementation guide
	ValueSets []*ValueSet
}

// Snapshot is an immutable in-memory Provider.
type Snapshot struct {
	schema        *Schema
	baseByType    map[string]*Profile
	profiles      map[string]*Profile // by id and by URL
	profileCount  int
	valueSets     map[string]*ValueSet
	resourceTypes []string
}

// NewSnapshot indexes c. Later entries win on key collisions.
func NewSnapshot(c Contents) *Snapshot {
	s := &Snapshot{
		schema:     c.Schema,
		baseByType: make(map[string]*Profile),
		profiles:   make(map[string]*Profile),
		valueSets:  make(map[string]*ValueSet),
	}

	for _, p := range c.BaseProfiles {
		if p == nil || !p.IsResource() || p.Type == "" {
			continue
		}
		s.baseByType[p.Type] = p
	}
	for name := range s.baseByType {
		s.resourceTypes = append(s.resourceTypes, name)
	}
	sort.Strings(s.resourceTypes)

	for _, p := range c.Profiles {
		if p == nil {
			continue
		}
		s.profileCount++
		if p.ID != "" {
			s.profiles[p.ID] = p
		}
		if p.URL != "" {
			s.profiles[p.URL] = p
		}
	}

	for _, vs := range c.ValueSets {
		if vs != nil && vs.URL != "" {
			s.valueSets[vs.URL] = vs
		}
	}
	return s
}

// Empty returns a Snapshot with no definitions.
func Empty() *Snapshot {
	return NewSnapshot(Contents{})
}

// Schema implements Provider.
func (s *Snapshot) Schema() *Schema {
	return s.schema
}

// Profile implements Provider.
func (s *Snapshot) Profile(idOrURL string) *Profile {
	return s.profiles[idOrURL]
}

// IsKnownResourceType implements Provider.
func (s *Snapshot) IsKnownResourceType(name string) bool {
	_, ok := s.baseByType[name]
	return ok
}

// ValueSet implements Provider.
func (s *Snapshot) ValueSet(url string) *ValueSet {
	return s.valueSets[url]
}

// ResourceTypes implements Catalog.
func (s *Snapshot) ResourceTypes() []string {
	out := make([]string, len(s.resourceTypes))
	copy(out, s.resourceTypes)
	return out
}

// BaseProfile implements Catalog.
func (s *Snapshot) BaseProfile(resourceType string) *Profile {
	return s.baseByType[resourceType]
}

// Stats implements Catalog.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		BaseProfiles: len(s.baseByType),
		Profiles:     s.profileCount,
		ValueSets:    len(s.valueSets),
	}
	if s.schema != nil {
		st.SchemaDefinitions = len(s.schema.definitions)
	}
	return st
}

var _ Catalog = (*Snapshot)(nil)
