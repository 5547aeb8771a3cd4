package definitions

import (
	"github.com/gofhir/fhir/r4"
)

// ValueSet is the set of codes admitted by a value set, flattened from its
// expansion and its compose includes.
type ValueSet struct {
	URL string

	codes        map[string]map[string]struct{} // system -> code
	wholeSystems map[string]struct{}            // includes without concepts or filters
	filtered     map[string]struct{}            // includes selecting codes by filter
}

// NewValueSet creates an empty value set.
func NewValueSet(url string) *ValueSet {
	return &ValueSet{
		URL:          url,
		codes:        make(map[string]map[string]struct{}),
		wholeSystems: make(map[string]struct{}),
		filtered:     make(map[string]struct{}),
	}
}

// ValueSetFromR4 converts an r4.ValueSet.
func ValueSetFromR4(vs *r4.ValueSet) *ValueSet {
	if vs == nil {
		return nil
	}

	out := NewValueSet(derefString(vs.Url))

	if vs.Expansion != nil {
		for i := range vs.Expansion.Contains {
			out.addContains(&vs.Expansion.Contains[i])
		}
	}

	if vs.Compose != nil {
		for i := range vs.Compose.Include {
			include := &vs.Compose.Include[i]
			if include.System == nil {
				continue
			}
			system := *include.System
			if len(include.Filter) > 0 {
				out.filtered[system] = struct{}{}
			}
			if len(include.Concept) == 0 && len(include.Filter) == 0 {
				out.wholeSystems[system] = struct{}{}
				continue
			}
			for j := range include.Concept {
				if include.Concept[j].Code != nil {
					out.Add(system, *include.Concept[j].Code)
				}
			}
		}
	}
	return out
}

func (vs *ValueSet) addContains(c *r4.ValueSetExpansionContains) {
	if c.Code != nil && c.System != nil {
		vs.Add(*c.System, *c.Code)
	}
	for i := range c.Contains {
		vs.addContains(&c.Contains[i])
	}
}

// Add admits a code. Only used while building; value sets are read-only afterwards.
func (vs *ValueSet) Add(system, code string) {
	if vs.codes[system] == nil {
		vs.codes[system] = make(map[string]struct{})
	}
	vs.codes[system][code] = struct{}{}
}

// Contains reports whether system|code is admitted. An empty system matches
// the code in any system.
func (vs *ValueSet) Contains(system, code string) bool {
	if system == "" {
		for _, codes := range vs.codes {
			if _, ok := codes[code]; ok {
				return true
			}
		}
		return false
	}
	if _, ok := vs.wholeSystems[system]; ok {
		return true
	}
	_, ok := vs.codes[system][code]
	return ok
}

// IsEnumerable reports whether membership can be decided locally: the value
// set lists codes and includes neither a whole code system nor a filter.
func (vs *ValueSet) IsEnumerable() bool {
	return len(vs.codes) > 0 && len(vs.wholeSystems) == 0 && len(vs.filtered) == 0
}

// Size returns the number of enumerated codes.
func (vs *ValueSet) Size() int {
	n := 0
	for _, codes := range vs.codes {
		n += len(codes)
	}
	return n
}
