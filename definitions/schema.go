package definitions

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// SchemaURL is the absolute URL the base schema is registered under when
// compiled. It matches the id the R4 schema declares for itself.
const SchemaURL = "http://hl7.org/fhir/json-schema/4.0"

// Schema is a JSON schema document with a definitions section keyed by
// resource and data type name.
type Schema struct {
	raw         []byte
	definitions map[string]struct{}
}

// NewSchema parses a JSON schema document. The document must be a JSON object.
func NewSchema(data []byte) (*Schema, error) {
	var doc struct {
		Definitions map[string]json.RawMessage `json:"definitions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	s := &Schema{
		raw:         data,
		definitions: make(map[string]struct{}, len(doc.Definitions)),
	}
	for name := range doc.Definitions {
		s.definitions[name] = struct{}{}
	}
	return s, nil
}

// Raw returns the schema document bytes. Callers must not modify them.
func (s *Schema) Raw() []byte {
	return s.raw
}

// HasDefinition reports whether the schema defines name.
func (s *Schema) HasDefinition(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.definitions[name]
	return ok
}

// Definitions returns the sorted definition names.
func (s *Schema) Definitions() []string {
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fragment returns the compile URL for a definition, or the whole document
// when the schema does not define name.
func (s *Schema) Fragment(name string) string {
	if s.HasDefinition(name) {
		return SchemaURL + "#/definitions/" + name
	}
	return SchemaURL
}
