package definitions

// Provider is the read-only source of definitions used during validation.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Schema returns the base JSON schema, or nil when none is available.
	Schema() *Schema

	// Profile returns the profile with the given id or canonical URL.
	Profile(idOrURL string) *Profile

	// IsKnownResourceType reports whether a base resource definition exists for name.
	IsKnownResourceType(name string) bool

	// ValueSet returns the value set with the given canonical URL.
	ValueSet(url string) *ValueSet
}

// Catalog is implemented by providers that can enumerate their contents.
type Catalog interface {
	Provider

	// ResourceTypes returns the sorted names of the known resource types.
	ResourceTypes() []string

	// BaseProfile returns the base StructureDefinition for a resource type.
	BaseProfile(resourceType string) *Profile

	// Stats summarizes what was loaded.
	Stats() Stats
}

// Stats counts the loaded definitions.
type Stats struct {
	SchemaDefinitions int `json:"schema_definitions"`
	BaseProfiles      int `json:"base_profiles"`
	Profiles          int `json:"profiles"`
	ValueSets         int `json:"value_sets"`
}
