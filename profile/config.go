package profile

// DefaultBaseURL is the canonical base of the default implementation guide.
const DefaultBaseURL = "https://wah4pc-validation.echosphere.cfd/StructureDefinition/"

// Config describes which resource types take part in the profile layer and
// the guide-specific constraints applied to them.
type Config struct {
	// BaseURL prefixes profile ids to form canonical URLs
	BaseURL string `yaml:"base_url"`

	// Profiles maps resource types to profile ids. An empty id marks a type
	// that is covered by the guide but uses the base specification.
	// Types absent from the map are outside the profile layer.
	Profiles map[string]string `yaml:"profiles"`

	// Country is the ISO 3166 code of the locale addresses are expected in
	Country string `yaml:"country"`

	// RequiredExtensions lists extensions every resource of a type must carry
	RequiredExtensions map[string][]RequiredExtension `yaml:"required_extensions"`

	// IdentifierRules constrain identifier values by system
	IdentifierRules []IdentifierRule `yaml:"identifier_rules"`

	// BindingConventions constrain the code systems used by coded elements
	BindingConventions []BindingConvention `yaml:"binding_conventions"`
}

// RequiredExtension is a mandatory extension on the resource root.
type RequiredExtension struct {
	SliceName string `yaml:"slice_name"`
	URL       string `yaml:"url"`
}

// IdentifierRule requires identifiers whose system contains SystemContains
// to have a numeric value once '-' and spaces are removed.
type IdentifierRule struct {
	ResourceType   string `yaml:"resource_type"`
	SystemContains string `yaml:"system_contains"`
	Label          string `yaml:"label"`
}

// BindingConvention requires the codings of Element to use a system whose
// URI contains SystemContains.
type BindingConvention struct {
	ResourceType   string `yaml:"resource_type"`
	Element        string `yaml:"element"`
	SystemContains string `yaml:"system_contains"`
	Label          string `yaml:"label"`
}

// DefaultConfig returns the PH-Core profile layer.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Profiles: map[string]string{
			"Patient":            "ph-core-patient",
			"Encounter":          "ph-core-encounter",
			"Organization":       "ph-core-organization",
			"Practitioner":       "ph-core-practitioner",
			"Observation":        "ph-core-observation",
			"Immunization":       "ph-core-immunization",
			"Medication":         "ph-core-medication",
			"RelatedPerson":      "ph-core-relatedperson",
			"Procedure":          "ph-core-procedure",
			"Location":           "ph-core-location",
			"Condition":          "",
			"AllergyIntolerance": "",
			"Bundle":             "",
		},
		Country:            "PH",
		RequiredExtensions: DefaultRequiredExtensions(DefaultBaseURL),
		IdentifierRules: []IdentifierRule{
			{ResourceType: "Patient", SystemContains: "philhealth", Label: "PhilHealth ID"},
		},
		BindingConventions: []BindingConvention{
			{ResourceType: "Patient", Element: "maritalStatus", SystemContains: "marital-status", Label: "Marital status"},
		},
	}
}

// DefaultRequiredExtensions returns the default mandatory extensions with
// URLs under baseURL.
func DefaultRequiredExtensions(baseURL string) map[string][]RequiredExtension {
	return map[string][]RequiredExtension{
		"Patient": {
			{SliceName: "indigenousPeople", URL: baseURL + "indigenous-people"},
		},
	}
}

// ProfileURL returns the canonical URL of a mapped profile, or "" when the
// type has no profile of its own.
func (c Config) ProfileURL(resourceType string) string {
	id := c.Profiles[resourceType]
	if id == "" {
		return ""
	}
	return c.BaseURL + id
}
