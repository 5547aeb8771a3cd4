package conformance

// FHIRVersion represents a FHIR specification version.
type FHIRVersion string

// R4 is FHIR Release 4 (4.0.1), the only release the definitions are built for.
const R4 FHIRVersion = "R4"

// String returns the version string.
func (v FHIRVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported FHIR version.
func (v FHIRVersion) IsValid() bool {
	return v == R4
}

// Release returns the full release number used in StructureDefinitions.
func (v FHIRVersion) Release() string {
	if v == R4 {
		return "4.0.1"
	}
	return ""
}

// Server identity reported by the API and the CLI.
const (
	ServerName        = "FHIR Validation Server"
	ServerVersion     = "1.0.0"
	ServerDescription = "Universal FHIR Resource Validation API"
)
