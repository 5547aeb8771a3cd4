package definitions

import (
	"strings"

	"github.com/gofhir/fhir/r4"
)

// Profile is the subset of a StructureDefinition the profile checker reads.
type Profile struct {
	ID           string
	URL          string
	Name         string
	Type         string
	Kind         string
	Differential []Element

	// Raw is the source document, kept for serving the definition back to clients
	Raw []byte
}

// Element is a differential ElementDefinition.
type Element struct {
	ID        string
	Path      string
	SliceName string
	Min       int
	Max       string
	Types     []TypeRef
	Binding   *Binding
}

// TypeRef is an allowed type for an element.
type TypeRef struct {
	Code    string
	Profile []string
}

// Binding is a terminology binding on an element.
type Binding struct {
	Strength string
	ValueSet string
}

// ExtensionSlice is a profiled extension element with its cardinality.
type ExtensionSlice struct {
	// ElementID is the differential element id, e.g. "Patient.extension:indigenousPeople"
	ElementID string

	// SliceName is the slice part of the id
	SliceName string

	// Parent is the path of the element carrying the extension, e.g. "Patient" or "Patient.name"
	Parent string

	// Attribute is "extension" or "modifierExtension"
	Attribute string

	Min      int
	Profiles []string
}

// ProfileFromR4 converts an r4.StructureDefinition. The logical id is
// taken from the caller since bundles and IG files key it differently.
func ProfileFromR4(id string, sd *r4.StructureDefinition) *Profile {
	if sd == nil {
		return nil
	}

	p := &Profile{
		ID:   id,
		URL:  derefString(sd.Url),
		Name: derefString(sd.Name),
		Type: derefString(sd.Type),
	}
	if sd.Kind != nil {
		p.Kind = string(*sd.Kind)
	}
	if sd.Differential != nil {
		p.Differential = convertElements(sd.Differential.Element)
	}
	return p
}

func convertElements(elements []r4.ElementDefinition) []Element {
	if len(elements) == 0 {
		return nil
	}

	result := make([]Element, 0, len(elements))
	for i := range elements {
		ed := &elements[i]
		e := Element{
			ID:        derefString(ed.Id),
			Path:      derefString(ed.Path),
			SliceName: derefString(ed.SliceName),
			Max:       derefString(ed.Max),
		}
		if ed.Min != nil {
			e.Min = int(*ed.Min)
		}
		for j := range ed.Type {
			e.Types = append(e.Types, TypeRef{
				Code:    derefString(ed.Type[j].Code),
				Profile: ed.Type[j].Profile,
			})
		}
		if ed.Binding != nil {
			b := &Binding{ValueSet: derefString(ed.Binding.ValueSet)}
			if ed.Binding.Strength != nil {
				b.Strength = string(*ed.Binding.Strength)
			}
			e.Binding = b
		}
		result = append(result, e)
	}
	return result
}

// IsResource reports whether the profile constrains a resource (not a data type).
func (p *Profile) IsResource() bool {
	return p.Kind == "resource"
}

// RequiredExtensionSlices returns the extension slices with min >= 1.
func (p *Profile) RequiredExtensionSlices() []ExtensionSlice {
	var out []ExtensionSlice
	for _, e := range p.Differential {
		slice, ok := extensionSlice(e)
		if !ok || slice.Min < 1 {
			continue
		}
		out = append(out, slice)
	}
	return out
}

// extensionSlice recognizes ids whose last segment is extension:<name> or
// modifierExtension:<name>.
func extensionSlice(e Element) (ExtensionSlice, bool) {
	id := e.ID
	dot := strings.LastIndexByte(id, '.')
	if dot < 0 {
		return ExtensionSlice{}, false
	}

	attr, name, ok := strings.Cut(id[dot+1:], ":")
	if !ok || name == "" || (attr != "extension" && attr != "modifierExtension") {
		return ExtensionSlice{}, false
	}

	slice := ExtensionSlice{
		ElementID: id,
		SliceName: name,
		Parent:    id[:dot],
		Attribute: attr,
		Min:       e.Min,
	}
	for _, t := range e.Types {
		if t.Code == "Extension" {
			slice.Profiles = append(slice.Profiles, t.Profile...)
		}
	}
	return slice, true
}

// ElementsWithRequiredBinding returns differential elements bound to a value
// set with strength required.
func (p *Profile) ElementsWithRequiredBinding() []Element {
	var out []Element
	for _, e := range p.Differential {
		if e.Binding != nil && e.Binding.Strength == "required" && e.Binding.ValueSet != "" {
			out = append(out, e)
		}
	}
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
