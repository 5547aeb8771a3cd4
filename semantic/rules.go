package semantic

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/jsonvalue"
)

// Issue codes produced by the rule table.
const (
	CodeMissingRequiredField = "missing-required-field"
	CodeMissingIdentifier    = "missing-identifier"
	CodeInvalidStatus        = "invalid-status-value"
)

// Rule is a single resource-type-specific check.
type Rule interface {
	Check(doc map[string]any, resourceType string) []conformance.Issue
}

// RequiredField requires Field to be present and non-empty.
type RequiredField struct {
	Field string
}

// Check implements Rule.
func (r RequiredField) Check(doc map[string]any, resourceType string) []conformance.Issue {
	if _, ok := jsonvalue.Field(doc, r.Field); ok {
		return nil
	}
	return []conformance.Issue{
		conformance.Error(CodeMissingRequiredField).
			Details(fmt.Sprintf("%s must have a %s field", resourceType, r.Field)).
			In(resourceType, r.Field).
			From(conformance.OriginSemanticRule).
			Build(),
	}
}

// EnumeratedField restricts Field, when present, to Values. Code defaults
// to invalid-status-value.
type EnumeratedField struct {
	Field  string
	Values []string
	Code   string
}

// Check implements Rule.
func (r EnumeratedField) Check(doc map[string]any, resourceType string) []conformance.Issue {
	v, ok := jsonvalue.Field(doc, r.Field)
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString && slices.Contains(r.Values, s) {
		return nil
	}

	code := r.Code
	if code == "" {
		code = CodeInvalidStatus
	}
	return []conformance.Issue{
		conformance.Error(code).
			Details(fmt.Sprintf("Invalid %s %s: %v. Valid values are: %s",
				resourceType, r.Field, v, strings.Join(r.Values, ", "))).
			In(resourceType, r.Field).
			From(conformance.OriginSemanticRule).
			Build(),
	}
}

// RequireAnyOf requires at least one of Fields to be present. The issue is
// a warning unless Severity says otherwise.
type RequireAnyOf struct {
	Fields   []string
	Code     string
	Severity conformance.Severity
	Details  string
}

// Check implements Rule.
func (r RequireAnyOf) Check(doc map[string]any, resourceType string) []conformance.Issue {
	for _, f := range r.Fields {
		if _, ok := jsonvalue.Field(doc, f); ok {
			return nil
		}
	}

	severity := r.Severity
	if severity == "" {
		severity = conformance.SeverityWarning
	}
	details := r.Details
	if details == "" {
		details = fmt.Sprintf("%s should have one of: %s", resourceType, strings.Join(r.Fields, ", "))
	}
	return []conformance.Issue{
		conformance.NewIssue(severity, r.Code).
			Details(details).
			At(strings.Join(r.Fields, " or ")).
			From(conformance.OriginSemanticRule).
			Build(),
	}
}

// Status value sets of the built-in rules (FHIR R4).
var (
	EncounterStatuses = []string{
		"planned", "arrived", "triaged", "in-progress", "onleave",
		"finished", "cancelled", "entered-in-error", "unknown",
	}
	ObservationStatuses = []string{
		"registered", "preliminary", "final", "amended",
		"corrected", "cancelled", "entered-in-error", "unknown",
	}
	ImmunizationStatuses = []string{"completed", "entered-in-error", "not-done"}
	ProcedureStatuses    = []string{
		"preparation", "in-progress", "not-done", "on-hold",
		"stopped", "completed", "entered-in-error", "unknown",
	}
)

// DefaultRules returns the built-in rule table keyed by resource type.
func DefaultRules() map[string][]Rule {
	return map[string][]Rule{
		"Encounter": {
			RequiredField{Field: "status"},
			EnumeratedField{Field: "status", Values: EncounterStatuses, Code: "invalid-encounter-status"},
			RequiredField{Field: "class"},
		},
		"Observation": {
			RequiredField{Field: "status"},
			EnumeratedField{Field: "status", Values: ObservationStatuses, Code: "invalid-observation-status"},
			RequiredField{Field: "code"},
		},
		"Patient": {
			RequireAnyOf{
				Fields:  []string{"id", "identifier"},
				Code:    CodeMissingIdentifier,
				Details: "Patient should have either an id or identifier",
			},
		},
		"Condition": {
			RequiredField{Field: "subject"},
		},
		"Immunization": {
			RequiredField{Field: "status"},
			EnumeratedField{Field: "status", Values: ImmunizationStatuses, Code: "invalid-immunization-status"},
			RequiredField{Field: "vaccineCode"},
			RequiredField{Field: "patient"},
		},
		"Procedure": {
			RequiredField{Field: "status"},
			EnumeratedField{Field: "status", Values: ProcedureStatuses, Code: "invalid-procedure-status"},
			RequiredField{Field: "subject"},
		},
	}
}
