package semantic

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gofhir/conformance"
)

type issueSummary struct {
	Severity conformance.Severity
	Code     string
	Location string
}

func summarize(issues []conformance.Issue) []issueSummary {
	out := make([]issueSummary, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issueSummary{issue.Severity, issue.Code, issue.Location})
	}
	return out
}

type knownTypes map[string]bool

func (k knownTypes) IsKnownResourceType(name string) bool { return k[name] }

func TestChecker_ResourceType(t *testing.T) {
	c := New(knownTypes{"CustomThing": true})

	tests := []struct {
		name     string
		doc      map[string]any
		wantType string
		wantOK   bool
		want     []issueSummary
	}{
		{
			name:   "missing",
			doc:    map[string]any{},
			wantOK: false,
			want:   []issueSummary{{conformance.SeverityFatal, conformance.CodeMissingResourceType, "resourceType"}},
		},
		{
			name:   "empty string counts as missing",
			doc:    map[string]any{"resourceType": ""},
			wantOK: false,
			want:   []issueSummary{{conformance.SeverityFatal, conformance.CodeMissingResourceType, "resourceType"}},
		},
		{
			name:   "not a string",
			doc:    map[string]any{"resourceType": 42.0},
			wantOK: false,
			want:   []issueSummary{{conformance.SeverityError, conformance.CodeInvalidResourceType, "resourceType"}},
		},
		{
			name:     "unknown type",
			doc:      map[string]any{"resourceType": "Spaceship"},
			wantType: "Spaceship",
			wantOK:   true,
			want:     []issueSummary{{conformance.SeverityInformation, conformance.CodeUnknownResourceType, "resourceType"}},
		},
		{
			name:     "known from fallback list",
			doc:      map[string]any{"resourceType": "Patient"},
			wantType: "Patient",
			wantOK:   true,
			want:     []issueSummary{},
		},
		{
			name:     "known from provider",
			doc:      map[string]any{"resourceType": "CustomThing"},
			wantType: "CustomThing",
			wantOK:   true,
			want:     []issueSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, issues, ok := c.ResourceType(tt.doc)
			if rt != tt.wantType || ok != tt.wantOK {
				t.Errorf("ResourceType() = %q, %v; want %q, %v", rt, ok, tt.wantType, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, summarize(issues)); diff != "" {
				t.Errorf("ResourceType() issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChecker_Rules(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name string
		doc  map[string]any
		want []issueSummary
	}{
		{
			name: "encounter without status and class",
			doc:  map[string]any{"resourceType": "Encounter"},
			want: []issueSummary{
				{conformance.SeverityError, CodeMissingRequiredField, "status"},
				{conformance.SeverityError, CodeMissingRequiredField, "class"},
			},
		},
		{
			name: "encounter with invalid status",
			doc: map[string]any{
				"resourceType": "Encounter",
				"status":       "done",
				"class":        map[string]any{"system": "http://terminology.hl7.org/CodeSystem/v3-ActCode", "code": "AMB"},
			},
			want: []issueSummary{{conformance.SeverityError, "invalid-encounter-status", "status"}},
		},
		{
			name: "observation with bogus status and empty code",
			doc:  map[string]any{"resourceType": "Observation", "status": "bogus", "code": map[string]any{}},
			want: []issueSummary{
				{conformance.SeverityError, "invalid-observation-status", "status"},
				{conformance.SeverityError, CodeMissingRequiredField, "code"},
			},
		},
		{
			name: "patient without id or identifier",
			doc:  map[string]any{"resourceType": "Patient", "identifier": []any{}},
			want: []issueSummary{{conformance.SeverityWarning, CodeMissingIdentifier, "id or identifier"}},
		},
		{
			name: "patient with identifier",
			doc: map[string]any{
				"resourceType": "Patient",
				"identifier":   []any{map[string]any{"system": "urn:x", "value": "1"}},
			},
			want: []issueSummary{},
		},
		{
			name: "immunization",
			doc:  map[string]any{"resourceType": "Immunization", "status": "given"},
			want: []issueSummary{
				{conformance.SeverityError, "invalid-immunization-status", "status"},
				{conformance.SeverityError, CodeMissingRequiredField, "vaccineCode"},
				{conformance.SeverityError, CodeMissingRequiredField, "patient"},
			},
		},
		{
			name: "condition without subject",
			doc:  map[string]any{"resourceType": "Condition"},
			want: []issueSummary{{conformance.SeverityError, CodeMissingRequiredField, "subject"}},
		},
		{
			name: "type without rules",
			doc:  map[string]any{"resourceType": "Basic"},
			want: []issueSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.doc["resourceType"].(string)
			issues := c.Check(tt.doc, rt)
			if diff := cmp.Diff(tt.want, summarize(issues)); diff != "" {
				t.Errorf("Check() mismatch (-want +got):\n%s", diff)
			}
			for _, issue := range issues {
				if issue.Origin != conformance.OriginSemanticRule {
					t.Errorf("issue %s origin = %s; want %s", issue.Code, issue.Origin, conformance.OriginSemanticRule)
				}
			}
		})
	}
}

func TestChecker_EnumMessageListsValues(t *testing.T) {
	issues := New(nil).Check(map[string]any{"resourceType": "Observation", "status": "bogus", "code": map[string]any{"text": "x"}}, "Observation")
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d; want 1", len(issues))
	}
	for _, v := range ObservationStatuses {
		if !strings.Contains(issues[0].Details, v) {
			t.Errorf("Details %q does not list %q", issues[0].Details, v)
		}
	}
	if issues[0].Expression != "Observation.status" {
		t.Errorf("Expression = %q; want Observation.status", issues[0].Expression)
	}
}

func TestChecker_Register(t *testing.T) {
	c := New(nil)
	c.Register("Basic", RequiredField{Field: "code"})

	issues := c.Check(map[string]any{"resourceType": "Basic"}, "Basic")
	want := []issueSummary{{conformance.SeverityError, CodeMissingRequiredField, "code"}}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}

	if other := New(nil).Rules("Basic"); len(other) != 0 {
		t.Errorf("Register leaked into another checker: %v", other)
	}
}

func TestChecker_CrossCutting(t *testing.T) {
	doc := map[string]any{
		"resourceType":    "Patient",
		"id":              "p1",
		"active":          "yes",
		"birthDate":       "1990/01/01",
		"deceasedBoolean": false,
		"meta":            map[string]any{"lastUpdated": "2020-01-01T00:00:00Z"},
		"maritalStatus": map[string]any{
			"coding": []any{
				map[string]any{"system": "", "code": "M"},
			},
		},
		"contact": []any{
			map[string]any{"period": map[string]any{"start": "2020-01-01"}},
		},
	}

	issues := New(nil).Check(doc, "Patient")
	want := []issueSummary{
		{conformance.SeverityError, CodeInvalidBooleanField, "active"},
		{conformance.SeverityError, CodeInvalidDateFormat, "birthDate"},
		{conformance.SeverityError, CodeInvalidCodingSystem, "maritalStatus.coding[0].system"},
	}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
	if got := issues[2].Expression; got != "Patient.maritalStatus.coding[0].system" {
		t.Errorf("Expression = %q", got)
	}
}

func TestCheckCodings(t *testing.T) {
	doc := map[string]any{
		"resourceType": "Observation",
		"code": map[string]any{
			"coding": []any{
				map[string]any{"system": "http://loinc.org", "code": "1234-5"},
				map[string]any{"system": 7.0, "code": ""},
			},
		},
	}

	got := summarize(CheckCodings(doc, "Observation", conformance.SeverityWarning))
	want := []issueSummary{
		{conformance.SeverityWarning, CodeInvalidCodingSystem, "code.coding[1].system"},
		{conformance.SeverityWarning, CodeInvalidCodingCode, "code.coding[1].code"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CheckCodings() mismatch (-want +got):\n%s", diff)
	}
}

func TestChecker_Deterministic(t *testing.T) {
	doc := map[string]any{
		"resourceType": "Patient",
		"active":       1.0,
		"birthDate":    "x",
		"b":            map[string]any{"system": nil, "code": nil},
		"a":            map[string]any{"system": nil, "code": nil},
	}
	c := New(nil)
	first := c.Check(doc, "Patient")
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, c.Check(doc, "Patient")); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}
