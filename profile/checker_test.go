package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/definitions"
)

const (
	genderValueSet = "http://hl7.org/fhir/ValueSet/administrative-gender"
	genderSystem   = "http://hl7.org/fhir/administrative-gender"
)

func patientProfile() *definitions.Profile {
	return &definitions.Profile{
		ID:   "ph-core-patient",
		URL:  DefaultBaseURL + "ph-core-patient",
		Type: "Patient",
		Kind: "resource",
		Differential: []definitions.Element{
			{ID: "Patient", Path: "Patient"},
			{
				ID:        "Patient.extension:indigenousPeople",
				Path:      "Patient.extension",
				SliceName: "indigenousPeople",
				Min:       1,
				Max:       "1",
				Types:     []definitions.TypeRef{{Code: "Extension", Profile: []string{DefaultBaseURL + "indigenous-people"}}},
			},
			{
				ID:        "Patient.address.extension:region",
				Path:      "Patient.address.extension",
				SliceName: "region",
				Min:       1,
				Types:     []definitions.TypeRef{{Code: "Extension", Profile: []string{DefaultBaseURL + "region"}}},
			},
			{
				ID:        "Patient.identifier:PhilHealthID.extension:card",
				Path:      "Patient.identifier.extension",
				SliceName: "card",
				Min:       1,
				Types:     []definitions.TypeRef{{Code: "Extension", Profile: []string{DefaultBaseURL + "card"}}},
			},
			{
				ID:      "Patient.gender",
				Path:    "Patient.gender",
				Binding: &definitions.Binding{Strength: "required", ValueSet: genderValueSet + "|4.0.1"},
			},
		},
	}
}

func testProvider(profiles ...*definitions.Profile) definitions.Provider {
	gender := definitions.NewValueSet(genderValueSet)
	for _, code := range []string{"male", "female", "other", "unknown"} {
		gender.Add(genderSystem, code)
	}
	return definitions.NewSnapshot(definitions.Contents{
		Profiles:  profiles,
		ValueSets: []*definitions.ValueSet{gender},
	})
}

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

func validPatient() map[string]any {
	return map[string]any{
		"resourceType": "Patient",
		"id":           "p1",
		"gender":       "female",
		"extension": []any{
			map[string]any{"url": DefaultBaseURL + "indigenous-people", "valueBoolean": false},
		},
		"identifier": []any{
			map[string]any{"system": "http://philhealth.gov.ph/fhir/Identifier/philhealth-id", "value": "12-345678901-2"},
		},
		"maritalStatus": map[string]any{
			"coding": []any{
				map[string]any{"system": "http://terminology.hl7.org/CodeSystem/v3-MaritalStatus", "code": "M"},
			},
		},
		"address": []any{
			map[string]any{
				"city":      "Quezon City",
				"country":   "PH",
				"extension": []any{map[string]any{"url": DefaultBaseURL + "region", "valueCoding": map[string]any{"code": "NCR"}}},
			},
		},
	}
}

func TestChecker_ValidPatient(t *testing.T) {
	c := New(testProvider(patientProfile()), DefaultConfig())
	issues := c.Check(validPatient(), "Patient", conformance.NewOptions(conformance.WithProfileLayer(true, true)))
	if len(issues) != 0 {
		t.Errorf("Check() = %v; want no issues", issues)
	}
}

func TestChecker_AllFindings(t *testing.T) {
	doc := map[string]any{
		"resourceType": "Patient",
		"gender":       "robot",
		"identifier": []any{
			map[string]any{"system": "http://PhilHealth.gov.ph/id", "value": "12-AB"},
		},
		"maritalStatus": map[string]any{
			"coding": []any{map[string]any{"system": "http://example.org/status", "code": "M"}},
		},
		"address": []any{
			map[string]any{"country": "US", "city": "Boston"},
			map[string]any{"country": "ph", "extension": []any{map[string]any{"url": DefaultBaseURL + "region"}}},
			map[string]any{"line": []any{"1 Main St"}},
		},
	}

	c := New(testProvider(patientProfile()), DefaultConfig())
	issues := c.Check(doc, "Patient", conformance.NewOptions(conformance.WithProfileLayer(true, true)))

	want := []issueSummary{
		{conformance.SeverityError, CodeMissingRequiredExtension, "extension"},
		{conformance.SeverityError, CodeMissingRequiredExtension, "address[0].extension"},
		{conformance.SeverityError, CodeMissingRequiredExtension, "address[2].extension"},
		{conformance.SeverityWarning, CodeInvalidIdentifierFormat, "identifier[0].value"},
		{conformance.SeverityWarning, CodeInvalidTerminologyBind, "maritalStatus.coding[0].system"},
		{conformance.SeverityWarning, CodeCodeNotInValueSet, "gender"},
		{conformance.SeverityInformation, CodeNonLocalAddress, "address[0].country"},
		{conformance.SeverityWarning, CodeIncompleteAddress, "address[1]"},
		{conformance.SeverityWarning, CodeIncompleteAddress, "address[2]"},
	}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
	for _, issue := range issues {
		if issue.Origin != conformance.OriginProfileLayer {
			t.Errorf("issue %s origin = %s; want %s", issue.Code, issue.Origin, conformance.OriginProfileLayer)
		}
	}
}

func TestChecker_ValueSetsGated(t *testing.T) {
	doc := validPatient()
	doc["gender"] = "robot"

	c := New(testProvider(patientProfile()), DefaultConfig())

	if issues := c.Check(doc, "Patient", conformance.NewOptions(conformance.WithValueSets(false))); len(issues) != 0 {
		t.Errorf("Check() without value sets = %v; want none", summarize(issues))
	}
	issues := c.Check(doc, "Patient", conformance.NewOptions())
	want := []issueSummary{{conformance.SeverityWarning, CodeCodeNotInValueSet, "gender"}}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestChecker_CodeableConceptValueSet(t *testing.T) {
	p := &definitions.Profile{
		ID:   "ph-core-observation",
		Type: "Observation",
		Differential: []definitions.Element{{
			ID:      "Observation.category",
			Path:    "Observation.category",
			Binding: &definitions.Binding{Strength: "required", ValueSet: genderValueSet},
		}},
	}
	doc := map[string]any{
		"resourceType": "Observation",
		"category": []any{
			map[string]any{"coding": []any{
				map[string]any{"system": genderSystem, "code": "male"},
				map[string]any{"system": "http://other", "code": "male"},
			}},
		},
	}

	issues := New(testProvider(p), DefaultConfig()).Check(doc, "Observation", conformance.NewOptions())
	want := []issueSummary{{conformance.SeverityWarning, CodeCodeNotInValueSet, "category[0].coding[1].code"}}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestChecker_LookupStates(t *testing.T) {
	byURLOnly := patientProfile()
	byURLOnly.ID = ""
	c := New(testProvider(byURLOnly), DefaultConfig())

	tests := []struct {
		name         string
		resourceType string
		profileURL   string
		wantState    State
		want         []issueSummary
	}{
		{
			name:         "outside the layer",
			resourceType: "Spaceship",
			wantState:    NotApplicable,
			want:         []issueSummary{},
		},
		{
			name:         "base profile only",
			resourceType: "Condition",
			wantState:    BaseOnly,
			want:         []issueSummary{{conformance.SeverityInformation, CodeUsingBaseProfile, ""}},
		},
		{
			name:         "mapped but not loaded",
			resourceType: "Encounter",
			wantState:    NotLoaded,
			want:         []issueSummary{{conformance.SeverityWarning, CodeProfileNotLoaded, ""}},
		},
		{
			name:         "resolved through canonical URL",
			resourceType: "Patient",
			wantState:    Resolved,
		},
		{
			name:         "explicit profile URL overrides mapping",
			resourceType: "Spaceship",
			profileURL:   DefaultBaseURL + "ph-core-patient",
			wantState:    Resolved,
		},
		{
			name:         "explicit profile URL not loaded",
			resourceType: "Patient",
			profileURL:   "http://example.org/StructureDefinition/missing",
			wantState:    NotLoaded,
			want:         []issueSummary{{conformance.SeverityWarning, CodeProfileNotLoaded, ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := c.Lookup(tt.resourceType, tt.profileURL)
			if l.State != tt.wantState {
				t.Fatalf("Lookup().State = %s; want %s", l.State, tt.wantState)
			}
			if (l.Profile != nil) != (tt.wantState == Resolved) {
				t.Errorf("Lookup().Profile = %v for state %s", l.Profile, l.State)
			}
			if tt.want == nil {
				return
			}
			opts := conformance.NewOptions(conformance.WithProfileURL(tt.profileURL))
			got := summarize(c.Check(map[string]any{"resourceType": tt.resourceType}, tt.resourceType, opts))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Check() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChecker_NilProvider(t *testing.T) {
	c := New(nil, DefaultConfig())
	issues := c.Check(map[string]any{"resourceType": "Patient"}, "Patient", conformance.NewOptions())
	want := []issueSummary{{conformance.SeverityWarning, CodeProfileNotLoaded, ""}}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsNumericID(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"123456789012", true},
		{"12-345678901-2", true},
		{"12 3456 7890", true},
		{"12-AB", false},
		{"--", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isNumericID(tt.value); got != tt.want {
			t.Errorf("isNumericID(%q) = %v; want %v", tt.value, got, tt.want)
		}
	}
}

func TestChecker_IsLocal(t *testing.T) {
	c := New(nil, DefaultConfig())
	tests := []struct {
		country string
		want    bool
	}{
		{"PH", true},
		{"ph", true},
		{"PHL", true},
		{" PH ", true},
		{"US", false},
		{"Philippines", false},
	}
	for _, tt := range tests {
		if got := c.isLocal(tt.country); got != tt.want {
			t.Errorf("isLocal(%q) = %v; want %v", tt.country, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	doc := map[string]any{
		"resourceType": "Patient",
		"name": []any{
			map[string]any{"given": []any{"Juan", "Jose"}},
			map[string]any{"family": "Cruz"},
		},
	}

	got := resolve(doc, "Patient.name.given")
	want := []located{
		{path: "name[0].given[0]", value: "Juan"},
		{path: "name[0].given[1]", value: "Jose"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(located{})); diff != "" {
		t.Errorf("resolve() mismatch (-want +got):\n%s", diff)
	}

	if got := resolve(doc, "Patient.telecom"); got != nil {
		t.Errorf("resolve(missing) = %v; want nil", got)
	}
}

func TestChecker_ExtensionAlternatives(t *testing.T) {
	p := &definitions.Profile{
		ID:   "ph-core-observation",
		URL:  DefaultBaseURL + "ph-core-observation",
		Type: "Observation",
		Kind: "resource",
		Differential: []definitions.Element{{
			ID:        "Observation.extension:source",
			Path:      "Observation.extension",
			SliceName: "source",
			Min:       1,
			Types: []definitions.TypeRef{{
				Code:    "Extension",
				Profile: []string{DefaultBaseURL + "source-a", DefaultBaseURL + "source-b"},
			}},
		}},
	}
	c := New(testProvider(p), DefaultConfig())
	opts := conformance.NewOptions(conformance.WithProfileLayer(true, true))

	withB := map[string]any{
		"resourceType": "Observation",
		"extension":    []any{map[string]any{"url": DefaultBaseURL + "source-b", "valueString": "x"}},
	}
	if issues := c.Check(withB, "Observation", opts); len(issues) != 0 {
		t.Errorf("Check(one alternative present) = %v; want none", issues)
	}

	issues := c.Check(map[string]any{"resourceType": "Observation"}, "Observation", opts)
	want := []issueSummary{{conformance.SeverityError, CodeMissingRequiredExtension, "extension"}}
	if diff := cmp.Diff(want, summarize(issues)); diff != "" {
		t.Errorf("Check(none present) mismatch (-want +got):\n%s", diff)
	}
}
