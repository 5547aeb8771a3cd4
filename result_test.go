package conformance

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCompose(t *testing.T) {
	semanticErr := Error("missing-required-field").From(OriginSemanticRule).Build()
	schemaErr := Error("schema-type-mismatch").From(OriginBaseSchema).Build()
	profileErr := Error("missing-required-extension").From(OriginProfileLayer).Build()
	warning := Warning("incomplete-address").From(OriginProfileLayer).Build()
	info := Info("unknown-resource-type").From(OriginSemanticRule).Build()
	fatal := Fatal(CodeMissingResourceType).From(OriginSemanticRule).Build()

	tests := []struct {
		name    string
		issues  []Issue
		strict  bool
		status  Status
		valid   bool
		message string
	}{
		{
			name:    "no issues",
			status:  StatusSuccess,
			valid:   true,
			message: "Validation successful",
		},
		{
			name:    "information only",
			issues:  []Issue{info},
			status:  StatusSuccess,
			valid:   true,
			message: "Validation successful",
		},
		{
			name:    "warnings",
			issues:  []Issue{warning, info, warning},
			status:  StatusWarning,
			valid:   true,
			message: "Validation passed with 2 warning(s)",
		},
		{
			name:    "fatal wins",
			issues:  []Issue{fatal, semanticErr},
			status:  StatusFailed,
			message: "Validation failed with 1 fatal issue(s)",
		},
		{
			name:    "base errors",
			issues:  []Issue{schemaErr, semanticErr, warning},
			status:  StatusFailed,
			message: "Validation failed with 2 error(s)",
		},
		{
			name:    "base and profile errors",
			issues:  []Issue{semanticErr, profileErr, profileErr},
			strict:  false,
			status:  StatusFailed,
			message: "Validation failed with 1 base specification error(s) and 2 profile error(s)",
		},
		{
			name:    "profile errors strict",
			issues:  []Issue{profileErr},
			strict:  true,
			status:  StatusFailed,
			message: "Validation failed with 1 profile error(s) (strict mode)",
		},
		{
			name:    "profile errors non-strict",
			issues:  []Issue{profileErr, warning},
			strict:  false,
			status:  StatusWarning,
			valid:   true,
			message: "Validation passed with 1 profile error(s) (non-strict mode)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Compose(strPtr("Patient"), tt.issues, tt.strict)
			if r.Status != tt.status {
				t.Errorf("Status = %s; want %s", r.Status, tt.status)
			}
			if r.Valid != tt.valid {
				t.Errorf("Valid = %v; want %v", r.Valid, tt.valid)
			}
			if r.Message != tt.message {
				t.Errorf("Message = %q; want %q", r.Message, tt.message)
			}
			if len(r.Issues) != len(tt.issues) {
				t.Errorf("len(Issues) = %d; want %d", len(r.Issues), len(tt.issues))
			}
			if r.ResourceType == nil || *r.ResourceType != "Patient" {
				t.Errorf("ResourceType = %v; want Patient", r.ResourceType)
			}
		})
	}
}

// Non-strict profile errors never flip validity on their own.
func TestCompose_StrictOnlyAffectsProfileErrors(t *testing.T) {
	base := []Issue{Warning("w").From(OriginSemanticRule).Build()}
	withProfile := append(append([]Issue{}, base...), Error("p").From(OriginProfileLayer).Build())

	if !Compose(nil, base, false).Valid {
		t.Fatal("base issues alone should be valid")
	}
	if !Compose(nil, withProfile, false).Valid {
		t.Error("non-strict profile error should not invalidate the result")
	}
	if Compose(nil, withProfile, true).Valid {
		t.Error("strict profile error should invalidate the result")
	}
}

func TestCompose_NilIssues(t *testing.T) {
	r := Compose(nil, nil, true)
	if r.Issues == nil {
		t.Error("Issues should be an empty slice, not nil")
	}
	if r.ResourceType != nil {
		t.Errorf("ResourceType = %v; want nil", r.ResourceType)
	}
}

func TestFailed(t *testing.T) {
	r := Failed(nil, Fatal(CodeInvalidFormat).Details("Resource must be a JSON object").Build())
	if r.Valid || r.Status != StatusFailed {
		t.Errorf("Failed() = %s/%v; want failed/false", r.Status, r.Valid)
	}
	if r.FatalCount() != 1 {
		t.Errorf("FatalCount() = %d; want 1", r.FatalCount())
	}
}

func TestResult_Counts(t *testing.T) {
	r := Compose(nil, []Issue{
		Fatal("f").Build(),
		Error("e").From(OriginBaseSchema).Build(),
		Warning("w").From(OriginProfileLayer).Build(),
		Warning("w2").From(OriginSemanticRule).Build(),
		Info("i").Build(),
	}, true)

	if got := r.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount() = %d; want 2", got)
	}
	if got := r.WarningCount(); got != 2 {
		t.Errorf("WarningCount() = %d; want 2", got)
	}
	if got := r.InfoCount(); got != 1 {
		t.Errorf("InfoCount() = %d; want 1", got)
	}
	if !r.HasErrors() {
		t.Error("HasErrors() = false; want true")
	}
	if got := len(r.Filter(SeverityWarning)); got != 2 {
		t.Errorf("len(Filter(warning)) = %d; want 2", got)
	}
	if got := len(r.ByOrigin(OriginProfileLayer)); got != 1 {
		t.Errorf("len(ByOrigin(profile-layer)) = %d; want 1", got)
	}

	codes := r.Codes()
	want := []string{"f", "e", "w", "w2", "i"}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Codes()[%d] = %q; want %q", i, codes[i], want[i])
		}
	}
}
