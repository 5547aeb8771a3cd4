package conformance

import "fmt"

// Status is the overall verdict of a validation.
type Status string

const (
	// StatusSuccess means no issue above information was found.
	StatusSuccess Status = "success"
	// StatusWarning means the resource passed with reportable findings.
	StatusWarning Status = "warning"
	// StatusFailed means at least one blocking issue was found.
	StatusFailed Status = "failed"
)

// Result contains the outcome of validating a resource.
// It is derived from the issue list and the strictness policy; build it with Compose.
type Result struct {
	// Status is the overall verdict
	Status Status `json:"status"`

	// Message summarizes the verdict for humans
	Message string `json:"message"`

	// Issues contains all validation issues in production order
	Issues []Issue `json:"issues"`

	// ResourceType is the document's discriminant, nil when absent or not a string
	ResourceType *string `json:"resource_type"`

	// Valid is true if no blocking issue survived the strictness policy
	Valid bool `json:"valid"`
}

// Compose classifies an issue list into a Result.
//
// Fatal and error issues block validity. Errors raised by the profile layer
// block only when strict is true; otherwise they are reported and the
// result passes with status warning.
func Compose(resourceType *string, issues []Issue, strict bool) *Result {
	if issues == nil {
		issues = []Issue{}
	}

	var fatals, baseErrors, profileErrors, warnings int
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityFatal:
			fatals++
		case SeverityError:
			if issue.Origin == OriginProfileLayer {
				profileErrors++
			} else {
				baseErrors++
			}
		case SeverityWarning:
			warnings++
		}
	}

	r := &Result{
		Issues:       issues,
		ResourceType: resourceType,
	}

	switch {
	case fatals > 0:
		r.Status = StatusFailed
		r.Message = fmt.Sprintf("Validation failed with %d fatal issue(s)", fatals)
	case baseErrors > 0 && profileErrors > 0:
		r.Status = StatusFailed
		r.Message = fmt.Sprintf("Validation failed with %d base specification error(s) and %d profile error(s)", baseErrors, profileErrors)
	case baseErrors > 0:
		r.Status = StatusFailed
		r.Message = fmt.Sprintf("Validation failed with %d error(s)", baseErrors)
	case profileErrors > 0 && strict:
		r.Status = StatusFailed
		r.Message = fmt.Sprintf("Validation failed with %d profile error(s) (strict mode)", profileErrors)
	case profileErrors > 0:
		r.Status = StatusWarning
		r.Valid = true
		r.Message = fmt.Sprintf("Validation passed with %d profile error(s) (non-strict mode)", profileErrors)
	case warnings > 0:
		r.Status = StatusWarning
		r.Valid = true
		r.Message = fmt.Sprintf("Validation passed with %d warning(s)", warnings)
	default:
		r.Status = StatusSuccess
		r.Valid = true
		r.Message = "Validation successful"
	}

	return r
}

// Failed builds a failed Result around a single fatal issue.
func Failed(resourceType *string, issue Issue) *Result {
	return Compose(resourceType, []Issue{issue}, true)
}

// HasErrors returns true if there are any error or fatal issues.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.IsBlocking() {
			return true
		}
	}
	return false
}

// FatalCount returns the number of fatal issues.
func (r *Result) FatalCount() int {
	return r.count(SeverityFatal)
}

// ErrorCount returns the number of error and fatal issues.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError) + r.count(SeverityFatal)
}

// WarningCount returns the number of warning issues.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

// InfoCount returns the number of information issues.
func (r *Result) InfoCount() int {
	return r.count(SeverityInformation)
}

func (r *Result) count(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

// Filter returns the issues matching the given severity.
func (r *Result) Filter(severity Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}

// ByOrigin returns the issues produced by the given checker.
func (r *Result) ByOrigin(origin Origin) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Origin == origin {
			out = append(out, issue)
		}
	}
	return out
}

// Codes returns the issue codes in order; handy for assertions and logs.
func (r *Result) Codes() []string {
	codes := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		codes[i] = issue.Code
	}
	return codes
}
