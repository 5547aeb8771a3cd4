package conformance

import "strings"

// Severity represents the severity of a validation issue.
// Values are ordered by decreasing blocking power.
type Severity string

const (
	// SeverityFatal indicates the document is unusable and checking of the resource stops.
	SeverityFatal Severity = "fatal"
	// SeverityError indicates a specification or profile violation.
	SeverityError Severity = "error"
	// SeverityWarning indicates a non-blocking but reportable problem.
	SeverityWarning Severity = "warning"
	// SeverityInformation indicates advisory feedback that never affects validity.
	SeverityInformation Severity = "information"
)

// Rank returns the blocking power of the severity; higher blocks more.
// Unknown severities rank below information.
func (s Severity) Rank() int {
	switch s {
	case SeverityFatal:
		return 4
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInformation:
		return 1
	default:
		return 0
	}
}

// Origin identifies the checker that produced an issue.
type Origin string

const (
	// OriginBaseSchema marks issues raised by the structural schema checker.
	OriginBaseSchema Origin = "base-schema"
	// OriginSemanticRule marks issues raised by the semantic rule checker.
	OriginSemanticRule Origin = "semantic-rule"
	// OriginProfileLayer marks issues raised by the profile conformance checker.
	OriginProfileLayer Origin = "profile-layer"
	// OriginEngine marks issues raised by the validator itself (invalid input, contained failures).
	OriginEngine Origin = "engine"
)

// Stable issue codes shared across checkers.
const (
	CodeInvalidJSON          = "invalid-json"
	CodeInvalidFormat        = "invalid-format"
	CodeMissingResourceType  = "missing-resource-type"
	CodeInvalidResourceType  = "invalid-resource-type"
	CodeUnknownResourceType  = "unknown-resource-type"
	CodeValidationException  = "validation-exception"
	CodeSchemaValidatorError = "schema-validator-error"
	CodeSemanticValidatorErr = "semantic-validator-error"
	CodeProfileValidatorErr  = "profile-validator-error"
)

// Issue is a single validation finding. Issues are value objects; checkers
// create them and nothing modifies them afterwards.
type Issue struct {
	// Severity of the issue (fatal, error, warning, information)
	Severity Severity `json:"severity"`

	// Code is a stable machine-readable identifier such as "missing-required-field"
	Code string `json:"code"`

	// Details contains human-readable details about the issue
	Details string `json:"details"`

	// Location is a dotted/bracketed path into the document, e.g. "identifier[0].system"
	Location string `json:"location,omitempty"`

	// Expression is the FHIRPath expression of the element in error
	Expression string `json:"expression,omitempty"`

	// Origin is the checker that produced the issue. It is not part of the wire shape.
	Origin Origin `json:"-"`
}

// IsBlocking returns true if this is an error or fatal issue.
func (i Issue) IsBlocking() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(" [")
	b.WriteString(i.Code)
	b.WriteString("]: ")
	b.WriteString(i.Details)
	if i.Location != "" {
		b.WriteString(" at ")
		b.WriteString(i.Location)
	}
	return b.String()
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity Severity, code string) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Fatal creates a fatal issue.
func Fatal(code string) *IssueBuilder {
	return NewIssue(SeverityFatal, code)
}

// Error creates an error issue.
func Error(code string) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code string) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue.
func Info(code string) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Details sets the diagnostic message.
func (b *IssueBuilder) Details(msg string) *IssueBuilder {
	b.issue.Details = msg
	return b
}

// At sets the document location.
func (b *IssueBuilder) At(location string) *IssueBuilder {
	b.issue.Location = location
	return b
}

// In sets the location and derives the FHIRPath expression from the resource type.
func (b *IssueBuilder) In(resourceType, location string) *IssueBuilder {
	b.issue.Location = location
	b.issue.Expression = Expression(resourceType, location)
	return b
}

// From sets the origin.
func (b *IssueBuilder) From(origin Origin) *IssueBuilder {
	b.issue.Origin = origin
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}

// Expression joins a resource type and a document location into a FHIRPath
// expression. It returns "" when either part is missing.
func Expression(resourceType, location string) string {
	if resourceType == "" || location == "" {
		return ""
	}
	if strings.HasPrefix(location, "[") {
		return resourceType + location
	}
	return resourceType + "." + location
}
