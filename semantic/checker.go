// Package semantic implements the semantic rule checker: the resourceType
// discriminant, a table of per-type required-field and enumerated-value
// rules, and checks applied to every element of the document tree.
package semantic

import (
	"fmt"
	"sync"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/jsonvalue"
)

// Issue codes produced by the cross-cutting walk.
const (
	CodeInvalidBooleanField = "invalid-boolean-field"
	CodeInvalidDateFormat   = "invalid-date-format"
	CodeInvalidCodingSystem = "invalid-coding-system"
	CodeInvalidCodingCode   = "invalid-coding-code"
)

// TypeResolver reports whether a resource type is known.
// definitions.Provider satisfies it.
type TypeResolver interface {
	IsKnownResourceType(name string) bool
}

// Checker applies the rule table and the cross-cutting walk.
// Check is safe for concurrent use, including with Register.
type Checker struct {
	types TypeResolver

	mu    sync.RWMutex
	rules map[string][]Rule
}

// New creates a Checker with the built-in rules. types may be nil, in which
// case only the static R4 list decides whether a type is known.
func New(types TypeResolver) *Checker {
	return &Checker{
		types: types,
		rules: DefaultRules(),
	}
}

// Register appends rules for resourceType.
func (c *Checker) Register(resourceType string, rules ...Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[resourceType] = append(c.rules[resourceType], rules...)
}

// Rules returns the rules registered for resourceType.
func (c *Checker) Rules(resourceType string) []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Rule(nil), c.rules[resourceType]...)
}

// ResourceType checks the discriminant. It returns the resource type, the
// issues found, and false when checking of the resource must stop: the
// field is missing or is not a string.
func (c *Checker) ResourceType(doc map[string]any) (string, []conformance.Issue, bool) {
	raw, ok := jsonvalue.Field(doc, "resourceType")
	if !ok {
		return "", []conformance.Issue{
			conformance.Fatal(conformance.CodeMissingResourceType).
				Details("Resource must have a resourceType field").
				At("resourceType").
				From(conformance.OriginSemanticRule).
				Build(),
		}, false
	}

	rt, ok := raw.(string)
	if !ok {
		return "", []conformance.Issue{
			conformance.Error(conformance.CodeInvalidResourceType).
				Details(fmt.Sprintf("resourceType must be a string, got %s", jsonvalue.KindOf(raw))).
				At("resourceType").
				From(conformance.OriginSemanticRule).
				Build(),
		}, false
	}

	if !c.isKnown(rt) {
		return rt, []conformance.Issue{
			conformance.Info(conformance.CodeUnknownResourceType).
				Details(fmt.Sprintf("Resource type '%s' not found in loaded profiles (using fallback validation)", rt)).
				At("resourceType").
				From(conformance.OriginSemanticRule).
				Build(),
		}, true
	}
	return rt, nil, true
}

func (c *Checker) isKnown(rt string) bool {
	if c.types != nil && c.types.IsKnownResourceType(rt) {
		return true
	}
	return IsR4ResourceType(rt)
}

// Check runs the rules registered for resourceType followed by the
// cross-cutting walk. Coding pairs are reported as errors.
func (c *Checker) Check(doc map[string]any, resourceType string) []conformance.Issue {
	var issues []conformance.Issue
	for _, rule := range c.Rules(resourceType) {
		issues = append(issues, rule.Check(doc, resourceType)...)
	}
	return append(issues, walkDocument(doc, resourceType, true, conformance.SeverityError)...)
}

// CheckCodings runs only the coding-pair walk, reporting with severity.
func CheckCodings(doc map[string]any, resourceType string, severity conformance.Severity) []conformance.Issue {
	return walkDocument(doc, resourceType, false, severity)
}

func walkDocument(doc map[string]any, rt string, fields bool, codingSeverity conformance.Severity) []conformance.Issue {
	var issues []conformance.Issue
	jsonvalue.Walk(doc, func(n jsonvalue.Node) bool {
		if fields && n.Key != "" {
			if issue, bad := checkField(n, rt); bad {
				issues = append(issues, issue)
			}
		}
		if obj, ok := n.Object(); ok && IsCodingShape(obj) {
			issues = append(issues, checkCoding(obj, n.Path, rt, codingSeverity)...)
		}
		return true
	})
	return issues
}

func checkField(n jsonvalue.Node, rt string) (conformance.Issue, bool) {
	switch {
	case IsBooleanFieldName(n.Key):
		if n.Kind == jsonvalue.Bool || n.Kind == jsonvalue.Null {
			return conformance.Issue{}, false
		}
		return conformance.Error(CodeInvalidBooleanField).
			Details(fmt.Sprintf("Field '%s' must be a boolean, got %s", n.Key, n.Kind)).
			In(rt, n.Path).
			From(conformance.OriginSemanticRule).
			Build(), true

	case IsDateFieldName(n.Key):
		s, ok := n.Value.(string)
		if !ok || IsPlainDate(s) {
			return conformance.Issue{}, false
		}
		return conformance.Error(CodeInvalidDateFormat).
			Details(fmt.Sprintf("Field '%s' must be a date in YYYY-MM-DD format, got '%s'", n.Key, s)).
			In(rt, n.Path).
			From(conformance.OriginSemanticRule).
			Build(), true
	}
	return conformance.Issue{}, false
}

func checkCoding(obj map[string]any, path, rt string, severity conformance.Severity) []conformance.Issue {
	var issues []conformance.Issue
	if s, ok := obj["system"].(string); !ok || s == "" {
		loc := jsonvalue.AppendKey(path, "system")
		issues = append(issues, conformance.NewIssue(severity, CodeInvalidCodingSystem).
			Details("Coding system must be a valid URI").
			In(rt, loc).
			From(conformance.OriginSemanticRule).
			Build())
	}
	if s, ok := obj["code"].(string); !ok || s == "" {
		loc := jsonvalue.AppendKey(path, "code")
		issues = append(issues, conformance.NewIssue(severity, CodeInvalidCodingCode).
			Details("Coding code must be a non-empty string").
			In(rt, loc).
			From(conformance.OriginSemanticRule).
			Build())
	}
	return issues
}
