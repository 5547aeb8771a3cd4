// Package profile implements the profile conformance checker: the optional
// implementation-guide layer applied on top of base specification checks.
package profile

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/definitions"
	"github.com/gofhir/conformance/jsonvalue"
)

// Issue codes produced by the checker.
const (
	CodeUsingBaseProfile         = "using-base-profile"
	CodeProfileNotLoaded         = "profile-not-loaded"
	CodeMissingRequiredExtension = "missing-required-extension"
	CodeInvalidIdentifierFormat  = "invalid-identifier-format"
	CodeInvalidTerminologyBind   = "invalid-terminology-binding"
	CodeCodeNotInValueSet        = "code-not-in-value-set"
	CodeNonLocalAddress          = "non-local-address"
	CodeIncompleteAddress        = "incomplete-address"
)

// Checker applies the profile layer. It holds no mutable state and is safe
// for concurrent use.
type Checker struct {
	provider definitions.Provider
	cfg      Config
	region   language.Region
	regionOK bool
}

// New creates a Checker reading profiles and value sets from provider.
func New(provider definitions.Provider, cfg Config) *Checker {
	c := &Checker{provider: provider, cfg: cfg}
	if r, err := language.ParseRegion(strings.TrimSpace(cfg.Country)); err == nil {
		c.region = r
		c.regionOK = true
	}
	return c
}

// Config returns the checker configuration.
func (c *Checker) Config() Config {
	return c.cfg
}

// Check runs the profile layer for a resource of resourceType. Resource
// types outside the layer yield no issues.
func (c *Checker) Check(doc map[string]any, resourceType string, opts conformance.ValidationOptions) []conformance.Issue {
	l := c.Lookup(resourceType, opts.ProfileURL)

	switch l.State {
	case NotApplicable:
		return nil
	case BaseOnly:
		return []conformance.Issue{
			conformance.Info(CodeUsingBaseProfile).
				Details(fmt.Sprintf("'%s' is covered by the profile layer but uses the base FHIR profile (no profile-specific constraints)", resourceType)).
				From(conformance.OriginProfileLayer).
				Build(),
		}
	case NotLoaded:
		return []conformance.Issue{
			conformance.Warning(CodeProfileNotLoaded).
				Details(fmt.Sprintf("Profile '%s' not found in loaded implementation guide", l.ProfileID)).
				From(conformance.OriginProfileLayer).
				Build(),
		}
	}

	var issues []conformance.Issue
	issues = append(issues, c.checkExtensions(doc, resourceType, l.Profile)...)
	issues = append(issues, c.checkIdentifiers(doc, resourceType)...)
	issues = append(issues, c.checkBindingConventions(doc, resourceType)...)
	if opts.ValidateValueSets {
		issues = append(issues, c.checkValueSets(doc, resourceType, l.Profile)...)
	}
	issues = append(issues, c.checkAddresses(doc, resourceType)...)
	return issues
}

func (c *Checker) checkExtensions(doc map[string]any, rt string, p *definitions.Profile) []conformance.Issue {
	var issues []conformance.Issue
	reported := make(map[string]bool)

	rootURLs := extensionURLs(doc, "extension")
	for _, ext := range c.cfg.RequiredExtensions[rt] {
		reported["extension|"+ext.URL] = true
		if rootURLs[ext.URL] {
			continue
		}
		issues = append(issues, conformance.Error(CodeMissingRequiredExtension).
			Details(fmt.Sprintf("%s profile requires '%s' extension: %s", rt, ext.SliceName, ext.URL)).
			In(rt, "extension").
			From(conformance.OriginProfileLayer).
			Build())
	}

	for _, slice := range p.RequiredExtensionSlices() {
		if len(slice.Profiles) == 0 || !resolvable(slice.Parent) {
			continue
		}
		for _, parent := range resolve(doc, slice.Parent) {
			obj, ok := jsonvalue.AsObject(parent.value)
			if !ok {
				continue
			}
			loc := jsonvalue.AppendKey(parent.path, slice.Attribute)
			present := extensionURLs(obj, slice.Attribute)
			satisfied := false
			for _, url := range slice.Profiles {
				if present[url] || reported[loc+"|"+url] {
					satisfied = true
					break
				}
			}
			if satisfied {
				continue
			}
			for _, url := range slice.Profiles {
				reported[loc+"|"+url] = true
			}
			issues = append(issues, conformance.Error(CodeMissingRequiredExtension).
				Details(fmt.Sprintf("Required extension missing: %s (slice: %s)", strings.Join(slice.Profiles, " or "), slice.SliceName)).
				In(rt, loc).
				From(conformance.OriginProfileLayer).
				Build())
		}
	}
	return issues
}

func (c *Checker) checkIdentifiers(doc map[string]any, rt string) []conformance.Issue {
	var issues []conformance.Issue
	for _, rule := range c.cfg.IdentifierRules {
		if rule.ResourceType != rt {
			continue
		}
		for _, ident := range jsonvalue.Objects(doc["identifier"]) {
			system, _ := ident.Object["system"].(string)
			if !strings.Contains(strings.ToLower(system), strings.ToLower(rule.SystemContains)) {
				continue
			}
			value, _ := ident.Object["value"].(string)
			if value == "" || isNumericID(value) {
				continue
			}
			issues = append(issues, conformance.Warning(CodeInvalidIdentifierFormat).
				Details(fmt.Sprintf("%s should be numeric: %s", rule.Label, value)).
				In(rt, jsonvalue.AppendKey(ident.Path("identifier"), "value")).
				From(conformance.OriginProfileLayer).
				Build())
		}
	}
	return issues
}

// isNumericID reports whether s is all digits once '-' and spaces are removed.
func isNumericID(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r == '-' || r == ' ':
		case unicode.IsDigit(r):
			digits++
		default:
			return false
		}
	}
	return digits > 0
}

func (c *Checker) checkBindingConventions(doc map[string]any, rt string) []conformance.Issue {
	var issues []conformance.Issue
	for _, conv := range c.cfg.BindingConventions {
		if conv.ResourceType != rt {
			continue
		}
		concept, ok := jsonvalue.AsObject(doc[conv.Element])
		if !ok {
			continue
		}
		for _, coding := range jsonvalue.Objects(concept["coding"]) {
			system, _ := coding.Object["system"].(string)
			if system == "" || strings.Contains(foldURI(system), foldURI(conv.SystemContains)) {
				continue
			}
			loc := jsonvalue.AppendKey(coding.Path(jsonvalue.AppendKey(conv.Element, "coding")), "system")
			issues = append(issues, conformance.Warning(CodeInvalidTerminologyBind).
				Details(fmt.Sprintf("%s should use a %s code system: %s", conv.Label, conv.SystemContains, system)).
				In(rt, loc).
				From(conformance.OriginProfileLayer).
				Build())
		}
	}
	return issues
}

func (c *Checker) checkValueSets(doc map[string]any, rt string, p *definitions.Profile) []conformance.Issue {
	if c.provider == nil {
		return nil
	}

	var issues []conformance.Issue
	for _, e := range p.ElementsWithRequiredBinding() {
		if !resolvable(e.Path) {
			continue
		}
		url, _, _ := strings.Cut(e.Binding.ValueSet, "|")
		vs := c.provider.ValueSet(url)
		if vs == nil || !vs.IsEnumerable() {
			continue
		}
		for _, v := range resolve(doc, e.Path) {
			for _, coded := range codings(v) {
				if vs.Contains(coded.system, coded.code) {
					continue
				}
				issues = append(issues, conformance.Warning(CodeCodeNotInValueSet).
					Details(fmt.Sprintf("Code '%s' is not in the required value set %s", coded.display(), url)).
					In(rt, coded.path).
					From(conformance.OriginProfileLayer).
					Build())
			}
		}
	}
	return issues
}

type codedValue struct {
	path   string
	system string
	code   string
}

func (cv codedValue) display() string {
	if cv.system == "" {
		return cv.code
	}
	return cv.system + "|" + cv.code
}

// codings extracts the codes carried by a code, Coding or CodeableConcept value.
func codings(v located) []codedValue {
	if s, ok := v.value.(string); ok {
		return []codedValue{{path: v.path, code: s}}
	}
	obj, ok := jsonvalue.AsObject(v.value)
	if !ok {
		return nil
	}
	if code, ok := obj["code"].(string); ok && code != "" {
		system, _ := obj["system"].(string)
		return []codedValue{{path: jsonvalue.AppendKey(v.path, "code"), system: system, code: code}}
	}

	var out []codedValue
	for _, c := range jsonvalue.Objects(obj["coding"]) {
		code, ok := c.Object["code"].(string)
		if !ok || code == "" {
			continue
		}
		system, _ := c.Object["system"].(string)
		path := jsonvalue.AppendKey(c.Path(jsonvalue.AppendKey(v.path, "coding")), "code")
		out = append(out, codedValue{path: path, system: system, code: code})
	}
	return out
}

func (c *Checker) checkAddresses(doc map[string]any, rt string) []conformance.Issue {
	var issues []conformance.Issue
	for _, addr := range jsonvalue.Objects(doc["address"]) {
		loc := addr.Path("address")

		if country, ok := addr.Object["country"].(string); ok && country != "" && !c.isLocal(country) {
			issues = append(issues, conformance.Info(CodeNonLocalAddress).
				Details(fmt.Sprintf("Address country is not %s: %s", c.cfg.Country, country)).
				In(rt, jsonvalue.AppendKey(loc, "country")).
				From(conformance.OriginProfileLayer).
				Build())
		}

		_, hasCity := jsonvalue.Field(addr.Object, "city")
		_, hasDistrict := jsonvalue.Field(addr.Object, "district")
		if !hasCity && !hasDistrict {
			issues = append(issues, conformance.Warning(CodeIncompleteAddress).
				Details("Address should include city/municipality or district information").
				In(rt, loc).
				From(conformance.OriginProfileLayer).
				Build())
		}
	}
	return issues
}

// foldURI lowers s and drops hyphens so that marital-status also matches
// v3-MaritalStatus.
func foldURI(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", ""))
}

// isLocal compares country with the configured locale. ISO 3166 alpha-2,
// alpha-3 and numeric codes are canonicalized; other text is compared
// case-insensitively.
func (c *Checker) isLocal(country string) bool {
	country = strings.TrimSpace(country)
	if c.regionOK {
		if r, err := language.ParseRegion(country); err == nil {
			return r == c.region
		}
	}
	fold := cases.Fold()
	return fold.String(country) == fold.String(c.cfg.Country)
}
