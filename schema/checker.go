// Package schema implements the structural schema checker: it validates a
// document against the JSON schema definition of its resource type and
// reports every violation.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gofhir/conformance"
	"github.com/gofhir/conformance/definitions"
	"github.com/gofhir/conformance/jsonvalue"
)

// Issue codes produced by the checker.
const (
	CodeEnumMismatch    = "schema-enum-mismatch"
	CodeMissingProperty = "schema-missing-property"
	CodeTypeMismatch    = "schema-type-mismatch"
	CodePatternMismatch = "schema-pattern-mismatch"
	CodeUnknownProperty = "schema-unknown-property"
	CodeViolation       = "schema-violation"
)

// DefaultCacheSize bounds the number of compiled per-type schemas kept.
const DefaultCacheSize = 256

type cacheKey struct {
	schema   *definitions.Schema
	fragment string
}

// Checker validates documents against a JSON schema. Compiled schemas are
// cached per definition. It is safe for concurrent use.
type Checker struct {
	cache   *lru.Cache[cacheKey, *jsonschema.Schema]
	metrics *conformance.Metrics

	mu       sync.Mutex
	compiler *jsonschema.Compiler
	source   *definitions.Schema
}

// Option configures a Checker.
type Option func(*Checker)

// WithMetrics records cache hits and misses.
func WithMetrics(m *conformance.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// New creates a Checker holding at most cacheSize compiled schemas.
func New(cacheSize int, opts ...Option) *Checker {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *jsonschema.Schema](cacheSize)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}

	c := &Checker{cache: cache}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check validates doc against the definition for resourceType in s, or the
// whole schema when s does not define it. A nil schema yields no issues.
func (c *Checker) Check(doc map[string]any, resourceType string, s *definitions.Schema) []conformance.Issue {
	if s == nil {
		return nil
	}

	compiled, err := c.compiled(s, s.Fragment(resourceType))
	if err != nil {
		return []conformance.Issue{validatorError(err)}
	}

	err = compiled.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []conformance.Issue{validatorError(err)}
	}

	var leaves []*jsonschema.ValidationError
	collectLeaves(ve, &leaves)
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		if leaves[i].KeywordLocation != leaves[j].KeywordLocation {
			return leaves[i].KeywordLocation < leaves[j].KeywordLocation
		}
		return leaves[i].Message < leaves[j].Message
	})

	issues := make([]conformance.Issue, 0, len(leaves))
	for _, leaf := range leaves {
		if lastKeyword(leaf.KeywordLocation) == "additionalProperties" {
			issues = append(issues, c.unknownProperties(doc, resourceType, s, leaf)...)
			continue
		}
		issues = append(issues, conformance.Error(Classify(leaf.KeywordLocation)).
			Details("Schema validation issue: "+leaf.Message).
			In(resourceType, jsonvalue.PointerToPath(leaf.InstanceLocation)).
			From(conformance.OriginBaseSchema).
			Build())
	}
	return issues
}

// unknownProperties reports each undeclared key of the object rejected by an
// additionalProperties=false leaf, in sorted key order.
func (c *Checker) unknownProperties(doc map[string]any, rt string, s *definitions.Schema, leaf *jsonschema.ValidationError) []conformance.Issue {
	path := jsonvalue.PointerToPath(leaf.InstanceLocation)

	var keys []string
	target, _ := jsonvalue.AtPointer(doc, leaf.InstanceLocation)
	obj, isObject := jsonvalue.AsObject(target)
	loc := strings.TrimSuffix(strings.TrimSuffix(leaf.AbsoluteKeywordLocation, "additionalProperties"), "/")
	if sch, err := c.compiled(s, strings.TrimSuffix(loc, "#")); err == nil && isObject {
		for _, key := range jsonvalue.SortedKeys(obj) {
			if !declared(sch, key) {
				keys = append(keys, key)
			}
		}
	}

	if len(keys) == 0 {
		return []conformance.Issue{conformance.Error(CodeUnknownProperty).
			Details("Schema validation issue: additional properties are not allowed").
			In(rt, path).
			From(conformance.OriginBaseSchema).
			Build()}
	}

	issues := make([]conformance.Issue, 0, len(keys))
	for _, key := range keys {
		issues = append(issues, conformance.Error(CodeUnknownProperty).
			Details(fmt.Sprintf("Schema validation issue: property '%s' is not allowed", key)).
			In(rt, jsonvalue.AppendKey(path, key)).
			From(conformance.OriginBaseSchema).
			Build())
	}
	return issues
}

func declared(sch *jsonschema.Schema, key string) bool {
	if _, ok := sch.Properties[key]; ok {
		return true
	}
	for pattern := range sch.PatternProperties {
		if pattern.MatchString(key) {
			return true
		}
	}
	return false
}

func validatorError(err error) conformance.Issue {
	return conformance.Warning(conformance.CodeSchemaValidatorError).
		Details(fmt.Sprintf("An unexpected error occurred during schema validation: %v", err)).
		From(conformance.OriginBaseSchema).
		Build()
}

// collectLeaves flattens the error tree. Alternatives (oneOf, anyOf) are
// reported once at their own keyword since no single branch is "the" error.
func collectLeaves(ve *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, ve)
		return
	}
	switch lastKeyword(ve.KeywordLocation) {
	case "oneOf", "anyOf":
		*out = append(*out, ve)
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

// Classify maps the failing JSON-Schema keyword to an issue code.
func Classify(keywordLocation string) string {
	switch lastKeyword(keywordLocation) {
	case "enum", "const":
		return CodeEnumMismatch
	case "required":
		return CodeMissingProperty
	case "type":
		return CodeTypeMismatch
	case "pattern":
		return CodePatternMismatch
	case "additionalProperties", "unevaluatedProperties":
		return CodeUnknownProperty
	default:
		return CodeViolation
	}
}

func lastKeyword(keywordLocation string) string {
	if i := strings.LastIndexByte(keywordLocation, '/'); i >= 0 {
		return keywordLocation[i+1:]
	}
	return keywordLocation
}

func (c *Checker) compiled(s *definitions.Schema, fragment string) (*jsonschema.Schema, error) {
	key := cacheKey{schema: s, fragment: fragment}
	if sch, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return sch, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compiler == nil || c.source != s {
		compiler, err := newCompiler(s)
		if err != nil {
			return nil, err
		}
		c.compiler = compiler
		c.source = s
	}

	sch, err := c.compiler.Compile(fragment)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, sch)
	return sch, nil
}

func newCompiler(s *definitions.Schema) (*jsonschema.Compiler, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("schema %s is not available locally", url)
	}
	if err := compiler.AddResource(definitions.SchemaURL, bytes.NewReader(s.Raw())); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler, nil
}
