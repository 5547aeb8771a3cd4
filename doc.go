// Package conformance checks JSON documents claiming to be FHIR resources
// against the base specification and an optional implementation-guide
// profile layer.
//
// The root package holds the shared model: Issue, Result, ValidationOptions
// and the Result Composer. The checkers live in subpackages and are wired
// together by the engine package.
//
// # Quick Start
//
//	import (
//	    "github.com/gofhir/conformance"
//	    "github.com/gofhir/conformance/definitions"
//	    "github.com/gofhir/conformance/engine"
//	)
//
//	store := definitions.NewStore(definitions.StoreConfig{Dir: "resources"})
//	v := engine.New(store)
//
//	result := v.ValidateBytes(data, conformance.NewOptions(
//	    conformance.WithProfileLayer(true, true),
//	))
//	if !result.Valid {
//	    for _, issue := range result.Issues {
//	        fmt.Println(issue)
//	    }
//	}
//
// # Stages
//
// A validation runs these stages in order:
//
//   - Discriminant: resourceType must be present and a string
//   - Schema: the JSON Schema definition of the resource type
//   - Semantic: per-type required fields and enumerations, date and boolean
//     typing, coding-pair well-formedness
//   - Codings: the same coding-pair walk at warning severity (validateCodeSystems)
//   - Profile: extension slices, identifier formats, binding conventions and
//     addresses (useProfileLayer)
//
// A fatal issue stops the remaining stages. Every issue carries the Origin of
// the stage that produced it; Compose uses it to decide whether profile-layer
// errors block validity (strict) or are only reported (non-strict).
package conformance
