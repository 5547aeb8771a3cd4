package profile

import (
	"strings"

	"github.com/gofhir/conformance/jsonvalue"
)

// located is a value found in the document with its location.
type located struct {
	path  string
	value any
}

// resolvable reports whether an element path can be followed in instance
// data: no slices and no choice types.
func resolvable(elementPath string) bool {
	return !strings.ContainsAny(elementPath, ":[")
}

// resolve follows an element path such as "Patient.address.city" through
// doc. Arrays are flattened, so one path can yield many values.
func resolve(doc map[string]any, elementPath string) []located {
	_, rest, hasRest := strings.Cut(elementPath, ".")
	current := []located{{path: "", value: doc}}
	if !hasRest {
		return current
	}

	for _, seg := range strings.Split(rest, ".") {
		var next []located
		for _, loc := range current {
			obj, ok := jsonvalue.AsObject(loc.value)
			if !ok {
				continue
			}
			v, ok := jsonvalue.Field(obj, seg)
			if !ok {
				continue
			}
			base := jsonvalue.AppendKey(loc.path, seg)
			if items, isArray := jsonvalue.AsArray(v); isArray {
				for i, item := range items {
					next = append(next, located{path: jsonvalue.AppendIndex(base, i), value: item})
				}
				continue
			}
			next = append(next, located{path: base, value: v})
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// extensionURLs collects the url of every extension under attr of obj.
func extensionURLs(obj map[string]any, attr string) map[string]bool {
	urls := make(map[string]bool)
	for _, ext := range jsonvalue.Objects(obj[attr]) {
		if url, ok := ext.Object["url"].(string); ok && url != "" {
			urls[url] = true
		}
	}
	return urls
}
