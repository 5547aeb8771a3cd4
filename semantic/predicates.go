package semantic

import (
	"regexp"
	"strings"
	"unicode"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var booleanFields = map[string]bool{
	"active":       true,
	"preferred":    true,
	"experimental": true,
	"immutable":    true,
}

var booleanChoicePrefixes = []string{"deceased", "multipleBirth"}

// IsBooleanFieldName reports whether key names an element that must hold a
// JSON boolean. Choice elements (deceased[x], multipleBirth[x]) match in
// their bare and Boolean-typed forms only.
func IsBooleanFieldName(key string) bool {
	if booleanFields[key] {
		return true
	}
	for _, prefix := range booleanChoicePrefixes {
		if rest, ok := strings.CutPrefix(key, prefix); ok && (rest == "" || rest == "Boolean") {
			return true
		}
	}
	return false
}

// IsDateFieldName reports whether key names a plain date element: one of
// its camel-case words is "date" and it does not end in "Time". So
// birthDate and date match while effectiveDateTime and lastUpdated do not.
func IsDateFieldName(key string) bool {
	words := camelWords(key)
	if len(words) == 0 || strings.EqualFold(words[len(words)-1], "time") {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(w, "date") {
			return true
		}
	}
	return false
}

// IsPlainDate reports whether s has the YYYY-MM-DD form.
func IsPlainDate(s string) bool {
	return datePattern.MatchString(s)
}

// IsCodingShape reports whether obj looks like a Coding: both system and
// code keys are present, whatever their values.
func IsCodingShape(obj map[string]any) bool {
	_, hasSystem := obj["system"]
	_, hasCode := obj["code"]
	return hasSystem && hasCode
}

func camelWords(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > start && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		words = append(words, s[start:])
	}
	return words
}
