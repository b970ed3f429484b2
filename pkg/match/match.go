// Package match holds the predicates the search strategies and the listing
// pipeline evaluate against documents. Every predicate is pure: it never
// mutates the document and never fails on shapes it does not expect.
package match

import (
	"strings"

	"github.com/sarychdb/sarychdb/pkg/document"
)

// Contains reports whether any scalar reachable from v renders to text that
// contains query. Strings, numbers (canonical decimal) and booleans are tested; arrays and
// objects are descended; null never matches. Object keys are not searched.
func Contains(v document.Value, query string) bool {
	switch v.Kind() {
	case document.KindString, document.KindNumber, document.KindBool:
		text, _ := v.Text()
		return strings.Contains(text, query)
	case document.KindArray:
		for _, item := range v.Items() {
			if Contains(item, query) {
				return true
			}
		}
		return false
	case document.KindObject:
		found := false
		v.Object().Range(func(_ string, field document.Value) bool {
			found = Contains(field, query)
			return !found
		})
		return found
	default:
		return false
	}
}

// ContainsValue is the predicate behind queryType=value: field values only,
// same rules as Contains.
func ContainsValue(v document.Value, query string) bool {
	return Contains(v, query)
}

// HasKey reports whether v is an object with a top-level field named key.
func HasKey(v document.Value, key string) bool {
	return v.Object().Has(key)
}
