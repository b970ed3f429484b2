package match

import (
	"fmt"
	"strings"

	"github.com/sarychdb/sarychdb/pkg/document"
)

// Filter constrains one field: equality with Values[0], or membership in Values
// when AnyOf is set.
type Filter struct {
	Field  string
	Values []document.Value
	AnyOf  bool
}

// FilterSet is a conjunction of field filters, kept in the order they were given.
type FilterSet []Filter

// ParseFilterSet decodes a JSON object literal such as {"a": 1, "b": ["x", "y"]}.
// An array value means any-of; anything else is an exact match. An empty or
// whitespace-only input yields an empty set.
func ParseFilterSet(raw string) (FilterSet, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	v, err := document.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}
	if v.Kind() != document.KindObject {
		return nil, fmt.Errorf("invalid filters: expected a JSON object, got %s", v.Kind())
	}
	return FilterSetFromObject(v.Object()), nil
}

// FilterSetFromObject builds a FilterSet from an already decoded object.
func FilterSetFromObject(obj *document.Object) FilterSet {
	set := make(FilterSet, 0, obj.Len())
	obj.Range(func(field string, v document.Value) bool {
		if v.Kind() == document.KindArray {
			set = append(set, Filter{Field: field, Values: v.Items(), AnyOf: true})
		} else {
			set = append(set, Filter{Field: field, Values: []document.Value{v}})
		}
		return true
	})
	return set
}

// Matches reports whether doc satisfies every filter. A document lacking a
// constrained field never matches, and non-object documents only match an
// empty set.
func (fs FilterSet) Matches(doc document.Value) bool {
	if len(fs) == 0 {
		return true
	}

	obj := doc.Object()
	if obj == nil {
		return false
	}

	for _, f := range fs {
		actual, exists := obj.Get(f.Field)
		if !exists {
			return false
		}
		if !f.accepts(actual) {
			return false
		}
	}
	return true
}

func (f Filter) accepts(actual document.Value) bool {
	for _, expected := range f.Values {
		if ValuesMatch(actual, expected) {
			return true
		}
	}
	return false
}

// ValuesMatch compares a document value with a filter literal. Numbers compare
// numerically, everything else structurally.
func ValuesMatch(actual, expected document.Value) bool {
	return actual.Equal(expected)
}

// Fields returns the constrained field names in order.
func (fs FilterSet) Fields() []string {
	fields := make([]string, len(fs))
	for i, f := range fs {
		fields[i] = f.Field
	}
	return fields
}
