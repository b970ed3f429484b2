package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarychdb/sarychdb/pkg/document"
)

func mustParse(t *testing.T, raw string) document.Value {
	t.Helper()
	v, err := document.Parse([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestContains(t *testing.T) {
	doc := `{"name": "Alice Smith", "age": 30, "active": true, "score": 98.5,
		"tags": ["admin", {"code": "P1605"}], "manager": null}`

	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{name: "string substring", query: "Smith", expected: true},
		{name: "number literal", query: "30", expected: true},
		{name: "number fragment", query: "8.5", expected: true},
		{name: "boolean text", query: "tru", expected: true},
		{name: "nested array object", query: "P160", expected: true},
		{name: "keys are not searched", query: "manager", expected: false},
		{name: "null never matches", query: "null", expected: false},
		{name: "absent", query: "Bob", expected: false},
		{name: "case sensitive", query: "alice", expected: false},
	}

	v := mustParse(t, doc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Contains(v, tt.query))
			assert.Equal(t, tt.expected, ContainsValue(v, tt.query))
		})
	}
}

func TestContains_TopLevelScalars(t *testing.T) {
	assert.True(t, Contains(document.String("hello"), "ell"))
	assert.True(t, Contains(document.Int(12345), "234"))
	assert.True(t, Contains(document.Bool(false), "fal"))
	assert.False(t, Contains(document.Null(), ""))
	assert.True(t, Contains(document.String("x"), ""), "empty query is a substring of any text")
}

func TestContains_CanonicalNumbers(t *testing.T) {
	v := mustParse(t, `{"p": 1e2, "q": 1.50, "r": 2.0}`)

	tests := []struct {
		query    string
		expected bool
	}{
		{query: "100", expected: true},
		{query: "1e2", expected: false},
		{query: "1.5", expected: true},
		{query: "1.50", expected: false},
		{query: "2", expected: true},
		{query: "2.0", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, Contains(v, tt.query))
		})
	}
}

func TestContains_DoesNotMutate(t *testing.T) {
	v := mustParse(t, `{"a": {"b": ["c"]}}`)
	before, err := v.MarshalJSON()
	require.NoError(t, err)

	Contains(v, "c")
	HasKey(v, "a")

	after, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestHasKey(t *testing.T) {
	assert.True(t, HasKey(mustParse(t, `{"email": null}`), "email"))
	assert.False(t, HasKey(mustParse(t, `{"profile": {"email": "x"}}`), "email"), "only top-level fields")
	assert.False(t, HasKey(mustParse(t, `["email"]`), "email"))
	assert.False(t, HasKey(document.String("email"), "email"))
}

func TestParseFilterSet(t *testing.T) {
	fs, err := ParseFilterSet(`{"status": "active", "role": ["admin", "owner"]}`)
	require.NoError(t, err)
	require.Len(t, fs, 2)

	assert.Equal(t, []string{"status", "role"}, fs.Fields())
	assert.False(t, fs[0].AnyOf)
	assert.True(t, fs[1].AnyOf)
	assert.Len(t, fs[1].Values, 2)

	empty, err := ParseFilterSet("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseFilterSet(`["a"]`)
	assert.Error(t, err)

	_, err = ParseFilterSet(`{"a": `)
	assert.Error(t, err)
}

func TestFilterSet_Matches(t *testing.T) {
	tests := []struct {
		name     string
		filters  string
		doc      string
		expected bool
	}{
		{name: "exact string", filters: `{"b": "x"}`, doc: `{"a": 1, "b": "x"}`, expected: true},
		{name: "exact number spelled differently", filters: `{"a": 1.0}`, doc: `{"a": 1}`, expected: true},
		{name: "mismatch", filters: `{"a": 2}`, doc: `{"a": 1}`, expected: false},
		{name: "missing field", filters: `{"c": 1}`, doc: `{"a": 1}`, expected: false},
		{name: "any of", filters: `{"b": ["y", "x"]}`, doc: `{"b": "x"}`, expected: true},
		{name: "any of miss", filters: `{"b": ["y", "z"]}`, doc: `{"b": "x"}`, expected: false},
		{name: "and across fields", filters: `{"a": 1, "b": "x"}`, doc: `{"a": 1, "b": "y"}`, expected: false},
		{name: "type mismatch", filters: `{"a": "1"}`, doc: `{"a": 1}`, expected: false},
		{name: "null literal", filters: `{"a": null}`, doc: `{"a": null}`, expected: true},
		{name: "non-object document", filters: `{"a": 1}`, doc: `[1]`, expected: false},
		{name: "empty set matches all", filters: `{}`, doc: `"scalar"`, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := ParseFilterSet(tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fs.Matches(mustParse(t, tt.doc)))
		})
	}
}
