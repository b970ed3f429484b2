package engine

import (
	"strings"

	"github.com/sarychdb/sarychdb/pkg/domain"
)

// QueryMode selects the predicate a search runs.
type QueryMode string

const (
	// ModeSubstring is the default: cached substring search over the whole document.
	ModeSubstring QueryMode = ""
	// ModeKey matches objects that have the query as a top-level field name.
	ModeKey QueryMode = "key"
	// ModeValue matches on field values only and always scans the live collection.
	ModeValue QueryMode = "value"
)

// ParseQueryMode maps a queryType parameter onto a QueryMode.
func ParseQueryMode(s string) (QueryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ModeSubstring, nil
	case "key":
		return ModeKey, nil
	case "value":
		return ModeValue, nil
	}
	return "", domain.NewError(domain.KindInvalidArgument, "unsupported queryType %q: use key or value", s)
}
