package storage

import (
	"strings"

	"github.com/sarychdb/sarychdb/pkg/domain"
)

// ValidateName checks a user or collection name before it becomes part of a path.
// what names the kind of name in the error message, e.g. "username".
func ValidateName(what, name string) error {
	switch {
	case name == "":
		return domain.NewError(domain.KindInvalidArgument, "%s cannot be empty", what)
	case strings.ContainsAny(name, " \t\r\n"):
		return domain.NewError(domain.KindInvalidArgument, "%s cannot contain spaces", what)
	case strings.ContainsAny(name, `/\`):
		return domain.NewError(domain.KindInvalidArgument, "%s cannot contain path separators", what)
	case strings.Contains(name, ".."):
		return domain.NewError(domain.KindInvalidArgument, "%s cannot contain '..'", what)
	}
	return nil
}

func validateCollection(owner, name string) error {
	if err := ValidateName("username", owner); err != nil {
		return err
	}
	return ValidateName("database name", name)
}
